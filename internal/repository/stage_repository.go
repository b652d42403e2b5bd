package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
)

// StageRepository reads stage configuration. It implements pipeline.StageProvider.
// Queries take the organization explicitly because stage sets are resolved
// and cached per organization outside any request.
type StageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

// OrganizationStages returns the active override stages ordered by stage_order
func (r *StageRepository) OrganizationStages(ctx context.Context, orgID uuid.UUID) ([]domain.PipelineStage, error) {
	var rows []domain.OrganizationPipelineStage
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("stage_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	stages := make([]domain.PipelineStage, len(rows))
	for i, row := range rows {
		stages[i] = toPipelineStage(row.StageKey, row.StageLabel, row.StageOrder, row.DefaultProbability, row.IsTerminal, row.ColorBg, row.ColorText)
	}
	return stages, nil
}

// IndustryTemplate returns the organization's industry template key
func (r *StageRepository) IndustryTemplate(ctx context.Context, orgID uuid.UUID) (string, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Select("industry_template").Where("id = ?", orgID).First(&org).Error
	if err != nil {
		return "", err
	}
	return org.IndustryTemplate, nil
}

// IndustryStages returns the stages of an industry template ordered by stage_order
func (r *StageRepository) IndustryStages(ctx context.Context, template string) ([]domain.PipelineStage, error) {
	var rows []domain.IndustryPipelineStage
	err := r.db.WithContext(ctx).
		Where("industry_template = ?", template).
		Order("stage_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	stages := make([]domain.PipelineStage, len(rows))
	for i, row := range rows {
		stages[i] = toPipelineStage(row.StageKey, row.StageLabel, row.StageOrder, row.DefaultProbability, row.IsTerminal, row.ColorBg, row.ColorText)
	}
	return stages, nil
}

func toPipelineStage(key, label string, order, probability int, terminal bool, bg, text string) domain.PipelineStage {
	return domain.PipelineStage{
		Key:                domain.DealStage(key),
		Label:              label,
		Order:              order,
		DefaultProbability: probability,
		IsTerminal:         terminal,
		Color:              domain.StageColor{Bg: bg, Text: text},
	}
}
