package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DealFilters contains all filter options for listing deals
type DealFilters struct {
	Stage       *domain.DealStage
	AssignedTo  *string
	CustomerID  *uuid.UUID
	Source      *string
	MinValue    *float64
	MaxValue    *float64
	SearchQuery *string
}

// dealSortFields maps API sort fields to columns
var dealSortFields = map[string]string{
	"createdAt":         "created_at",
	"updatedAt":         "updated_at",
	"title":             "title",
	"value":             "value",
	"probability":       "probability",
	"weightedValue":     "weighted_value",
	"expectedCloseDate": "expected_close_date",
	"stage":             "stage",
}

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// WithTx returns a repository bound to a transaction
func (r *DealRepository) WithTx(tx *gorm.DB) *DealRepository {
	return &DealRepository{db: tx}
}

// Create inserts a deal into the caller's organization
func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	orgID, err := OrganizationID(ctx)
	if err != nil {
		return err
	}
	deal.OrganizationID = orgID
	// Omit associations to avoid GORM trying to upsert the customer
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(deal).Error
}

func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	query := r.db.WithContext(ctx).Preload("Customer").Where("id = ?", id)
	query = ApplyOrganizationFilter(ctx, query)
	if err := query.First(&deal).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

// Update writes every column of the deal, zero values included. The
// organization filter keeps a write from reaching another tenant's row.
func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	query := ApplyOrganizationFilter(ctx, r.db.WithContext(ctx).Model(deal))
	result := query.Select("*").Omit(clause.Associations, "created_at").Updates(deal)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := ApplyOrganizationFilter(ctx, r.db.WithContext(ctx).Where("id = ?", id))
	result := query.Delete(&domain.Deal{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAll returns every deal of the caller's organization, newest first
func (r *DealRepository) ListAll(ctx context.Context) ([]domain.Deal, error) {
	return listScoped[domain.Deal](ctx, r.db, "created_at DESC")
}

// List returns one page of deals with the total number of matches
func (r *DealRepository) List(ctx context.Context, page, pageSize int, filters *DealFilters, sort SortConfig) ([]domain.Deal, int64, error) {
	var deals []domain.Deal
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Deal{})
	query = ApplyOrganizationFilter(ctx, query)
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Customer").
		Order(BuildOrderClause(sort, dealSortFields, "created_at")).
		Offset(offset).
		Limit(pageSize).
		Find(&deals).Error

	return deals, total, err
}

func (r *DealRepository) applyFilters(query *gorm.DB, filters *DealFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.Stage != nil {
		query = query.Where("stage = ?", *filters.Stage)
	}
	if filters.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filters.AssignedTo)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.Source != nil {
		query = query.Where("source = ?", *filters.Source)
	}
	if filters.MinValue != nil {
		query = query.Where("value >= ?", *filters.MinValue)
	}
	if filters.MaxValue != nil {
		query = query.Where("value <= ?", *filters.MaxValue)
	}
	if filters.SearchQuery != nil && *filters.SearchQuery != "" {
		pattern := "%" + strings.ToLower(*filters.SearchQuery) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	return query
}
