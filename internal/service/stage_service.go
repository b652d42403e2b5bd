package service

import (
	"context"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/events"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"go.uber.org/zap"
)

// StageService exposes the caller's resolved stage set
type StageService struct {
	engine   *pipeline.Engine
	notifier eventNotifier
	logger   *zap.Logger
}

func NewStageService(engine *pipeline.Engine, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *StageService {
	return &StageService{
		engine:   engine,
		notifier: eventNotifier{publisher: publisher, metrics: m, logger: logger},
		logger:   logger,
	}
}

// StageSet returns the stage set of the caller's organization
func (s *StageService) StageSet(ctx context.Context) (*pipeline.StageSet, error) {
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Load(ctx, orgID), nil
}

// GetStages returns the caller's stages in display order
func (s *StageService) GetStages(ctx context.Context) ([]domain.PipelineStage, error) {
	set, err := s.StageSet(ctx)
	if err != nil {
		return nil, err
	}
	return set.Ordered(), nil
}

// Refresh drops the cached stage set and resolves it again from storage
func (s *StageService) Refresh(ctx context.Context) ([]domain.PipelineStage, error) {
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return nil, err
	}

	s.engine.Invalidate(ctx, orgID)
	set := s.engine.Load(ctx, orgID)

	s.logger.Info("pipeline stages refreshed",
		zap.String("organization_id", orgID.String()),
		zap.String("source", string(set.Source())),
		zap.Int("stages", set.Len()))

	s.notifier.notify(ctx, domain.PipelineEvent{
		Type:           domain.EventStagesRefreshed,
		OrganizationID: orgID,
	})
	return set.Ordered(), nil
}
