package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingPublisher keeps every published event and optionally fails
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PipelineEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.PipelineEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) types() []domain.PipelineEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]domain.PipelineEventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func (p *recordingPublisher) last() domain.PipelineEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func newStageService(t *testing.T, db *gorm.DB, pub *recordingPublisher, m *metrics.Metrics) *service.StageService {
	t.Helper()
	engine := pipeline.NewEngine(repository.NewStageRepository(db), zap.NewNop(),
		pipeline.WithFailureRecorder(func(source pipeline.StageSource) {
			m.RecordStageLoadFailure(string(source))
		}))
	return service.NewStageService(engine, pub, m, zap.NewNop())
}
