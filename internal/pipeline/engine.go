package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"go.uber.org/zap"
)

// StageProvider fetches stage configuration from persistent storage
type StageProvider interface {
	// OrganizationStages returns the active override stages of an organization
	OrganizationStages(ctx context.Context, orgID uuid.UUID) ([]domain.PipelineStage, error)
	// IndustryTemplate returns the organization's industry template key
	IndustryTemplate(ctx context.Context, orgID uuid.UUID) (string, error)
	// IndustryStages returns the stages of an industry template
	IndustryStages(ctx context.Context, template string) ([]domain.PipelineStage, error)
}

// SharedCache is an optional cross-instance cache of resolved stage sets
type SharedCache interface {
	GetStages(ctx context.Context, orgID uuid.UUID) ([]domain.PipelineStage, bool, error)
	SetStages(ctx context.Context, orgID uuid.UUID, stages []domain.PipelineStage) error
	DeleteStages(ctx context.Context, orgID uuid.UUID) error
}

// FailureRecorder is told about every stage fetch failure
type FailureRecorder func(source StageSource)

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithSharedCache puts a shared cache between the local cache and storage
func WithSharedCache(c SharedCache) EngineOption {
	return func(e *Engine) {
		e.shared = c
	}
}

// WithFailureRecorder registers a hook called on every fetch failure
func WithFailureRecorder(r FailureRecorder) EngineOption {
	return func(e *Engine) {
		e.recordFailure = r
	}
}

// WithLocalTTL sets how long a stage set stays in the in-process cache.
// Non-positive values keep the default.
func WithLocalTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		if ttl > 0 {
			e.localTTL = ttl
		}
	}
}

// WithClock replaces time.Now for cache expiry
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithDefaultIndustry sets the template used when an organization has none
func WithDefaultIndustry(template string) EngineOption {
	return func(e *Engine) {
		if template != "" {
			e.defaultIndustry = template
		}
	}
}

// DefaultLocalTTL bounds how stale another instance's stage edits can look
const DefaultLocalTTL = 5 * time.Minute

type cachedSet struct {
	set      *StageSet
	loadedAt time.Time
}

// Engine resolves and caches each organization's stage set.
// Resolution order is organization override, industry template, built-in defaults.
// Local entries expire after the local TTL so edits made through another
// instance, or directly in storage, are picked up.
type Engine struct {
	provider        StageProvider
	shared          SharedCache
	logger          *zap.Logger
	recordFailure   FailureRecorder
	defaultIndustry string
	localTTL        time.Duration
	now             func() time.Time

	mu   sync.RWMutex
	sets map[uuid.UUID]cachedSet
}

// NewEngine creates a stage engine
func NewEngine(provider StageProvider, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		provider:        provider,
		logger:          logger,
		recordFailure:   func(StageSource) {},
		defaultIndustry: domain.DefaultIndustryTemplate,
		localTTL:        DefaultLocalTTL,
		now:             time.Now,
		sets:            make(map[uuid.UUID]cachedSet),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load returns the organization's stage set. It never fails: fetch errors are
// logged and recorded, and resolution falls through to the next source.
// A set resolved after any fetch failure is returned but not cached.
func (e *Engine) Load(ctx context.Context, orgID uuid.UUID) *StageSet {
	e.mu.RLock()
	entry, ok := e.sets[orgID]
	e.mu.RUnlock()
	if ok && e.now().Sub(entry.loadedAt) < e.localTTL {
		return entry.set
	}

	if e.shared != nil {
		stages, found, err := e.shared.GetStages(ctx, orgID)
		if err != nil {
			e.logger.Warn("stage cache read failed",
				zap.String("organization_id", orgID.String()),
				zap.Error(err))
		} else if found && len(stages) > 0 {
			set := NewStageSet(stages, SourceCache)
			e.store(orgID, set)
			return set
		}
	}

	set, failed := e.resolve(ctx, orgID)
	if failed {
		return set
	}

	e.store(orgID, set)
	if e.shared != nil {
		if err := e.shared.SetStages(ctx, orgID, set.Ordered()); err != nil {
			e.logger.Warn("stage cache write failed",
				zap.String("organization_id", orgID.String()),
				zap.Error(err))
		}
	}
	return set
}

// Invalidate drops any cached stage set for the organization
func (e *Engine) Invalidate(ctx context.Context, orgID uuid.UUID) {
	e.mu.Lock()
	delete(e.sets, orgID)
	e.mu.Unlock()

	if e.shared != nil {
		if err := e.shared.DeleteStages(ctx, orgID); err != nil {
			e.logger.Warn("stage cache delete failed",
				zap.String("organization_id", orgID.String()),
				zap.Error(err))
		}
	}
}

func (e *Engine) store(orgID uuid.UUID, set *StageSet) {
	e.mu.Lock()
	e.sets[orgID] = cachedSet{set: set, loadedAt: e.now()}
	e.mu.Unlock()
}

func (e *Engine) resolve(ctx context.Context, orgID uuid.UUID) (*StageSet, bool) {
	failed := false

	stages, err := e.provider.OrganizationStages(ctx, orgID)
	if err != nil {
		failed = true
		e.fail(SourceOrganization, orgID, err)
	} else if len(stages) > 0 {
		return NewStageSet(stages, SourceOrganization), failed
	}

	template, err := e.provider.IndustryTemplate(ctx, orgID)
	if err != nil {
		failed = true
		e.fail(SourceIndustry, orgID, err)
		template = ""
	}
	if template == "" {
		template = e.defaultIndustry
	}

	stages, err = e.provider.IndustryStages(ctx, template)
	if err != nil {
		failed = true
		e.fail(SourceIndustry, orgID, err)
	} else if len(stages) > 0 {
		return NewStageSet(stages, SourceIndustry), failed
	}

	return NewStageSet(DefaultStages(), SourceDefault), failed
}

func (e *Engine) fail(source StageSource, orgID uuid.UUID, err error) {
	e.logger.Warn("failed to load pipeline stages, falling back",
		zap.String("source", string(source)),
		zap.String("organization_id", orgID.String()),
		zap.Error(err))
	e.recordFailure(source)
}
