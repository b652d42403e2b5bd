package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Collection names used in warnings and the partial failure metric
const (
	collectionDeals     = "deals"
	collectionQuotes    = "quotes"
	collectionInvoices  = "invoices"
	collectionCustomers = "customers"
)

// PipelineQuery selects and orders the items of a pipeline view
type PipelineQuery struct {
	Search        string
	Stage         string
	DateRange     pipeline.DateRange
	ValueRange    pipeline.ValueRange
	SortField     pipeline.SortField
	SortDirection pipeline.SortDirection
}

// Validate checks the enumerated fields of the query
func (q PipelineQuery) Validate() error {
	if q.DateRange != "" && !pipeline.ValidDateRange(q.DateRange) {
		return fmt.Errorf("%w: unknown date range %q", ErrInvalidInput, q.DateRange)
	}
	if q.ValueRange != "" && !pipeline.ValidValueRange(q.ValueRange) {
		return fmt.Errorf("%w: unknown value range %q", ErrInvalidInput, q.ValueRange)
	}
	if q.SortField != "" && !pipeline.ValidSortField(q.SortField) {
		return fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, q.SortField)
	}
	switch q.SortDirection {
	case "", pipeline.SortAsc, pipeline.SortDesc:
	default:
		return fmt.Errorf("%w: unknown sort direction %q", ErrInvalidInput, q.SortDirection)
	}
	return nil
}

// PipelineService builds the unified pipeline view of deals, quotes and invoices
type PipelineService struct {
	stages       *StageService
	dealRepo     *repository.DealRepository
	quoteRepo    *repository.QuoteRepository
	invoiceRepo  *repository.InvoiceRepository
	customerRepo *repository.CustomerRepository
	metrics      *metrics.Metrics
	logger       *zap.Logger

	fetchTimeout time.Duration
	fetchRetries uint64
	fetchBackoff time.Duration
	now          func() time.Time
}

func NewPipelineService(
	stages *StageService,
	dealRepo *repository.DealRepository,
	quoteRepo *repository.QuoteRepository,
	invoiceRepo *repository.InvoiceRepository,
	customerRepo *repository.CustomerRepository,
	m *metrics.Metrics,
	cfg *config.PipelineConfig,
	logger *zap.Logger,
) *PipelineService {
	s := &PipelineService{
		stages:       stages,
		dealRepo:     dealRepo,
		quoteRepo:    quoteRepo,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		metrics:      m,
		logger:       logger,
		fetchTimeout: cfg.FetchTimeoutDuration(),
		fetchRetries: cfg.FetchRetries,
		fetchBackoff: cfg.FetchBackoffDuration(),
		now:          time.Now,
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = 5 * time.Second
	}
	if s.fetchBackoff <= 0 {
		s.fetchBackoff = 100 * time.Millisecond
	}
	return s
}

// GetPipeline builds, filters and sorts the caller's pipeline. A collection
// that cannot be read is left out and named in the response warnings.
func (s *PipelineService) GetPipeline(ctx context.Context, q PipelineQuery) (*domain.PipelineViewDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	set, err := s.stages.StageSet(ctx)
	if err != nil {
		return nil, err
	}

	src, warnings := s.loadSources(ctx)

	items := pipeline.BuildItems(set, src)
	items = pipeline.FilterItems(items, pipeline.Filter{
		Search:     q.Search,
		Stage:      q.Stage,
		DateRange:  q.DateRange,
		ValueRange: q.ValueRange,
	}, s.now())
	if q.SortField != "" {
		direction := q.SortDirection
		if direction == "" {
			direction = pipeline.SortDesc
		}
		items = pipeline.SortItems(items, q.SortField, direction)
	}

	return &domain.PipelineViewDTO{
		Items:    items,
		Stats:    pipeline.ComputeStats(items, set),
		Stages:   set.Ordered(),
		Total:    len(items),
		Warnings: warnings,
	}, nil
}

// loadSources reads the four collections concurrently. Failures are
// logged, counted and reported; they never abort the other reads.
func (s *PipelineService) loadSources(ctx context.Context) (pipeline.Sources, []string) {
	var (
		src    pipeline.Sources
		failed [4]error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		src.Deals, failed[0] = fetchWithRetry(gctx, s, s.dealRepo.ListAll)
		return nil
	})
	g.Go(func() error {
		src.Quotes, failed[1] = fetchWithRetry(gctx, s, s.quoteRepo.ListAll)
		return nil
	})
	g.Go(func() error {
		src.Invoices, failed[2] = fetchWithRetry(gctx, s, s.invoiceRepo.ListAll)
		return nil
	})
	g.Go(func() error {
		src.Customers, failed[3] = fetchWithRetry(gctx, s, s.customerRepo.ListAll)
		return nil
	})
	_ = g.Wait()

	var warnings []string
	names := [4]string{collectionDeals, collectionQuotes, collectionInvoices, collectionCustomers}
	for i, err := range failed {
		if err == nil {
			continue
		}
		s.logger.Warn("pipeline collection unavailable, building view without it",
			zap.String("collection", names[i]),
			zap.Error(err))
		s.metrics.RecordPartialFailure(names[i])
		warnings = append(warnings, fmt.Sprintf("%s could not be loaded", names[i]))
	}
	return src, warnings
}

// fetchWithRetry runs one read under the per-read timeout, retrying with
// exponential backoff
func fetchWithRetry[T any](ctx context.Context, s *PipelineService, fetch func(context.Context) ([]T, error)) ([]T, error) {
	backoff := retry.WithMaxRetries(s.fetchRetries, retry.NewExponential(s.fetchBackoff))

	var rows []T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		readCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()

		result, err := fetch(readCtx)
		if err != nil {
			return retry.RetryableError(err)
		}
		rows = result
		return nil
	})
	return rows, err
}
