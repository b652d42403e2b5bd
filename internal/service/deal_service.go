package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/events"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultCurrency   = "USD"
	defaultDealSource = "other"
	quoteDealSource   = "quote"

	convertedQuoteProbability = 50
	maxLostReasonLength       = 500

	defaultPageSize = 20
	maxPageSize     = 200
)

type DealService struct {
	db           *gorm.DB
	dealRepo     *repository.DealRepository
	historyRepo  *repository.DealStageHistoryRepository
	customerRepo *repository.CustomerRepository
	quoteRepo    *repository.QuoteRepository
	stages       *StageService
	notifier     eventNotifier
	logger       *zap.Logger
	now          func() time.Time
}

func NewDealService(
	db *gorm.DB,
	dealRepo *repository.DealRepository,
	historyRepo *repository.DealStageHistoryRepository,
	customerRepo *repository.CustomerRepository,
	quoteRepo *repository.QuoteRepository,
	stages *StageService,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DealService {
	return &DealService{
		db:           db,
		dealRepo:     dealRepo,
		historyRepo:  historyRepo,
		customerRepo: customerRepo,
		quoteRepo:    quoteRepo,
		stages:       stages,
		notifier:     eventNotifier{publisher: publisher, metrics: m, logger: logger},
		logger:       logger,
		now:          time.Now,
	}
}

// Create adds a deal in the caller's organization. Stage defaults to the
// first open stage and probability to the stage default unless given.
func (s *DealService) Create(ctx context.Context, req *domain.CreateDealRequest) (*domain.DealDTO, error) {
	if req.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customerId is required", ErrInvalidInput)
	}
	if _, err := organizationFromContext(ctx); err != nil {
		return nil, err
	}

	set, err := s.stages.StageSet(ctx)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: customer not found", ErrInvalidInput)
		}
		return nil, notFoundOr(err, "customer")
	}

	stage := set.FirstOpen()
	if req.Stage != "" {
		st, ok := set.Stage(req.Stage)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidInput, pipeline.ErrUnknownStage, req.Stage)
		}
		stage = st
	}

	actorID, actorName := actorFromContext(ctx)
	deal := &domain.Deal{
		CustomerID:                 req.CustomerID,
		QuoteID:                    req.QuoteID,
		Title:                      strings.TrimSpace(req.Title),
		Description:                req.Description,
		Value:                      req.Value,
		Currency:                   req.Currency,
		Stage:                      stage.Key,
		Probability:                stage.DefaultProbability,
		ExpectedCloseDate:          req.ExpectedCloseDate,
		AssignedTo:                 req.AssignedTo,
		CreatedBy:                  actorID,
		Source:                     req.Source,
		RevenueType:                req.RevenueType,
		RecurringInterval:          req.RecurringInterval,
		CommissionPercentage:       req.CommissionPercentage,
		VolumeCommissionPercentage: req.VolumeCommissionPercentage,
	}
	if req.Probability != nil {
		deal.Probability = *req.Probability
	}
	if deal.Currency == "" {
		deal.Currency = defaultCurrency
	}
	if deal.Source == "" {
		deal.Source = defaultDealSource
	}
	if deal.RevenueType == "" {
		deal.RevenueType = domain.RevenueTypeOneTime
	}
	if stage.IsTerminal {
		closed := s.today()
		deal.ActualCloseDate = &closed
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).Create(ctx, deal); err != nil {
			return fmt.Errorf("failed to create deal: %w", err)
		}
		return s.historyRepo.WithTx(tx).RecordTransition(ctx, deal.ID, nil, deal.Stage, actorID, actorName, "Deal created")
	})
	if err != nil {
		return nil, err
	}

	deal.Customer = customer
	s.logger.Info("deal created",
		zap.String("deal_id", deal.ID.String()),
		zap.String("organization_id", deal.OrganizationID.String()),
		zap.String("stage", string(deal.Stage)))
	s.notifier.notify(ctx, dealEvent(domain.EventDealCreated, deal, ""))

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// GetByID returns a deal of the caller's organization
func (s *DealService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "deal")
	}
	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// Update applies field edits. A stage change follows the same rules as a
// pipeline move; an explicit probability wins over the stage default.
func (s *DealService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDealRequest) (*domain.DealDTO, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be blank", ErrInvalidInput)
	}

	current, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "deal")
	}
	set, err := s.stages.StageSet(ctx)
	if err != nil {
		return nil, err
	}

	updated := *current
	stageChanged, probabilityGiven := mapper.ApplyDealUpdate(&updated, req)
	if stageChanged {
		target := updated.Stage
		updated.Stage = current.Stage
		updated, err = pipeline.MoveStage(dealItem(current), updated, pipeline.Transition{From: current.Stage, To: target}, set, s.now())
		if err != nil {
			return nil, classifyTransitionError(err)
		}
		if probabilityGiven {
			updated.Probability = *req.Probability
		}
	}
	updated.ApplyDerivedValues()

	actorID, actorName := actorFromContext(ctx)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).Update(ctx, &updated); err != nil {
			return notFoundOr(err, "deal")
		}
		if !stageChanged {
			return nil
		}
		from := current.Stage
		return s.historyRepo.WithTx(tx).RecordTransition(ctx, updated.ID, &from, updated.Stage, actorID, actorName, "")
	})
	if err != nil {
		return nil, err
	}

	if stageChanged {
		s.notifier.notify(ctx, dealEvent(domain.EventDealStageMoved, &updated, current.Stage))
	} else {
		s.notifier.notify(ctx, dealEvent(domain.EventDealUpdated, &updated, ""))
	}

	dto := mapper.ToDealDTO(&updated)
	return &dto, nil
}

// Delete removes a deal together with its stage history
func (s *DealService) Delete(ctx context.Context, id uuid.UUID) error {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "deal")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.historyRepo.WithTx(tx).DeleteByDealID(ctx, id); err != nil {
			return fmt.Errorf("failed to delete stage history: %w", err)
		}
		if err := s.dealRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return notFoundOr(err, "deal")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("deal deleted", zap.String("deal_id", id.String()))
	s.notifier.notify(ctx, dealEvent(domain.EventDealDeleted, deal, ""))
	return nil
}

// List returns one page of deals
func (s *DealService) List(ctx context.Context, page, pageSize int, filters *repository.DealFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	deals, total, err := s.dealRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		if errors.Is(err, repository.ErrNoOrganization) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &domain.PaginatedResponse{
		Data:       mapper.ToDealDTOs(deals),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// MoveStage moves a pipeline item to another stage. Only deal items can
// move; the caller's fromStage must match the stored stage.
func (s *DealService) MoveStage(ctx context.Context, kind domain.PipelineItemKind, id uuid.UUID, req *domain.MoveStageRequest) (*domain.StageMoveResultDTO, error) {
	if kind != domain.PipelineItemDeal {
		return nil, classifyTransitionError(fmt.Errorf("%w: item kind %s", pipeline.ErrNotADeal, kind))
	}

	current, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "deal")
	}
	set, err := s.stages.StageSet(ctx)
	if err != nil {
		return nil, err
	}

	moved, err := pipeline.MoveStage(dealItem(current), *current, pipeline.Transition{From: req.FromStage, To: req.ToStage}, set, s.now())
	if err != nil {
		return nil, classifyTransitionError(err)
	}

	if err := s.persistTransition(ctx, current.Stage, &moved, req.Notes); err != nil {
		return nil, err
	}

	s.logger.Info("deal stage moved",
		zap.String("deal_id", moved.ID.String()),
		zap.String("from_stage", string(current.Stage)),
		zap.String("to_stage", string(moved.Stage)))
	s.notifier.notify(ctx, dealEvent(domain.EventDealStageMoved, &moved, current.Stage))

	return &domain.StageMoveResultDTO{
		Deal: mapper.ToDealDTO(&moved),
		Item: s.itemFor(set, &moved),
	}, nil
}

// Win closes an open deal as won
func (s *DealService) Win(ctx context.Context, id uuid.UUID) (*domain.DealDTO, error) {
	return s.close(ctx, id, domain.EventDealWon, "Deal won", func(d domain.Deal, set *pipeline.StageSet) (domain.Deal, error) {
		return pipeline.CloseWon(d, set, s.now())
	})
}

// Lose closes an open deal as lost. The reason is optional.
func (s *DealService) Lose(ctx context.Context, id uuid.UUID, reason string) (*domain.DealDTO, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxLostReasonLength {
		return nil, fmt.Errorf("%w: lost reason exceeds %d characters", ErrInvalidInput, maxLostReasonLength)
	}
	notes := reason
	if notes == "" {
		notes = "Deal lost"
	}
	return s.close(ctx, id, domain.EventDealLost, notes, func(d domain.Deal, set *pipeline.StageSet) (domain.Deal, error) {
		return pipeline.CloseLost(d, reason, set, s.now())
	})
}

// Reopen returns a closed deal to the first open stage
func (s *DealService) Reopen(ctx context.Context, id uuid.UUID) (*domain.DealDTO, error) {
	return s.close(ctx, id, domain.EventDealReopened, "Deal reopened", pipeline.Reopen)
}

func (s *DealService) close(
	ctx context.Context,
	id uuid.UUID,
	eventType domain.PipelineEventType,
	notes string,
	apply func(domain.Deal, *pipeline.StageSet) (domain.Deal, error),
) (*domain.DealDTO, error) {
	current, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "deal")
	}
	set, err := s.stages.StageSet(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := apply(*current, set)
	if err != nil {
		return nil, classifyTransitionError(err)
	}

	if err := s.persistTransition(ctx, current.Stage, &updated, notes); err != nil {
		return nil, err
	}

	s.notifier.notify(ctx, dealEvent(eventType, &updated, current.Stage))

	dto := mapper.ToDealDTO(&updated)
	return &dto, nil
}

// persistTransition saves the deal and its history row in one transaction
func (s *DealService) persistTransition(ctx context.Context, from domain.DealStage, deal *domain.Deal, notes string) error {
	actorID, actorName := actorFromContext(ctx)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).Update(ctx, deal); err != nil {
			return notFoundOr(err, "deal")
		}
		return s.historyRepo.WithTx(tx).RecordTransition(ctx, deal.ID, &from, deal.Stage, actorID, actorName, notes)
	})
}

// GetStageHistory returns the stage changes of a deal, newest first
func (s *DealService) GetStageHistory(ctx context.Context, id uuid.UUID) ([]domain.DealStageHistoryDTO, error) {
	// History rows carry no organization; the deal lookup scopes the read
	if _, err := s.dealRepo.GetByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "deal")
	}

	history, err := s.historyRepo.GetByDealID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage history: %w", err)
	}

	dtos := make([]domain.DealStageHistoryDTO, len(history))
	for i := range history {
		dtos[i] = mapper.ToDealStageHistoryDTO(&history[i])
	}
	return dtos, nil
}

// ConvertQuote creates a deal in the proposal stage from a quote and marks
// the quote converted
func (s *DealService) ConvertQuote(ctx context.Context, quoteID uuid.UUID, req *domain.ConvertQuoteRequest) (*domain.DealDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, notFoundOr(err, "quote")
	}
	if quote.ConvertedToDeal || quote.Status == domain.QuoteStatusConverted {
		return nil, fmt.Errorf("%w: quote %s was already converted", ErrConflict, quote.QuoteNumber)
	}
	if quote.CustomerID == nil {
		return nil, fmt.Errorf("%w: quote %s has no customer", ErrInvalidInput, quote.QuoteNumber)
	}

	customer, err := s.customerRepo.GetByID(ctx, *quote.CustomerID)
	if err != nil {
		return nil, notFoundOr(err, "customer")
	}

	actorID, actorName := actorFromContext(ctx)
	qid := quote.ID
	deal := &domain.Deal{
		CustomerID:        *quote.CustomerID,
		QuoteID:           &qid,
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		Value:             quote.TotalAmount,
		Currency:          quote.Currency,
		Stage:             domain.DealStageProposal,
		Probability:       convertedQuoteProbability,
		ExpectedCloseDate: req.ExpectedCloseDate,
		AssignedTo:        req.AssignedTo,
		CreatedBy:         actorID,
		Source:            quoteDealSource,
		RevenueType:       domain.RevenueTypeOneTime,
	}
	if deal.Title == "" {
		deal.Title = "Deal from Quote " + quote.QuoteNumber
	}
	if deal.Currency == "" {
		deal.Currency = defaultCurrency
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.dealRepo.WithTx(tx).Create(ctx, deal); err != nil {
			return fmt.Errorf("failed to create deal: %w", err)
		}
		notes := "Converted from quote " + quote.QuoteNumber
		if err := s.historyRepo.WithTx(tx).RecordTransition(ctx, deal.ID, nil, deal.Stage, actorID, actorName, notes); err != nil {
			return err
		}
		if err := s.quoteRepo.WithTx(tx).MarkConverted(ctx, quote, deal.ID, now); err != nil {
			return notFoundOr(err, "quote")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deal.Customer = customer
	s.logger.Info("quote converted to deal",
		zap.String("quote_id", quote.ID.String()),
		zap.String("deal_id", deal.ID.String()))
	s.notifier.notify(ctx, dealEvent(domain.EventQuoteConverted, deal, ""))

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// itemFor projects a single deal the way the pipeline view shows it
func (s *DealService) itemFor(set *pipeline.StageSet, deal *domain.Deal) domain.PipelineItem {
	src := pipeline.Sources{Deals: []domain.Deal{*deal}}
	if deal.Customer != nil {
		src.Customers = []domain.Customer{*deal.Customer}
	}
	return pipeline.BuildItems(set, src)[0]
}

func (s *DealService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.now().Location())
}

func dealItem(deal *domain.Deal) domain.PipelineItem {
	return domain.PipelineItem{
		ID:       deal.ID,
		Kind:     domain.PipelineItemDeal,
		StageKey: deal.Stage,
	}
}
