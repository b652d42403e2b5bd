package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/commission"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/storage"
	"go.uber.org/zap"
)

const snapshotDateLayout = "2006-01-02"

// FinancialService computes commission figures from the caller's opportunities
type FinancialService struct {
	opportunityRepo *repository.OpportunityRepository
	store           storage.Storage
	cfg             config.CommissionConfig
	logger          *zap.Logger
	now             func() time.Time
}

// NewFinancialService creates a financial service. store may be nil, in
// which case snapshots are unavailable.
func NewFinancialService(opportunityRepo *repository.OpportunityRepository, store storage.Storage, cfg *config.CommissionConfig, logger *zap.Logger) *FinancialService {
	return &FinancialService{
		opportunityRepo: opportunityRepo,
		store:           store,
		cfg:             *cfg,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *FinancialService) calculator(ctx context.Context) (*commission.Calculator, error) {
	opps, err := s.opportunityRepo.ListAll(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoOrganization) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load opportunities: %w", err)
	}

	calc := commission.NewCalculator(
		commission.WithDemoData(s.cfg.DemoData),
		commission.WithRecentLimit(s.cfg.RecentLimit),
	)
	calc.SetOpportunities(opps)
	return calc, nil
}

// GetSummary returns the commission rollup of the caller's organization
func (s *FinancialService) GetSummary(ctx context.Context) (*domain.FinancialSummary, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	summary := calc.Summary()
	return &summary, nil
}

// ListDeals returns every derived commission deal
func (s *FinancialService) ListDeals(ctx context.Context) ([]domain.CommissionDeal, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	return calc.Deals(), nil
}

// GetDeal returns the commission deal derived from one opportunity
func (s *FinancialService) GetDeal(ctx context.Context, opportunityID uuid.UUID) (*domain.CommissionDeal, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	deal, ok := calc.DealByOpportunityID(opportunityID)
	if !ok {
		return nil, fmt.Errorf("%w: no commission deal for opportunity %s", ErrNotFound, opportunityID)
	}
	return &deal, nil
}

// WriteSnapshot stores the caller's current summary under the given date
func (s *FinancialService) WriteSnapshot(ctx context.Context, date time.Time) (*domain.FinancialSnapshot, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: snapshot storage is not configured", ErrUnavailable)
	}
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.GetSummary(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.FinancialSnapshot{
		OrganizationID: orgID,
		Date:           date.Format(snapshotDateLayout),
		GeneratedAt:    s.now().UTC(),
		Summary:        *summary,
	}
	if err := storage.PutJSON(ctx, s.store, snapshotKey(orgID, snapshot.Date), snapshot); err != nil {
		return nil, fmt.Errorf("failed to write financial snapshot: %w", err)
	}

	s.logger.Info("financial snapshot written",
		zap.String("organization_id", orgID.String()),
		zap.String("date", snapshot.Date),
		zap.Int("deals", summary.TotalDeals))
	return snapshot, nil
}

// GetSnapshot reads the stored summary of the given yyyy-mm-dd date
func (s *FinancialService) GetSnapshot(ctx context.Context, date string) (*domain.FinancialSnapshot, error) {
	if _, err := time.Parse(snapshotDateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: snapshot storage is not configured", ErrUnavailable)
	}
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var snapshot domain.FinancialSnapshot
	if err := storage.GetJSON(ctx, s.store, snapshotKey(orgID, date), &snapshot); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: no snapshot for %s", ErrNotFound, date)
		}
		return nil, fmt.Errorf("failed to read financial snapshot: %w", err)
	}
	return &snapshot, nil
}

func snapshotKey(orgID uuid.UUID, date string) string {
	return fmt.Sprintf("financial-summaries/%s/%s.json", orgID, date)
}
