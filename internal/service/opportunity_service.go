package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/straye-as/pipeline-api/internal/datawarehouse"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
)

// LoanSource reads an organization's loan pipeline from an external system
type LoanSource interface {
	IsEnabled() bool
	FetchLoanPipeline(ctx context.Context, organizationID string) ([]datawarehouse.LoanRecord, error)
}

// OpportunityService imports mortgage opportunities from the loan warehouse
type OpportunityService struct {
	opportunityRepo *repository.OpportunityRepository
	loans           LoanSource
	logger          *zap.Logger
	now             func() time.Time
}

func NewOpportunityService(opportunityRepo *repository.OpportunityRepository, loans LoanSource, logger *zap.Logger) *OpportunityService {
	return &OpportunityService{
		opportunityRepo: opportunityRepo,
		loans:           loans,
		logger:          logger,
		now:             time.Now,
	}
}

// List returns the caller's opportunities, most recently closed first
func (s *OpportunityService) List(ctx context.Context) ([]domain.OpportunityDTO, error) {
	opps, err := s.opportunityRepo.ListAll(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoOrganization) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	dtos := make([]domain.OpportunityDTO, len(opps))
	for i := range opps {
		dtos[i] = mapper.ToOpportunityDTO(&opps[i])
	}
	return dtos, nil
}

// Sync pulls the caller's loan pipeline and upserts it as opportunities,
// keyed by loan id. It returns the number of rows written.
func (s *OpportunityService) Sync(ctx context.Context) (int64, error) {
	if s.loans == nil || !s.loans.IsEnabled() {
		return 0, fmt.Errorf("%w: loan warehouse is not configured", ErrUnavailable)
	}
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return 0, err
	}

	loans, err := s.loans.FetchLoanPipeline(ctx, orgID.String())
	if err != nil {
		return 0, fmt.Errorf("failed to fetch loan pipeline: %w", err)
	}

	syncedAt := s.now().UTC()
	opps := make([]domain.Opportunity, 0, len(loans))
	for _, loan := range loans {
		opps = append(opps, opportunityFromLoan(loan, syncedAt))
	}

	written, err := s.opportunityRepo.UpsertByExternalReference(ctx, opps)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert opportunities: %w", err)
	}

	s.logger.Info("opportunities synced",
		zap.String("organization_id", orgID.String()),
		zap.Int("loans", len(loans)),
		zap.Int64("rows_written", written))
	return written, nil
}

func opportunityFromLoan(loan datawarehouse.LoanRecord, syncedAt time.Time) domain.Opportunity {
	ref := loan.LoanID
	name := loan.BorrowerName
	if name == "" {
		name = "Loan " + loan.LoanID
	}
	opp := domain.Opportunity{
		ExternalReference: &ref,
		Name:              name,
		Stage:             loan.Stage,
		Status:            loan.Status,
		LoanAmount:        loan.LoanAmount,
		BPS:               loan.BPS,
		SplitPercent:      loan.SplitPercent,
		ExpectedCloseDate: loan.ExpectedCloseDate,
		CloseDate:         loan.CloseDate,
		LastSyncedAt:      &syncedAt,
	}
	if loan.LoanAmount != nil {
		opp.Value = *loan.LoanAmount
	}
	return opp
}
