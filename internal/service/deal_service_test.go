package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	dbtest "github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type dealServiceFixture struct {
	db        *gorm.DB
	svc       *service.DealService
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	org       *domain.Organization
	customer  *domain.Customer
}

func setupDealService(t *testing.T) *dealServiceFixture {
	t.Helper()
	db := dbtest.SetupTestDB(t)
	pub := &recordingPublisher{}
	m := metrics.New("test")
	org := dbtest.CreateOrganization(t, db, "")

	svc := service.NewDealService(
		db,
		repository.NewDealRepository(db),
		repository.NewDealStageHistoryRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewQuoteRepository(db),
		newStageService(t, db, pub, m),
		pub,
		m,
		zap.NewNop(),
	)

	return &dealServiceFixture{
		db:        db,
		svc:       svc,
		publisher: pub,
		metrics:   m,
		org:       org,
		customer:  dbtest.CreateCustomer(t, db, org.ID, "Nordic Homes"),
	}
}

func (f *dealServiceFixture) history(t *testing.T, dealID uuid.UUID) []domain.DealStageHistory {
	t.Helper()
	var rows []domain.DealStageHistory
	require.NoError(t, f.db.Where("deal_id = ?", dealID).Order("changed_at ASC").Find(&rows).Error)
	return rows
}

func TestDealService_Create(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)

	t.Run("defaults", func(t *testing.T) {
		deal, err := f.svc.Create(ctx, &domain.CreateDealRequest{
			Title:      "Office refit",
			CustomerID: f.customer.ID,
			Value:      10000,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.DealStageLead, deal.Stage)
		assert.Equal(t, 10, deal.Probability)
		assert.Equal(t, 1000.0, deal.WeightedValue)
		assert.Equal(t, "USD", deal.Currency)
		assert.Equal(t, "other", deal.Source)
		assert.Equal(t, domain.RevenueTypeOneTime, deal.RevenueType)
		assert.Equal(t, "Nordic Homes", deal.CustomerName)
		assert.Equal(t, f.org.ID, deal.OrganizationID)

		history := f.history(t, deal.ID)
		require.Len(t, history, 1)
		assert.Nil(t, history[0].FromStage)
		assert.Equal(t, domain.DealStageLead, history[0].ToStage)
		assert.Equal(t, "Test User", history[0].ChangedByName)

		event := f.publisher.last()
		assert.Equal(t, domain.EventDealCreated, event.Type)
		assert.Equal(t, f.org.ID, event.OrganizationID)
		require.NotNil(t, event.DealID)
		assert.Equal(t, deal.ID, *event.DealID)
	})

	t.Run("explicit stage, probability and commission", func(t *testing.T) {
		probability := 40
		commission := 5.0
		deal, err := f.svc.Create(ctx, &domain.CreateDealRequest{
			CustomerID:           f.customer.ID,
			Stage:                domain.DealStageProposal,
			Probability:          &probability,
			Value:                2000,
			Currency:             "EUR",
			CommissionPercentage: &commission,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.DealStageProposal, deal.Stage)
		assert.Equal(t, 40, deal.Probability)
		assert.Equal(t, 800.0, deal.WeightedValue)
		assert.Equal(t, 100.0, deal.CommissionAmount)
		assert.Equal(t, "EUR", deal.Currency)
	})

	t.Run("unknown stage is rejected", func(t *testing.T) {
		_, err := f.svc.Create(ctx, &domain.CreateDealRequest{
			CustomerID: f.customer.ID,
			Stage:      "won_maybe",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.ErrorIs(t, err, pipeline.ErrUnknownStage)
	})

	t.Run("customer is required", func(t *testing.T) {
		_, err := f.svc.Create(ctx, &domain.CreateDealRequest{Title: "No customer"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("customer of another organization is rejected", func(t *testing.T) {
		other := dbtest.CreateOrganization(t, f.db, "")
		foreign := dbtest.CreateCustomer(t, f.db, other.ID, "Elsewhere Ltd")

		_, err := f.svc.Create(ctx, &domain.CreateDealRequest{CustomerID: foreign.ID})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("requires an organization", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), &domain.CreateDealRequest{CustomerID: f.customer.ID})
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestDealService_GetByID(t *testing.T) {
	f := setupDealService(t)
	deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Roof", domain.DealStageLead, 10, 5000)

	got, err := f.svc.GetByID(dbtest.OrgContext(f.org.ID), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roof", got.Title)
	assert.Equal(t, "Nordic Homes", got.CustomerName)

	other := dbtest.CreateOrganization(t, f.db, "")
	_, err = f.svc.GetByID(dbtest.OrgContext(other.ID), deal.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.GetByID(dbtest.OrgContext(f.org.ID), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDealService_MoveStage(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)

	t.Run("moves and records history", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Kitchen", domain.DealStageLead, 10, 1000)

		result, err := f.svc.MoveStage(ctx, domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
			FromStage: domain.DealStageLead,
			ToStage:   domain.DealStageQualified,
			Notes:     "Budget confirmed",
		})
		require.NoError(t, err)

		assert.Equal(t, domain.DealStageQualified, result.Deal.Stage)
		assert.Equal(t, 25, result.Deal.Probability)
		assert.Equal(t, 250.0, result.Deal.WeightedValue)
		assert.Equal(t, domain.DealStageQualified, result.Item.StageKey)
		assert.Equal(t, "Nordic Homes", result.Item.CustomerName)

		history := f.history(t, deal.ID)
		require.Len(t, history, 1)
		require.NotNil(t, history[0].FromStage)
		assert.Equal(t, domain.DealStageLead, *history[0].FromStage)
		assert.Equal(t, "Budget confirmed", history[0].Notes)

		event := f.publisher.last()
		assert.Equal(t, domain.EventDealStageMoved, event.Type)
		assert.Equal(t, domain.DealStageLead, event.FromStage)
		assert.Equal(t, domain.DealStageQualified, event.ToStage)
	})

	t.Run("terminal target stamps close date", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Deck", domain.DealStageNegotiation, 75, 1000)

		result, err := f.svc.MoveStage(ctx, domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
			FromStage: domain.DealStageNegotiation,
			ToStage:   domain.DealStageClosedWon,
		})
		require.NoError(t, err)
		assert.Equal(t, 100, result.Deal.Probability)
		assert.NotNil(t, result.Deal.ActualCloseDate)
	})

	t.Run("stale from stage conflicts", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Garage", domain.DealStageProposal, 50, 1000)

		_, err := f.svc.MoveStage(ctx, domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
			FromStage: domain.DealStageLead,
			ToStage:   domain.DealStageQualified,
		})
		assert.ErrorIs(t, err, service.ErrConflict)
		assert.ErrorIs(t, err, pipeline.ErrStageConflict)
		assert.Empty(t, f.history(t, deal.ID))
	})

	t.Run("closed deal must be reopened first", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Shed", domain.DealStageClosedLost, 0, 1000)

		_, err := f.svc.MoveStage(ctx, domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
			FromStage: domain.DealStageClosedLost,
			ToStage:   domain.DealStageLead,
		})
		assert.ErrorIs(t, err, service.ErrConflict)
		assert.ErrorIs(t, err, pipeline.ErrTerminalStage)
	})

	t.Run("unknown target stage", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Porch", domain.DealStageLead, 10, 1000)

		_, err := f.svc.MoveStage(ctx, domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
			FromStage: domain.DealStageLead,
			ToStage:   "underwriting",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("quotes and invoices cannot move", func(t *testing.T) {
		_, err := f.svc.MoveStage(ctx, domain.PipelineItemQuote, uuid.New(), &domain.MoveStageRequest{
			FromStage: domain.DealStageProposal,
			ToStage:   domain.DealStageNegotiation,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.ErrorIs(t, err, pipeline.ErrNotADeal)
	})

	t.Run("other organization's deal is not found", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Attic", domain.DealStageLead, 10, 1000)
		other := dbtest.CreateOrganization(t, f.db, "")

		_, err := f.svc.MoveStage(dbtest.OrgContext(other.ID), domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
			FromStage: domain.DealStageLead,
			ToStage:   domain.DealStageQualified,
		})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDealService_MoveStageUsesTenantStages(t *testing.T) {
	f := setupDealService(t)
	dbtest.CreateOrganizationStages(t, f.db, f.org.ID, []domain.PipelineStage{
		{Key: "application", Label: "Application", Order: 1, DefaultProbability: 20},
		{Key: "underwriting", Label: "Underwriting", Order: 2, DefaultProbability: 60},
		{Key: "funded", Label: "Funded", Order: 3, DefaultProbability: 100, IsTerminal: true},
	})
	deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Refinance", "application", 20, 300000)

	result, err := f.svc.MoveStage(dbtest.OrgContext(f.org.ID), domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
		FromStage: "application",
		ToStage:   "underwriting",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DealStage("underwriting"), result.Deal.Stage)
	assert.Equal(t, 60, result.Deal.Probability)
	assert.Equal(t, 180000.0, result.Deal.WeightedValue)
}

func TestDealService_WinRequiresClosingStage(t *testing.T) {
	f := setupDealService(t)
	dbtest.CreateOrganizationStages(t, f.db, f.org.ID, []domain.PipelineStage{
		{Key: "application", Label: "Application", Order: 1, DefaultProbability: 20},
		{Key: "funded", Label: "Funded", Order: 2, DefaultProbability: 100, IsTerminal: true},
	})
	deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Refinance", "application", 20, 300000)

	_, err := f.svc.Win(dbtest.OrgContext(f.org.ID), deal.ID)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.svc.Lose(dbtest.OrgContext(f.org.ID), deal.ID, "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestDealService_WinLoseReopen(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)

	t.Run("win", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Win me", domain.DealStageNegotiation, 75, 1000)

		won, err := f.svc.Win(ctx, deal.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DealStageClosedWon, won.Stage)
		assert.Equal(t, 100, won.Probability)
		assert.Equal(t, domain.FinalStatusSale, won.FinalStatus)
		assert.NotNil(t, won.ActualCloseDate)
		assert.Equal(t, domain.EventDealWon, f.publisher.last().Type)

		_, err = f.svc.Win(ctx, deal.ID)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("lose without a reason", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Quiet loss", domain.DealStageLead, 10, 1000)

		lost, err := f.svc.Lose(ctx, deal.ID, "   ")
		require.NoError(t, err)
		assert.Equal(t, domain.DealStageClosedLost, lost.Stage)
		assert.Empty(t, lost.LostReason)
	})

	t.Run("lose", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Lose me", domain.DealStageProposal, 50, 1000)

		_, err := f.svc.Lose(ctx, deal.ID, strings.Repeat("x", 501))
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		lost, err := f.svc.Lose(ctx, deal.ID, "Went with a competitor")
		require.NoError(t, err)
		assert.Equal(t, domain.DealStageClosedLost, lost.Stage)
		assert.Zero(t, lost.Probability)
		assert.Zero(t, lost.WeightedValue)
		assert.Equal(t, domain.FinalStatusNoSale, lost.FinalStatus)
		assert.Equal(t, "Went with a competitor", lost.LostReason)
	})

	t.Run("reopen", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Again", domain.DealStageProposal, 50, 1000)
		_, err := f.svc.Reopen(ctx, deal.ID)
		assert.ErrorIs(t, err, service.ErrConflict, "open deals cannot be reopened")

		_, err = f.svc.Lose(ctx, deal.ID, "Timing")
		require.NoError(t, err)

		reopened, err := f.svc.Reopen(ctx, deal.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DealStageLead, reopened.Stage)
		assert.Equal(t, 10, reopened.Probability)
		assert.Empty(t, reopened.FinalStatus)
		assert.Empty(t, reopened.LostReason)
		assert.Nil(t, reopened.ActualCloseDate)
		assert.Equal(t, domain.EventDealReopened, f.publisher.last().Type)

		assert.Len(t, f.history(t, deal.ID), 2)
	})
}

func TestDealService_Update(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)

	t.Run("field edits keep the stage", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Old title", domain.DealStageQualified, 25, 1000)
		title := "New title"
		value := 4000.0

		updated, err := f.svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{Title: &title, Value: &value})
		require.NoError(t, err)
		assert.Equal(t, "New title", updated.Title)
		assert.Equal(t, 1000.0, updated.WeightedValue)
		assert.Empty(t, f.history(t, deal.ID))
		assert.Equal(t, domain.EventDealUpdated, f.publisher.last().Type)
	})

	t.Run("stage change derives probability", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Stage", domain.DealStageLead, 10, 1000)
		stage := domain.DealStageNegotiation

		updated, err := f.svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{Stage: &stage})
		require.NoError(t, err)
		assert.Equal(t, 75, updated.Probability)
		assert.Len(t, f.history(t, deal.ID), 1)
		assert.Equal(t, domain.EventDealStageMoved, f.publisher.last().Type)
	})

	t.Run("explicit probability wins", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Override", domain.DealStageLead, 10, 1000)
		stage := domain.DealStageProposal
		probability := 65

		updated, err := f.svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{Stage: &stage, Probability: &probability})
		require.NoError(t, err)
		assert.Equal(t, 65, updated.Probability)
		assert.Equal(t, 650.0, updated.WeightedValue)
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Keep", domain.DealStageLead, 10, 1000)
		blank := "  "

		_, err := f.svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{Title: &blank})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("closed deal stage cannot be edited", func(t *testing.T) {
		deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Closed", domain.DealStageClosedWon, 100, 1000)
		stage := domain.DealStageLead

		_, err := f.svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{Stage: &stage})
		assert.ErrorIs(t, err, service.ErrConflict)
	})
}

func TestDealService_Delete(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)

	created, err := f.svc.Create(ctx, &domain.CreateDealRequest{CustomerID: f.customer.ID, Title: "Temporary"})
	require.NoError(t, err)
	require.Len(t, f.history(t, created.ID), 1)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	assert.Empty(t, f.history(t, created.ID))
	assert.Equal(t, domain.EventDealDeleted, f.publisher.last().Type)

	_, err = f.svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), service.ErrNotFound)
}

func TestDealService_List(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)
	for i := 0; i < 3; i++ {
		dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "Deal", domain.DealStageLead, 10, 100)
	}
	other := dbtest.CreateOrganization(t, f.db, "")
	otherCustomer := dbtest.CreateCustomer(t, f.db, other.ID, "Other")
	dbtest.CreateDeal(t, f.db, other.ID, otherCustomer.ID, "Hidden", domain.DealStageLead, 10, 100)

	page, err := f.svc.List(ctx, 0, 2, nil, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 2)

	page, err = f.svc.List(ctx, 1, 1000, nil, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, 200, page.PageSize)
}

func TestDealService_StageHistory(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)
	deal := dbtest.CreateDeal(t, f.db, f.org.ID, f.customer.ID, "History", domain.DealStageLead, 10, 100)

	_, err := f.svc.MoveStage(ctx, domain.PipelineItemDeal, deal.ID, &domain.MoveStageRequest{
		FromStage: domain.DealStageLead,
		ToStage:   domain.DealStageQualified,
	})
	require.NoError(t, err)

	history, err := f.svc.GetStageHistory(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.DealStageQualified, history[0].ToStage)

	other := dbtest.CreateOrganization(t, f.db, "")
	_, err = f.svc.GetStageHistory(dbtest.OrgContext(other.ID), deal.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDealService_ConvertQuote(t *testing.T) {
	f := setupDealService(t)
	ctx := dbtest.OrgContext(f.org.ID)
	quote := dbtest.CreateQuote(t, f.db, f.org.ID, &f.customer.ID, "Q-1001", domain.QuoteStatusSent, 12000)

	deal, err := f.svc.ConvertQuote(ctx, quote.ID, &domain.ConvertQuoteRequest{})
	require.NoError(t, err)

	assert.Equal(t, "Deal from Quote Q-1001", deal.Title)
	assert.Equal(t, domain.DealStageProposal, deal.Stage)
	assert.Equal(t, 50, deal.Probability)
	assert.Equal(t, 12000.0, deal.Value)
	assert.Equal(t, 6000.0, deal.WeightedValue)
	assert.Equal(t, "USD", deal.Currency)
	assert.Equal(t, "quote", deal.Source)
	require.NotNil(t, deal.QuoteID)
	assert.Equal(t, quote.ID, *deal.QuoteID)

	var stored domain.Quote
	require.NoError(t, f.db.First(&stored, "id = ?", quote.ID).Error)
	assert.Equal(t, domain.QuoteStatusConverted, stored.Status)
	assert.True(t, stored.ConvertedToDeal)
	require.NotNil(t, stored.DealID)
	assert.Equal(t, deal.ID, *stored.DealID)
	assert.NotNil(t, stored.ConvertedDealDate)

	event := f.publisher.last()
	assert.Equal(t, domain.EventQuoteConverted, event.Type)
	require.NotNil(t, event.QuoteID)
	assert.Equal(t, quote.ID, *event.QuoteID)

	_, err = f.svc.ConvertQuote(ctx, quote.ID, &domain.ConvertQuoteRequest{})
	assert.ErrorIs(t, err, service.ErrConflict)

	t.Run("title override", func(t *testing.T) {
		q := dbtest.CreateQuote(t, f.db, f.org.ID, &f.customer.ID, "Q-1002", domain.QuoteStatusDraft, 500)
		deal, err := f.svc.ConvertQuote(ctx, q.ID, &domain.ConvertQuoteRequest{Title: "Bathroom"})
		require.NoError(t, err)
		assert.Equal(t, "Bathroom", deal.Title)
	})

	t.Run("quote without customer", func(t *testing.T) {
		q := dbtest.CreateQuote(t, f.db, f.org.ID, nil, "Q-1003", domain.QuoteStatusDraft, 500)
		_, err := f.svc.ConvertQuote(ctx, q.ID, &domain.ConvertQuoteRequest{})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown quote", func(t *testing.T) {
		_, err := f.svc.ConvertQuote(ctx, uuid.New(), &domain.ConvertQuoteRequest{})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDealService_PublishFailureDoesNotFailMutation(t *testing.T) {
	f := setupDealService(t)
	f.publisher.err = assert.AnError

	deal, err := f.svc.Create(dbtest.OrgContext(f.org.ID), &domain.CreateDealRequest{CustomerID: f.customer.ID})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, deal.ID)

	assert.Equal(t, []domain.PipelineEventType{domain.EventDealCreated}, f.publisher.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventPublishFailures.WithLabelValues(string(domain.EventDealCreated))))
}
