package service_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	dbtest "github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pipelineFixture struct {
	db      *gorm.DB
	svc     *service.PipelineService
	metrics *metrics.Metrics
	org     *domain.Organization
}

func setupPipelineService(t *testing.T) *pipelineFixture {
	t.Helper()
	db := dbtest.SetupTestDB(t)
	m := metrics.New("test")
	cfg := &config.PipelineConfig{FetchTimeout: 2, FetchRetries: 1, FetchBackoffMs: 1}

	svc := service.NewPipelineService(
		newStageService(t, db, &recordingPublisher{}, m),
		repository.NewDealRepository(db),
		repository.NewQuoteRepository(db),
		repository.NewInvoiceRepository(db),
		repository.NewCustomerRepository(db),
		m,
		cfg,
		zap.NewNop(),
	)

	org := dbtest.CreateOrganization(t, db, "")
	customer := dbtest.CreateCustomer(t, db, org.ID, "Fjord Bakery")
	dbtest.CreateDeal(t, db, org.ID, customer.ID, "Oven line", domain.DealStageLead, 10, 1000)
	dbtest.CreateQuote(t, db, org.ID, &customer.ID, "Q-2001", domain.QuoteStatusSent, 2000)
	dbtest.CreateQuote(t, db, org.ID, &customer.ID, "Q-2002", domain.QuoteStatusDeclined, 9000)
	dbtest.CreateInvoice(t, db, org.ID, &customer.ID, "INV-3001", domain.InvoiceStatusPaid, 500)
	dbtest.CreateInvoice(t, db, org.ID, nil, "INV-3002", domain.InvoiceStatusCancelled, 700)

	return &pipelineFixture{db: db, svc: svc, metrics: m, org: org}
}

func ignoreSQLOpener() goleak.Option {
	return goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")
}

func TestPipelineService_GetPipeline(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSQLOpener())

	f := setupPipelineService(t)

	view, err := f.svc.GetPipeline(dbtest.OrgContext(f.org.ID), service.PipelineQuery{})
	require.NoError(t, err)

	assert.Empty(t, view.Warnings)
	assert.Equal(t, 3, view.Total)
	require.Len(t, view.Items, 3)
	assert.Len(t, view.Stages, 6)
	assert.Equal(t, domain.DealStageLead, view.Stages[0].Key)

	assert.Equal(t, 3, view.Stats.ItemCount)
	assert.InDelta(t, 3500.0, view.Stats.TotalValue, 1e-9)
	assert.InDelta(t, 1600.0, view.Stats.WeightedValue, 1e-9)

	kinds := map[domain.PipelineItemKind]domain.PipelineItem{}
	for _, item := range view.Items {
		kinds[item.Kind] = item
		assert.Equal(t, "Fjord Bakery", item.CustomerName)
	}
	assert.Equal(t, domain.DealStageLead, kinds[domain.PipelineItemDeal].StageKey)
	assert.Equal(t, domain.DealStageProposal, kinds[domain.PipelineItemQuote].StageKey)
	assert.Equal(t, domain.DealStageWon, kinds[domain.PipelineItemInvoice].StageKey)
}

func TestPipelineService_FilterAndSort(t *testing.T) {
	f := setupPipelineService(t)
	ctx := dbtest.OrgContext(f.org.ID)

	view, err := f.svc.GetPipeline(ctx, service.PipelineQuery{
		SortField:     pipeline.SortByAmount,
		SortDirection: pipeline.SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 3)
	assert.Equal(t, 500.0, view.Items[0].Amount)
	assert.Equal(t, 2000.0, view.Items[2].Amount)

	view, err = f.svc.GetPipeline(ctx, service.PipelineQuery{Search: "q-2001"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, domain.PipelineItemQuote, view.Items[0].Kind)

	view, err = f.svc.GetPipeline(ctx, service.PipelineQuery{Stage: string(domain.DealStageLead)})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Stats.ItemCount)

	view, err = f.svc.GetPipeline(ctx, service.PipelineQuery{ValueRange: pipeline.ValueRange1KTo10K})
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestPipelineService_InvalidQuery(t *testing.T) {
	f := setupPipelineService(t)
	ctx := dbtest.OrgContext(f.org.ID)

	tests := []struct {
		name  string
		query service.PipelineQuery
	}{
		{"date range", service.PipelineQuery{DateRange: "yesterday"}},
		{"value range", service.PipelineQuery{ValueRange: "huge"}},
		{"sort field", service.PipelineQuery{SortField: "color"}},
		{"sort direction", service.PipelineQuery{SortField: pipeline.SortByDate, SortDirection: "sideways"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetPipeline(ctx, tt.query)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}
}

func TestPipelineService_PartialFailure(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSQLOpener())

	f := setupPipelineService(t)
	require.NoError(t, f.db.Migrator().DropTable(&domain.Quote{}))

	view, err := f.svc.GetPipeline(dbtest.OrgContext(f.org.ID), service.PipelineQuery{})
	require.NoError(t, err)

	assert.Equal(t, []string{"quotes could not be loaded"}, view.Warnings)
	assert.Equal(t, 2, view.Total)
	for _, item := range view.Items {
		assert.NotEqual(t, domain.PipelineItemQuote, item.Kind)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AggregationPartialFailures.WithLabelValues("quotes")))
}

func TestPipelineService_TenantIsolation(t *testing.T) {
	f := setupPipelineService(t)
	other := dbtest.CreateOrganization(t, f.db, "")

	view, err := f.svc.GetPipeline(dbtest.OrgContext(other.ID), service.PipelineQuery{})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Stats.TotalValue)

	_, err = f.svc.GetPipeline(context.Background(), service.PipelineQuery{})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}
