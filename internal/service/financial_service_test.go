package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/commission"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/storage"
	dbtest "github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupFinancialService(t *testing.T, store storage.Storage, cfg config.CommissionConfig) (*gorm.DB, *service.FinancialService, *domain.Organization) {
	t.Helper()
	db := dbtest.SetupTestDB(t)
	org := dbtest.CreateOrganization(t, db, "mortgage")
	svc := service.NewFinancialService(repository.NewOpportunityRepository(db), store, &cfg, zap.NewNop())
	return db, svc, org
}

func closeOn(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestFinancialService_Summary(t *testing.T) {
	db, svc, org := setupFinancialService(t, nil, config.CommissionConfig{})
	dbtest.CreateOpportunity(t, db, org.ID, "Hansen", commission.StatusClearToClose, 200000, closeOn(2024, time.February, 3))
	dbtest.CreateOpportunity(t, db, org.ID, "Berg", commission.StatusComplianceCompleted, 400000, closeOn(2024, time.February, 20))
	dbtest.CreateOpportunity(t, db, org.ID, "Lie", "Application", 900000, nil)

	other := dbtest.CreateOrganization(t, db, "mortgage")
	dbtest.CreateOpportunity(t, db, other.ID, "Hidden", commission.StatusClearToClose, 1000000, nil)

	summary, err := svc.GetSummary(dbtest.OrgContext(org.ID))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalDeals)
	assert.InDelta(t, 3000.0, summary.TotalGrossCommission, 1e-9)
	assert.InDelta(t, 2550.0, summary.TotalNetCommission, 1e-9)
	assert.InDelta(t, 3000.0, summary.MonthlyData[1].Gross, 1e-9)
	assert.False(t, summary.IsDemo)
	require.Len(t, summary.RecentDeals, 2)
	assert.Equal(t, "Berg", summary.RecentDeals[0].ClientName)
}

func TestFinancialService_DemoData(t *testing.T) {
	_, svc, org := setupFinancialService(t, nil, config.CommissionConfig{DemoData: true})

	summary, err := svc.GetSummary(dbtest.OrgContext(org.ID))
	require.NoError(t, err)
	assert.True(t, summary.IsDemo)
	assert.Zero(t, summary.TotalDeals)
}

func TestFinancialService_Deals(t *testing.T) {
	db, svc, org := setupFinancialService(t, nil, config.CommissionConfig{})
	ctx := dbtest.OrgContext(org.ID)
	qualifying := dbtest.CreateOpportunity(t, db, org.ID, "Hansen", commission.StatusClearToClose, 100000, nil)
	pending := dbtest.CreateOpportunity(t, db, org.ID, "Lie", "Processing", 100000, nil)

	deals, err := svc.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, qualifying.ID, deals[0].OpportunityID)

	deal, err := svc.GetDeal(ctx, qualifying.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, deal.GrossCommission, 1e-9)
	assert.InDelta(t, 425.0, deal.TakeHome, 1e-9)

	_, err = svc.GetDeal(ctx, pending.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.GetDeal(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFinancialService_Snapshots(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	db, svc, org := setupFinancialService(t, store, config.CommissionConfig{})
	ctx := dbtest.OrgContext(org.ID)
	dbtest.CreateOpportunity(t, db, org.ID, "Hansen", commission.StatusClearToClose, 200000, closeOn(2024, time.May, 2))

	written, err := svc.WriteSnapshot(ctx, time.Date(2024, time.May, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-31", written.Date)
	assert.Equal(t, org.ID, written.OrganizationID)

	read, err := svc.GetSnapshot(ctx, "2024-05-31")
	require.NoError(t, err)
	assert.Equal(t, 1, read.Summary.TotalDeals)
	assert.InDelta(t, 1000.0, read.Summary.TotalGrossCommission, 1e-9)

	_, err = svc.GetSnapshot(ctx, "2024-06-01")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.GetSnapshot(ctx, "31/05/2024")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	other := dbtest.CreateOrganization(t, db, "mortgage")
	_, err = svc.GetSnapshot(dbtest.OrgContext(other.ID), "2024-05-31")
	assert.ErrorIs(t, err, service.ErrNotFound, "snapshots are stored per organization")
}

func TestFinancialService_SnapshotsWithoutStorage(t *testing.T) {
	_, svc, org := setupFinancialService(t, nil, config.CommissionConfig{})
	ctx := dbtest.OrgContext(org.ID)

	_, err := svc.WriteSnapshot(ctx, time.Now())
	assert.ErrorIs(t, err, service.ErrUnavailable)

	_, err = svc.GetSnapshot(ctx, "2024-05-31")
	assert.ErrorIs(t, err, service.ErrUnavailable)
}
