// Package testutil provides in-memory databases and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/database"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// A single connection is shared so concurrent readers see the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// OrgContext returns a context acting as a sales user of the organization
func OrgContext(orgID uuid.UUID) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:         uuid.New(),
		DisplayName:    "Test User",
		Email:          "test.user@example.com",
		Roles:          []domain.UserRoleType{domain.RoleSales},
		OrganizationID: orgID,
	})
}

// CreateOrganization inserts an organization on the given industry template
func CreateOrganization(t *testing.T, db *gorm.DB, template string) *domain.Organization {
	t.Helper()
	if template == "" {
		template = domain.DefaultIndustryTemplate
	}
	org := &domain.Organization{Name: "Org " + uuid.NewString()[:8], IndustryTemplate: template}
	require.NoError(t, db.Create(org).Error)
	return org
}

// CreateCustomer inserts a customer into an organization
func CreateCustomer(t *testing.T, db *gorm.DB, orgID uuid.UUID, name string) *domain.Customer {
	t.Helper()
	customer := &domain.Customer{
		OrganizationID: orgID,
		Name:           name,
		Email:          "contact@example.com",
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

// CreateDeal inserts a deal; derived values are filled by the model hooks
func CreateDeal(t *testing.T, db *gorm.DB, orgID, customerID uuid.UUID, title string, stage domain.DealStage, probability int, value float64) *domain.Deal {
	t.Helper()
	deal := &domain.Deal{
		OrganizationID: orgID,
		CustomerID:     customerID,
		Title:          title,
		Stage:          stage,
		Probability:    probability,
		Value:          value,
		Currency:       "USD",
		Source:         "other",
		RevenueType:    domain.RevenueTypeOneTime,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(deal).Error)
	return deal
}

// CreateQuote inserts a quote
func CreateQuote(t *testing.T, db *gorm.DB, orgID uuid.UUID, customerID *uuid.UUID, number string, status domain.QuoteStatus, total float64) *domain.Quote {
	t.Helper()
	quote := &domain.Quote{
		OrganizationID: orgID,
		CustomerID:     customerID,
		QuoteNumber:    number,
		Status:         status,
		TotalAmount:    total,
		Currency:       "EUR",
	}
	require.NoError(t, db.Create(quote).Error)
	return quote
}

// CreateInvoice inserts an invoice
func CreateInvoice(t *testing.T, db *gorm.DB, orgID uuid.UUID, customerID *uuid.UUID, number string, status domain.InvoiceStatus, total float64) *domain.Invoice {
	t.Helper()
	invoice := &domain.Invoice{
		OrganizationID: orgID,
		CustomerID:     customerID,
		InvoiceNumber:  number,
		Status:         status,
		TotalAmount:    total,
		Currency:       "USD",
	}
	require.NoError(t, db.Create(invoice).Error)
	return invoice
}

// CreateOpportunity inserts a loan opportunity
func CreateOpportunity(t *testing.T, db *gorm.DB, orgID uuid.UUID, name, status string, value float64, closeDate *time.Time) *domain.Opportunity {
	t.Helper()
	opp := &domain.Opportunity{
		OrganizationID: orgID,
		Name:           name,
		Status:         status,
		Value:          value,
		CloseDate:      closeDate,
	}
	require.NoError(t, db.Create(opp).Error)
	return opp
}

// CreateOrganizationStages inserts override stages for an organization
func CreateOrganizationStages(t *testing.T, db *gorm.DB, orgID uuid.UUID, stages []domain.PipelineStage) {
	t.Helper()
	for _, s := range stages {
		row := &domain.OrganizationPipelineStage{
			OrganizationID:     orgID,
			StageKey:           string(s.Key),
			StageLabel:         s.Label,
			StageOrder:         s.Order,
			DefaultProbability: s.DefaultProbability,
			IsTerminal:         s.IsTerminal,
			ColorBg:            s.Color.Bg,
			ColorText:          s.Color.Text,
			IsActive:           true,
		}
		require.NoError(t, db.Create(row).Error)
	}
}

// CreateIndustryStages inserts the stages of an industry template
func CreateIndustryStages(t *testing.T, db *gorm.DB, template string, stages []domain.PipelineStage) {
	t.Helper()
	for _, s := range stages {
		row := &domain.IndustryPipelineStage{
			IndustryTemplate:   template,
			StageKey:           string(s.Key),
			StageLabel:         s.Label,
			StageOrder:         s.Order,
			DefaultProbability: s.DefaultProbability,
			IsTerminal:         s.IsTerminal,
			ColorBg:            s.Color.Bg,
			ColorText:          s.Color.Text,
		}
		require.NoError(t, db.Create(row).Error)
	}
}
