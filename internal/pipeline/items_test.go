package pipeline_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func testSources() pipeline.Sources {
	acme := domain.Customer{BaseModel: domain.BaseModel{ID: uuid.New()}, Name: "Acme Corp", Email: "buyer@acme.test"}
	globex := domain.Customer{BaseModel: domain.BaseModel{ID: uuid.New()}, Name: "Globex", Email: "ap@globex.test"}
	missing := uuid.New()

	return pipeline.Sources{
		Customers: []domain.Customer{acme, globex},
		Deals: []domain.Deal{
			{
				BaseModel:   domain.BaseModel{ID: uuid.New(), CreatedAt: baseTime.Add(-5 * time.Hour)},
				CustomerID:  acme.ID,
				Title:       "Warehouse roof",
				Value:       1000,
				Stage:       domain.DealStageQualified,
				Probability: 30,
			},
			{
				BaseModel:  domain.BaseModel{ID: uuid.New(), CreatedAt: baseTime.Add(-1 * time.Hour)},
				CustomerID: missing,
				Value:      250,
				Stage:      "legacy_stage",
			},
		},
		Quotes: []domain.Quote{
			{BaseModel: domain.BaseModel{ID: uuid.New(), CreatedAt: baseTime.Add(-2 * time.Hour)}, CustomerID: &globex.ID,
				QuoteNumber: "Q-1001", Status: domain.QuoteStatusSent, TotalAmount: 4000},
			{BaseModel: domain.BaseModel{ID: uuid.New(), CreatedAt: baseTime.Add(-3 * time.Hour)}, CustomerID: &globex.ID,
				QuoteNumber: "Q-1002", Status: domain.QuoteStatusAccepted, TotalAmount: 9000},
		},
		Invoices: []domain.Invoice{
			{BaseModel: domain.BaseModel{ID: uuid.New(), CreatedAt: baseTime.Add(-4 * time.Hour)}, CustomerID: &acme.ID,
				InvoiceNumber: "INV-1", Status: domain.InvoiceStatusViewed, TotalAmount: 600},
			{BaseModel: domain.BaseModel{ID: uuid.New(), CreatedAt: baseTime}, CustomerID: &acme.ID,
				InvoiceNumber: "INV-2", Status: domain.InvoiceStatusPaid, TotalAmount: 1200},
			{BaseModel: domain.BaseModel{ID: uuid.New(), CreatedAt: baseTime.Add(-6 * time.Hour)},
				InvoiceNumber: "INV-3", Status: domain.InvoiceStatusCancelled, TotalAmount: 50},
		},
	}
}

func defaultSet() *pipeline.StageSet {
	return pipeline.NewStageSet(pipeline.DefaultStages(), pipeline.SourceDefault)
}

func TestBuildItems_Mapping(t *testing.T) {
	items := pipeline.BuildItems(defaultSet(), testSources())

	require.Len(t, items, 5)

	byNumber := map[string]domain.PipelineItem{}
	for _, item := range items {
		byNumber[item.DisplayNumber] = item
	}

	deal := byNumber["Warehouse roof"]
	assert.Equal(t, domain.PipelineItemDeal, deal.Kind)
	assert.Equal(t, domain.DealStageQualified, deal.StageKey)
	assert.Equal(t, 30, deal.Probability, "deals keep their own probability")
	assert.Equal(t, "Acme Corp", deal.CustomerName)
	assert.Equal(t, "open", deal.Status)

	untitled := byNumber["Untitled Deal"]
	assert.Equal(t, domain.DealStageLead, untitled.StageKey, "unknown stage maps to lead")
	assert.Equal(t, 10, untitled.Probability)
	assert.Equal(t, "Unknown", untitled.CustomerName)
	assert.Empty(t, untitled.CustomerEmail)

	quote := byNumber["Q-1001"]
	assert.Equal(t, domain.DealStageProposal, quote.StageKey)
	assert.Equal(t, 50, quote.Probability)
	assert.Equal(t, "Globex", quote.CustomerName)
	assert.NotContains(t, byNumber, "Q-1002", "accepted quotes are not in the pipeline")

	open := byNumber["INV-1"]
	assert.Equal(t, domain.DealStageNegotiation, open.StageKey)
	assert.Equal(t, 75, open.Probability)

	paid := byNumber["INV-2"]
	assert.Equal(t, domain.DealStageWon, paid.StageKey)
	assert.Equal(t, 100, paid.Probability)
	assert.NotContains(t, byNumber, "INV-3")
}

func TestBuildItems_NewestFirst(t *testing.T) {
	items := pipeline.BuildItems(defaultSet(), testSources())

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt))
	}
	assert.Equal(t, "INV-2", items[0].DisplayNumber)
}

func TestBuildItems_Idempotent(t *testing.T) {
	src := testSources()
	before := testSourcesSnapshot(src)

	first := pipeline.BuildItems(defaultSet(), src)
	second := pipeline.BuildItems(defaultSet(), src)

	assert.Empty(t, cmp.Diff(first, second))
	assert.Empty(t, cmp.Diff(before, testSourcesSnapshot(src)), "inputs must not be mutated")
}

func TestBuildItems_PartialSources(t *testing.T) {
	src := testSources()
	src.Customers = nil
	src.Quotes = nil

	items := pipeline.BuildItems(defaultSet(), src)

	require.Len(t, items, 4)
	for _, item := range items {
		assert.Equal(t, "Unknown", item.CustomerName)
		assert.NotEqual(t, domain.PipelineItemQuote, item.Kind)
	}
}

func TestBuildItems_UnknownStageWithoutLead(t *testing.T) {
	set := pipeline.NewStageSet(mortgageStages, pipeline.SourceIndustry)
	items := pipeline.BuildItems(set, pipeline.Sources{
		Deals: []domain.Deal{{BaseModel: domain.BaseModel{ID: uuid.New()}, Stage: ""}},
	})

	require.Len(t, items, 1)
	assert.Equal(t, domain.DealStage("application"), items[0].StageKey)
	assert.Equal(t, 20, items[0].Probability)
}

type sourcesSnapshot struct {
	Deals     []domain.Deal
	Quotes    []domain.Quote
	Invoices  []domain.Invoice
	Customers []domain.Customer
}

func testSourcesSnapshot(src pipeline.Sources) sourcesSnapshot {
	return sourcesSnapshot{
		Deals:     append([]domain.Deal(nil), src.Deals...),
		Quotes:    append([]domain.Quote(nil), src.Quotes...),
		Invoices:  append([]domain.Invoice(nil), src.Invoices...),
		Customers: append([]domain.Customer(nil), src.Customers...),
	}
}
