package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageColor holds the presentation classes for a stage badge
type StageColor struct {
	Bg   string `json:"bg"`
	Text string `json:"text"`
}

// DefaultStageColor is returned for stage keys the set does not know
var DefaultStageColor = StageColor{Bg: "bg-slate-100", Text: "text-slate-700"}

// PipelineStage is one resolved stage of a tenant's pipeline
type PipelineStage struct {
	Key                DealStage  `json:"key"`
	Label              string     `json:"label"`
	Order              int        `json:"order"`
	DefaultProbability int        `json:"defaultProbability"`
	IsTerminal         bool       `json:"isTerminal"`
	Color              StageColor `json:"color"`
}

// PipelineItemKind identifies the record type a pipeline item was built from
type PipelineItemKind string

const (
	PipelineItemDeal    PipelineItemKind = "deal"
	PipelineItemQuote   PipelineItemKind = "quote"
	PipelineItemInvoice PipelineItemKind = "invoice"
)

// PipelineItem is a unified, read-only view over a deal, quote or invoice
type PipelineItem struct {
	ID            uuid.UUID        `json:"id"`
	Kind          PipelineItemKind `json:"kind"`
	DisplayNumber string           `json:"displayNumber"`
	CustomerID    *uuid.UUID       `json:"customerId,omitempty"`
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
	Amount        float64          `json:"amount"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	StageKey      DealStage        `json:"stage"`
	Probability   int              `json:"probability"`
}

// StageBreakdown aggregates items sharing a stage key
type StageBreakdown struct {
	Stage    DealStage `json:"stage"`
	Count    int       `json:"count"`
	Value    float64   `json:"value"`
	Weighted float64   `json:"weighted"`
}

// PipelineStats summarizes a set of pipeline items
type PipelineStats struct {
	TotalValue    float64          `json:"totalValue"`
	WeightedValue float64          `json:"weightedValue"`
	ItemCount     int              `json:"itemCount"`
	ByStage       []StageBreakdown `json:"byStage"`
}

// CommissionDeal is derived from a qualifying opportunity. It is never persisted.
type CommissionDeal struct {
	ID              string     `json:"id"`
	OpportunityID   uuid.UUID  `json:"opportunityId"`
	ClientName      string     `json:"clientName"`
	LoanAmount      float64    `json:"loanAmount"`
	BPS             float64    `json:"bps"`
	SplitPercent    float64    `json:"splitPercent"`
	GrossCommission float64    `json:"grossCommission"`
	TakeHome        float64    `json:"takeHome"`
	CloseDate       *time.Time `json:"closeDate,omitempty"`
	Status          string     `json:"status"`
	Stage           string     `json:"stage,omitempty"`
	ExternalLoanID  *string    `json:"externalLoanId,omitempty"`
}

// MonthlyCommission is one calendar-month bucket of the summary series
type MonthlyCommission struct {
	Month string  `json:"month"`
	Gross float64 `json:"gross"`
	Net   float64 `json:"net"`
}

// FinancialSummary is the commission rollup for an organization
type FinancialSummary struct {
	TotalGrossCommission float64             `json:"totalGrossCommission"`
	TotalNetCommission   float64             `json:"totalNetCommission"`
	AverageCommission    float64             `json:"averageCommission"`
	TotalDeals           int                 `json:"totalDeals"`
	MonthlyData          []MonthlyCommission `json:"monthlyData"`
	RecentDeals          []CommissionDeal    `json:"recentDeals"`
	IsDemo               bool                `json:"isDemo"`
}

// PipelineEventType names a deal lifecycle event
type PipelineEventType string

const (
	EventDealCreated     PipelineEventType = "deal.created"
	EventDealUpdated     PipelineEventType = "deal.updated"
	EventDealStageMoved  PipelineEventType = "deal.stage_moved"
	EventDealWon         PipelineEventType = "deal.won"
	EventDealLost        PipelineEventType = "deal.lost"
	EventDealReopened    PipelineEventType = "deal.reopened"
	EventDealDeleted     PipelineEventType = "deal.deleted"
	EventQuoteConverted  PipelineEventType = "quote.converted"
	EventStagesRefreshed PipelineEventType = "stages.refreshed"
)

// PipelineEvent is published after a successful deal mutation
type PipelineEvent struct {
	Type           PipelineEventType `json:"type"`
	OrganizationID uuid.UUID         `json:"organizationId"`
	DealID         *uuid.UUID        `json:"dealId,omitempty"`
	QuoteID        *uuid.UUID        `json:"quoteId,omitempty"`
	FromStage      DealStage         `json:"fromStage,omitempty"`
	ToStage        DealStage         `json:"toStage,omitempty"`
	Value          float64           `json:"value,omitempty"`
	ActorID        string            `json:"actorId,omitempty"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

// FinancialSnapshot is a stored daily copy of an organization's summary
type FinancialSnapshot struct {
	OrganizationID uuid.UUID        `json:"organizationId"`
	Date           string           `json:"date"`
	GeneratedAt    time.Time        `json:"generatedAt"`
	Summary        FinancialSummary `json:"summary"`
}
