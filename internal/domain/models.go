package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns a fresh ID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// DealStage is a tenant-defined stage key. The constants below are the
// built-in default set; organizations may define their own keys.
type DealStage string

const (
	DealStageLead        DealStage = "lead"
	DealStageQualified   DealStage = "qualified"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageClosedWon   DealStage = "closed_won"
	DealStageClosedLost  DealStage = "closed_lost"

	// DealStageWon is the synthetic stage paid invoices are shown under
	DealStageWon DealStage = "won"
)

// RevenueType classifies how a deal's value is realized
type RevenueType string

const (
	RevenueTypeOneTime   RevenueType = "one_time"
	RevenueTypeRecurring RevenueType = "recurring"
)

// RecurringInterval is the billing cadence of a recurring deal
type RecurringInterval string

const (
	RecurringMonthly   RecurringInterval = "monthly"
	RecurringQuarterly RecurringInterval = "quarterly"
	RecurringAnnual    RecurringInterval = "annual"
)

// Final statuses written when a deal is closed
const (
	FinalStatusSale   = "Sale"
	FinalStatusNoSale = "No Sale"
)

// QuoteStatus represents the lifecycle status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusViewed    QuoteStatus = "viewed"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusDeclined  QuoteStatus = "declined"
	QuoteStatusExpired   QuoteStatus = "expired"
	QuoteStatusConverted QuoteStatus = "converted"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// DefaultIndustryTemplate is used when an organization has not declared a vertical
const DefaultIndustryTemplate = "general_business"

// Organization is the tenant boundary. Every other record belongs to exactly one.
type Organization struct {
	BaseModel
	Name             string `gorm:"type:varchar(200);not null"`
	IndustryTemplate string `gorm:"type:varchar(100);not null;default:'general_business';column:industry_template"`
}

// OrganizationPipelineStage is a tenant override of the stage set
type OrganizationPipelineStage struct {
	BaseModel
	OrganizationID     uuid.UUID `gorm:"type:uuid;not null;index;column:organization_id"`
	StageKey           string    `gorm:"type:varchar(50);not null;column:stage_key"`
	StageLabel         string    `gorm:"type:varchar(100);not null;column:stage_label"`
	StageOrder         int       `gorm:"not null;column:stage_order"`
	DefaultProbability int       `gorm:"not null;default:0;column:default_probability"`
	IsTerminal         bool      `gorm:"not null;default:false;column:is_terminal"`
	ColorBg            string    `gorm:"type:varchar(50);column:color_bg"`
	ColorText          string    `gorm:"type:varchar(50);column:color_text"`
	IsActive           bool      `gorm:"not null;default:true;column:is_active"`
}

// IndustryPipelineStage is one stage of an industry template
type IndustryPipelineStage struct {
	BaseModel
	IndustryTemplate   string `gorm:"type:varchar(100);not null;index;column:industry_template"`
	StageKey           string `gorm:"type:varchar(50);not null;column:stage_key"`
	StageLabel         string `gorm:"type:varchar(100);not null;column:stage_label"`
	StageOrder         int    `gorm:"not null;column:stage_order"`
	DefaultProbability int    `gorm:"not null;default:0;column:default_probability"`
	IsTerminal         bool   `gorm:"not null;default:false;column:is_terminal"`
	ColorBg            string `gorm:"type:varchar(50);column:color_bg"`
	ColorText          string `gorm:"type:varchar(50);column:color_text"`
}

type Customer struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index;column:organization_id"`
	Name           string    `gorm:"type:varchar(200);not null"`
	Email          string    `gorm:"type:varchar(255)"`
	Phone          string    `gorm:"type:varchar(50)"`
	Company        string    `gorm:"type:varchar(200)"`
}

type Quote struct {
	BaseModel
	OrganizationID    uuid.UUID   `gorm:"type:uuid;not null;index;column:organization_id"`
	CustomerID        *uuid.UUID  `gorm:"type:uuid;index;column:customer_id"`
	QuoteNumber       string      `gorm:"type:varchar(50);not null;column:quote_number"`
	Status            QuoteStatus `gorm:"type:varchar(50);not null;default:'draft'"`
	TotalAmount       float64     `gorm:"type:decimal(15,2);not null;default:0;column:total_amount"`
	Currency          string      `gorm:"type:varchar(3)"`
	DealID            *uuid.UUID  `gorm:"type:uuid;column:deal_id"`
	ConvertedToDeal   bool        `gorm:"not null;default:false;column:converted_to_deal"`
	ConvertedDealDate *time.Time  `gorm:"column:converted_deal_date"`
}

type Invoice struct {
	BaseModel
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index;column:organization_id"`
	CustomerID     *uuid.UUID    `gorm:"type:uuid;index;column:customer_id"`
	InvoiceNumber  string        `gorm:"type:varchar(50);not null;column:invoice_number"`
	Status         InvoiceStatus `gorm:"type:varchar(50);not null;default:'draft'"`
	TotalAmount    float64       `gorm:"type:decimal(15,2);not null;default:0;column:total_amount"`
	Currency       string        `gorm:"type:varchar(3)"`
	DueDate        *time.Time    `gorm:"type:date;column:due_date"`
	PaidAt         *time.Time    `gorm:"column:paid_at"`
}

// Deal is the persisted pipeline record
type Deal struct {
	BaseModel
	OrganizationID             uuid.UUID          `gorm:"type:uuid;not null;index;column:organization_id"`
	CustomerID                 uuid.UUID          `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer                   *Customer          `gorm:"foreignKey:CustomerID"`
	QuoteID                    *uuid.UUID         `gorm:"type:uuid;index;column:quote_id"`
	AssignedTo                 string             `gorm:"type:varchar(100);column:assigned_to"`
	CreatedBy                  string             `gorm:"type:varchar(100);column:created_by"`
	Title                      string             `gorm:"type:varchar(200);not null"`
	Description                string             `gorm:"type:text"`
	Value                      float64            `gorm:"type:decimal(15,2);not null;default:0"`
	Currency                   string             `gorm:"type:varchar(3);not null;default:'USD'"`
	Stage                      DealStage          `gorm:"type:varchar(50);not null;default:'lead'"`
	Probability                int                `gorm:"not null;default:0"`
	WeightedValue              float64            `gorm:"type:decimal(15,2);not null;default:0;column:weighted_value"`
	ExpectedCloseDate          *time.Time         `gorm:"type:date;column:expected_close_date"`
	ActualCloseDate            *time.Time         `gorm:"type:date;column:actual_close_date"`
	Source                     string             `gorm:"type:varchar(100);not null;default:'other'"`
	RevenueType                RevenueType        `gorm:"type:varchar(20);not null;default:'one_time';column:revenue_type"`
	RecurringInterval          *RecurringInterval `gorm:"type:varchar(20);column:recurring_interval"`
	CommissionPercentage       *float64           `gorm:"type:decimal(5,2);column:commission_percentage"`
	VolumeCommissionPercentage *float64           `gorm:"type:decimal(5,2);column:volume_commission_percentage"`
	CommissionAmount           float64            `gorm:"type:decimal(15,2);not null;default:0;column:commission_amount"`
	VolumeCommissionAmount     float64            `gorm:"type:decimal(15,2);not null;default:0;column:volume_commission_amount"`
	FinalStatus                string             `gorm:"type:varchar(50);column:final_status"`
	LostReason                 string             `gorm:"type:varchar(500);column:lost_reason"`
}

// BeforeSave keeps the derived money columns in step with value, probability and percentages
func (d *Deal) BeforeSave(tx *gorm.DB) error {
	d.ApplyDerivedValues()
	return nil
}

// ApplyDerivedValues recomputes weighted value and commission amounts.
// Probability is a percentage: weighted = value * probability / 100.
func (d *Deal) ApplyDerivedValues() {
	d.WeightedValue = d.Value * float64(d.Probability) / 100
	d.CommissionAmount = 0
	if d.CommissionPercentage != nil {
		d.CommissionAmount = d.Value * *d.CommissionPercentage / 100
	}
	d.VolumeCommissionAmount = 0
	if d.VolumeCommissionPercentage != nil {
		d.VolumeCommissionAmount = d.Value * *d.VolumeCommissionPercentage / 100
	}
}

// DealStageHistory tracks stage changes for audit purposes
type DealStageHistory struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DealID        uuid.UUID  `gorm:"type:uuid;not null;index;column:deal_id"`
	FromStage     *DealStage `gorm:"type:varchar(50);column:from_stage"`
	ToStage       DealStage  `gorm:"type:varchar(50);not null;column:to_stage"`
	ChangedByID   string     `gorm:"type:varchar(100);not null;column:changed_by_id"`
	ChangedByName string     `gorm:"type:varchar(200);column:changed_by_name"`
	Notes         string     `gorm:"type:text"`
	ChangedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;column:changed_at"`
}

// TableName overrides the default table name to match the migration
func (DealStageHistory) TableName() string {
	return "deal_stage_history"
}

func (h *DealStageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.ChangedAt.IsZero() {
		h.ChangedAt = time.Now().UTC()
	}
	return nil
}

// Opportunity is a mortgage-vertical loan record. Commission deals are
// derived from it and never stored.
type Opportunity struct {
	BaseModel
	OrganizationID    uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_opportunities_org_ref;column:organization_id"`
	CustomerID        *uuid.UUID `gorm:"type:uuid;index;column:customer_id"`
	ExternalReference *string    `gorm:"type:varchar(100);uniqueIndex:idx_opportunities_org_ref;column:external_reference"`
	Name              string     `gorm:"type:varchar(200);not null"`
	Stage             string     `gorm:"type:varchar(100)"`
	Status            string     `gorm:"type:varchar(100);index"`
	Value             float64    `gorm:"type:decimal(15,2);not null;default:0"`
	LoanAmount        *float64   `gorm:"type:decimal(15,2);column:loan_amount"`
	BPS               *float64   `gorm:"type:decimal(8,2);column:bps"`
	SplitPercent      *float64   `gorm:"type:decimal(5,2);column:split_percent"`
	ExpectedCloseDate *time.Time `gorm:"type:date;column:expected_close_date"`
	CloseDate         *time.Time `gorm:"type:date;column:close_date"`
	LastSyncedAt      *time.Time `gorm:"column:last_synced_at"`
}
