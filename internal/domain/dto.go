package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type DealDTO struct {
	ID                         uuid.UUID          `json:"id"`
	Title                      string             `json:"title"`
	Description                string             `json:"description,omitempty"`
	CustomerID                 uuid.UUID          `json:"customerId"`
	CustomerName               string             `json:"customerName,omitempty"`
	OrganizationID             uuid.UUID          `json:"organizationId"`
	QuoteID                    *uuid.UUID         `json:"quoteId,omitempty"`
	Stage                      DealStage          `json:"stage"`
	Probability                int                `json:"probability"`
	Value                      float64            `json:"value"`
	WeightedValue              float64            `json:"weightedValue"`
	Currency                   string             `json:"currency"`
	ExpectedCloseDate          *string            `json:"expectedCloseDate,omitempty"`
	ActualCloseDate            *string            `json:"actualCloseDate,omitempty"`
	AssignedTo                 string             `json:"assignedTo,omitempty"`
	CreatedBy                  string             `json:"createdBy,omitempty"`
	Source                     string             `json:"source"`
	RevenueType                RevenueType        `json:"revenueType"`
	RecurringInterval          *RecurringInterval `json:"recurringInterval,omitempty"`
	CommissionPercentage       *float64           `json:"commissionPercentage,omitempty"`
	VolumeCommissionPercentage *float64           `json:"volumeCommissionPercentage,omitempty"`
	CommissionAmount           float64            `json:"commissionAmount"`
	VolumeCommissionAmount     float64            `json:"volumeCommissionAmount"`
	FinalStatus                string             `json:"finalStatus,omitempty"`
	LostReason                 string             `json:"lostReason,omitempty"`
	CreatedAt                  string             `json:"createdAt"` // ISO 8601
	UpdatedAt                  string             `json:"updatedAt"` // ISO 8601
}

type DealStageHistoryDTO struct {
	ID            uuid.UUID  `json:"id"`
	DealID        uuid.UUID  `json:"dealId"`
	FromStage     *DealStage `json:"fromStage,omitempty"`
	ToStage       DealStage  `json:"toStage"`
	ChangedByID   string     `json:"changedById"`
	ChangedByName string     `json:"changedByName,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	ChangedAt     string     `json:"changedAt"`
}

type OpportunityDTO struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Stage             string    `json:"stage,omitempty"`
	Status            string    `json:"status,omitempty"`
	Value             float64   `json:"value"`
	LoanAmount        *float64  `json:"loanAmount,omitempty"`
	BPS               *float64  `json:"bps,omitempty"`
	SplitPercent      *float64  `json:"splitPercent,omitempty"`
	ExpectedCloseDate *string   `json:"expectedCloseDate,omitempty"`
	CloseDate         *string   `json:"closeDate,omitempty"`
	ExternalReference *string   `json:"externalReference,omitempty"`
}

// PipelineViewDTO is the filtered, sorted board with its statistics
type PipelineViewDTO struct {
	Items    []PipelineItem  `json:"items"`
	Stats    PipelineStats   `json:"stats"`
	Stages   []PipelineStage `json:"stages"`
	Total    int             `json:"total"`
	Warnings []string        `json:"warnings,omitempty"`
}

// StageMoveResultDTO is returned after a successful stage transition
type StageMoveResultDTO struct {
	Deal DealDTO      `json:"deal"`
	Item PipelineItem `json:"item"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// API Response wrapper
type APIResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

// Request DTOs

type CreateDealRequest struct {
	Title                      string             `json:"title,omitempty" validate:"max=200"`
	Description                string             `json:"description,omitempty"`
	CustomerID                 uuid.UUID          `json:"customerId" validate:"required"`
	Stage                      DealStage          `json:"stage,omitempty" validate:"max=50"`
	Probability                *int               `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	Value                      float64            `json:"value,omitempty" validate:"gte=0"`
	Currency                   string             `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExpectedCloseDate          *time.Time         `json:"expectedCloseDate,omitempty"`
	AssignedTo                 string             `json:"assignedTo,omitempty" validate:"max=100"`
	Source                     string             `json:"source,omitempty" validate:"max=100"`
	RevenueType                RevenueType        `json:"revenueType,omitempty" validate:"omitempty,oneof=one_time recurring"`
	RecurringInterval          *RecurringInterval `json:"recurringInterval,omitempty" validate:"omitempty,oneof=monthly quarterly annual"`
	CommissionPercentage       *float64           `json:"commissionPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	VolumeCommissionPercentage *float64           `json:"volumeCommissionPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	QuoteID                    *uuid.UUID         `json:"quoteId,omitempty"`
}

// UpdateDealRequest carries partial edits; nil fields are left unchanged
type UpdateDealRequest struct {
	Title                      *string            `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description                *string            `json:"description,omitempty"`
	Stage                      *DealStage         `json:"stage,omitempty" validate:"omitempty,max=50"`
	Probability                *int               `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	Value                      *float64           `json:"value,omitempty" validate:"omitempty,gte=0"`
	Currency                   *string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExpectedCloseDate          *time.Time         `json:"expectedCloseDate,omitempty"`
	AssignedTo                 *string            `json:"assignedTo,omitempty" validate:"omitempty,max=100"`
	Source                     *string            `json:"source,omitempty" validate:"omitempty,max=100"`
	RevenueType                *RevenueType       `json:"revenueType,omitempty" validate:"omitempty,oneof=one_time recurring"`
	RecurringInterval          *RecurringInterval `json:"recurringInterval,omitempty" validate:"omitempty,oneof=monthly quarterly annual"`
	CommissionPercentage       *float64           `json:"commissionPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	VolumeCommissionPercentage *float64           `json:"volumeCommissionPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// MoveStageRequest describes a drag of a pipeline item from one column to another
type MoveStageRequest struct {
	FromStage DealStage `json:"fromStage" validate:"required,max=50"`
	ToStage   DealStage `json:"toStage" validate:"required,max=50"`
	Notes     string    `json:"notes,omitempty" validate:"max=1000"`
}

// LoseDealRequest carries an optional reason a deal was lost
type LoseDealRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500" example:"Lost to competitor on price"`
}

// ConvertQuoteRequest overrides fields of the deal created from a quote
type ConvertQuoteRequest struct {
	Title             string     `json:"title,omitempty" validate:"max=200"`
	Description       string     `json:"description,omitempty"`
	AssignedTo        string     `json:"assignedTo,omitempty" validate:"max=100"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
}
