package mapper

import (
	"fmt"
	"time"

	"github.com/straye-as/pipeline-api/internal/domain"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

// ToDealDTO converts Deal to DealDTO
func ToDealDTO(deal *domain.Deal) domain.DealDTO {
	dto := domain.DealDTO{
		ID:                         deal.ID,
		Title:                      deal.Title,
		Description:                deal.Description,
		CustomerID:                 deal.CustomerID,
		OrganizationID:             deal.OrganizationID,
		QuoteID:                    deal.QuoteID,
		Stage:                      deal.Stage,
		Probability:                deal.Probability,
		Value:                      deal.Value,
		WeightedValue:              deal.WeightedValue,
		Currency:                   deal.Currency,
		ExpectedCloseDate:          formatDate(deal.ExpectedCloseDate),
		ActualCloseDate:            formatDate(deal.ActualCloseDate),
		AssignedTo:                 deal.AssignedTo,
		CreatedBy:                  deal.CreatedBy,
		Source:                     deal.Source,
		RevenueType:                deal.RevenueType,
		RecurringInterval:          deal.RecurringInterval,
		CommissionPercentage:       deal.CommissionPercentage,
		VolumeCommissionPercentage: deal.VolumeCommissionPercentage,
		CommissionAmount:           deal.CommissionAmount,
		VolumeCommissionAmount:     deal.VolumeCommissionAmount,
		FinalStatus:                deal.FinalStatus,
		LostReason:                 deal.LostReason,
		CreatedAt:                  deal.CreatedAt.Format(timestampLayout),
		UpdatedAt:                  deal.UpdatedAt.Format(timestampLayout),
	}

	if deal.Customer != nil {
		dto.CustomerName = deal.Customer.Name
	}

	return dto
}

// ToDealDTOs converts a slice of deals
func ToDealDTOs(deals []domain.Deal) []domain.DealDTO {
	dtos := make([]domain.DealDTO, len(deals))
	for i := range deals {
		dtos[i] = ToDealDTO(&deals[i])
	}
	return dtos
}

// ToDealStageHistoryDTO converts DealStageHistory to DealStageHistoryDTO
func ToDealStageHistoryDTO(history *domain.DealStageHistory) domain.DealStageHistoryDTO {
	return domain.DealStageHistoryDTO{
		ID:            history.ID,
		DealID:        history.DealID,
		FromStage:     history.FromStage,
		ToStage:       history.ToStage,
		ChangedByID:   history.ChangedByID,
		ChangedByName: history.ChangedByName,
		Notes:         history.Notes,
		ChangedAt:     history.ChangedAt.Format(timestampLayout),
	}
}

// ToOpportunityDTO converts Opportunity to OpportunityDTO
func ToOpportunityDTO(opp *domain.Opportunity) domain.OpportunityDTO {
	return domain.OpportunityDTO{
		ID:                opp.ID,
		Name:              opp.Name,
		Stage:             opp.Stage,
		Status:            opp.Status,
		Value:             opp.Value,
		LoanAmount:        opp.LoanAmount,
		BPS:               opp.BPS,
		SplitPercent:      opp.SplitPercent,
		ExpectedCloseDate: formatDate(opp.ExpectedCloseDate),
		CloseDate:         formatDate(opp.CloseDate),
		ExternalReference: opp.ExternalReference,
	}
}

// ApplyDealUpdate copies the set fields of an update request onto a deal.
// It reports whether the stage changed and whether a probability was given.
func ApplyDealUpdate(deal *domain.Deal, req *domain.UpdateDealRequest) (stageChanged, probabilityGiven bool) {
	if req.Title != nil {
		deal.Title = *req.Title
	}
	if req.Description != nil {
		deal.Description = *req.Description
	}
	if req.Stage != nil && *req.Stage != deal.Stage {
		deal.Stage = *req.Stage
		stageChanged = true
	}
	if req.Probability != nil {
		deal.Probability = *req.Probability
		probabilityGiven = true
	}
	if req.Value != nil {
		deal.Value = *req.Value
	}
	if req.Currency != nil {
		deal.Currency = *req.Currency
	}
	if req.ExpectedCloseDate != nil {
		deal.ExpectedCloseDate = req.ExpectedCloseDate
	}
	if req.AssignedTo != nil {
		deal.AssignedTo = *req.AssignedTo
	}
	if req.Source != nil {
		deal.Source = *req.Source
	}
	if req.RevenueType != nil {
		deal.RevenueType = *req.RevenueType
	}
	if req.RecurringInterval != nil {
		deal.RecurringInterval = req.RecurringInterval
	}
	if req.CommissionPercentage != nil {
		deal.CommissionPercentage = req.CommissionPercentage
	}
	if req.VolumeCommissionPercentage != nil {
		deal.VolumeCommissionPercentage = req.VolumeCommissionPercentage
	}
	return stageChanged, probabilityGiven
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// FormatError creates a formatted error message
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
