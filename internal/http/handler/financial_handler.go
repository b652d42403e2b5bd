package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type FinancialHandler struct {
	financialService   *service.FinancialService
	opportunityService *service.OpportunityService
	logger             *zap.Logger
}

func NewFinancialHandler(financialService *service.FinancialService, opportunityService *service.OpportunityService, logger *zap.Logger) *FinancialHandler {
	return &FinancialHandler{
		financialService:   financialService,
		opportunityService: opportunityService,
		logger:             logger,
	}
}

// @Summary Commission summary
// @Description Gross and net commission totals with a twelve month series and the most recent deals
// @Tags Financials
// @Produce json
// @Success 200 {object} domain.FinancialSummary
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /financials/summary [get]
func (h *FinancialHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.financialService.GetSummary(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "compute financial summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// @Summary Commission deals
// @Description Commission deals derived from qualifying opportunities
// @Tags Financials
// @Produce json
// @Success 200 {array} domain.CommissionDeal
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /financials/deals [get]
func (h *FinancialHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.financialService.ListDeals(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list commission deals")
		return
	}
	respondJSON(w, http.StatusOK, deals)
}

// @Summary Commission deal
// @Description The commission deal derived from one opportunity
// @Tags Financials
// @Produce json
// @Param opportunityId path string true "Opportunity ID"
// @Success 200 {object} domain.CommissionDeal
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /financials/deals/{opportunityId} [get]
func (h *FinancialHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "opportunityId", "opportunity ID")
	if !ok {
		return
	}

	deal, err := h.financialService.GetDeal(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get commission deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Stored financial snapshot
// @Tags Financials
// @Produce json
// @Param date path string true "Snapshot date (YYYY-MM-DD)"
// @Success 200 {object} domain.FinancialSnapshot
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /financials/snapshots/{date} [get]
func (h *FinancialHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.financialService.GetSnapshot(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		respondServiceError(w, h.logger, err, "read financial snapshot")
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// @Summary List opportunities
// @Tags Financials
// @Produce json
// @Success 200 {array} domain.OpportunityDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /financials/opportunities [get]
func (h *FinancialHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opps, err := h.opportunityService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list opportunities")
		return
	}
	respondJSON(w, http.StatusOK, opps)
}

// @Summary Import opportunities
// @Description Pull the loan pipeline from the warehouse now instead of waiting for the scheduled import
// @Tags Financials
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /financials/opportunities/sync [post]
func (h *FinancialHandler) SyncOpportunities(w http.ResponseWriter, r *http.Request) {
	written, err := h.opportunityService.Sync(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "import opportunities")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"rowsWritten": written})
}
