package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type DealHandler struct {
	dealService *service.DealService
	logger      *zap.Logger
}

func NewDealHandler(dealService *service.DealService, logger *zap.Logger) *DealHandler {
	return &DealHandler{
		dealService: dealService,
		logger:      logger,
	}
}

// @Summary List deals
// @Description List deals with optional filters
// @Tags Deals
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size (max 200)" default(20)
// @Param stage query string false "Filter by stage key"
// @Param assignedTo query string false "Filter by assignee"
// @Param customerId query string false "Filter by customer ID"
// @Param source query string false "Filter by source"
// @Param minValue query number false "Minimum value"
// @Param maxValue query number false "Maximum value"
// @Param q query string false "Search title and description"
// @Param sortBy query string false "createdAt, updatedAt, title, value, probability, weightedValue, expectedCloseDate or stage"
// @Param sortOrder query string false "asc or desc" default(desc)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals [get]
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	filters := &repository.DealFilters{}

	if s := q.Get("stage"); s != "" {
		stage := domain.DealStage(s)
		filters.Stage = &stage
	}
	if a := q.Get("assignedTo"); a != "" {
		filters.AssignedTo = &a
	}
	if cid := q.Get("customerId"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid customerId: must be a valid UUID")
			return
		}
		filters.CustomerID = &id
	}
	if src := q.Get("source"); src != "" {
		filters.Source = &src
	}
	if minVal := q.Get("minValue"); minVal != "" {
		if v, err := strconv.ParseFloat(minVal, 64); err == nil {
			filters.MinValue = &v
		}
	}
	if maxVal := q.Get("maxValue"); maxVal != "" {
		if v, err := strconv.ParseFloat(maxVal, 64); err == nil {
			filters.MaxValue = &v
		}
	}
	if search := q.Get("q"); search != "" {
		filters.SearchQuery = &search
	}

	sort := repository.DefaultSortConfig()
	if field := q.Get("sortBy"); field != "" {
		sort.Field = field
	}
	sort.Order = repository.ParseSortOrder(q.Get("sortOrder"))

	result, err := h.dealService.List(r.Context(), page, pageSize, filters, sort)
	if err != nil {
		respondServiceError(w, h.logger, err, "list deals")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// @Summary Create deal
// @Description Create a new deal. Stage defaults to the first open stage of the organization.
// @Tags Deals
// @Accept json
// @Produce json
// @Param request body domain.CreateDealRequest true "Deal data"
// @Success 201 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals [post]
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create deal")
		return
	}

	w.Header().Set("Location", "/api/v1/deals/"+deal.ID.String())
	respondJSON(w, http.StatusCreated, deal)
}

// @Summary Get deal
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} domain.DealDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [get]
func (h *DealHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deal ID")
	if !ok {
		return
	}

	deal, err := h.dealService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Update deal
// @Description Partial update. Changing the stage re-derives probability unless one is given.
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.UpdateDealRequest true "Fields to change"
// @Success 200 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [put]
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deal ID")
	if !ok {
		return
	}

	var req domain.UpdateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Delete deal
// @Description Delete a deal and its stage history
// @Tags Deals
// @Param id path string true "Deal ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id} [delete]
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deal ID")
	if !ok {
		return
	}

	if err := h.dealService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete deal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Win deal
// @Description Close an open deal as won
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} domain.DealDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/won [post]
func (h *DealHandler) Win(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deal ID")
	if !ok {
		return
	}

	deal, err := h.dealService.Win(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "win deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Lose deal
// @Description Close an open deal as lost with an optional reason
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.LoseDealRequest false "Loss reason"
// @Success 200 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/lost [post]
func (h *DealHandler) Lose(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deal ID")
	if !ok {
		return
	}

	// The body is optional
	var req domain.LoseDealRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	deal, err := h.dealService.Lose(r.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(w, h.logger, err, "lose deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Reopen deal
// @Description Return a closed deal to the first open stage
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} domain.DealDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/reopen [post]
func (h *DealHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deal ID")
	if !ok {
		return
	}

	deal, err := h.dealService.Reopen(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "reopen deal")
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

// @Summary Deal stage history
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {array} domain.DealStageHistoryDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /deals/{id}/history [get]
func (h *DealHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "deal ID")
	if !ok {
		return
	}

	history, err := h.dealService.GetStageHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get deal history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// @Summary Convert quote to deal
// @Description Create a deal in the proposal stage from a quote and mark the quote converted
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.ConvertQuoteRequest false "Overrides"
// @Success 201 {object} domain.DealDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/convert [post]
func (h *DealHandler) ConvertQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "quote ID")
	if !ok {
		return
	}

	var req domain.ConvertQuoteRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}

	deal, err := h.dealService.ConvertQuote(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "convert quote")
		return
	}

	w.Header().Set("Location", "/api/v1/deals/"+deal.ID.String())
	respondJSON(w, http.StatusCreated, deal)
}
