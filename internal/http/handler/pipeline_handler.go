package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type PipelineHandler struct {
	pipelineService *service.PipelineService
	dealService     *service.DealService
	logger          *zap.Logger
}

func NewPipelineHandler(pipelineService *service.PipelineService, dealService *service.DealService, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		dealService:     dealService,
		logger:          logger,
	}
}

// @Summary Pipeline board
// @Description Deals, open quotes and open or paid invoices as one filtered, sorted list with statistics
// @Tags Pipeline
// @Produce json
// @Param search query string false "Match customer name or display number"
// @Param stage query string false "Stage key, or all"
// @Param dateRange query string false "today, 7d, 30d, 90d, ytd or all"
// @Param valueRange query string false "under_1k, 1k_10k, 10k_50k, 50k_100k, 100k_500k, over_500k or all"
// @Param sortBy query string false "customer, amount, stage, probability or date"
// @Param sortOrder query string false "asc or desc" default(desc)
// @Success 200 {object} domain.PipelineViewDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pipeline/items [get]
func (h *PipelineHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.PipelineQuery{
		Search:        q.Get("search"),
		Stage:         q.Get("stage"),
		DateRange:     pipeline.DateRange(q.Get("dateRange")),
		ValueRange:    pipeline.ValueRange(q.Get("valueRange")),
		SortField:     pipeline.SortField(q.Get("sortBy")),
		SortDirection: pipeline.SortDirection(q.Get("sortOrder")),
	}

	view, err := h.pipelineService.GetPipeline(r.Context(), query)
	if err != nil {
		respondServiceError(w, h.logger, err, "load pipeline")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// @Summary Move pipeline item
// @Description Move a deal to another stage. Quotes and invoices cannot be moved.
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param kind path string true "Item kind (deal, quote, invoice)"
// @Param id path string true "Item ID"
// @Param request body domain.MoveStageRequest true "Transition"
// @Success 200 {object} domain.StageMoveResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pipeline/items/{kind}/{id}/move [post]
func (h *PipelineHandler) Move(w http.ResponseWriter, r *http.Request) {
	kind := domain.PipelineItemKind(chi.URLParam(r, "kind"))
	switch kind {
	case domain.PipelineItemDeal, domain.PipelineItemQuote, domain.PipelineItemInvoice:
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid item kind: must be deal, quote or invoice")
		return
	}

	id, ok := uuidParam(w, r, "id", "item ID")
	if !ok {
		return
	}

	var req domain.MoveStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.dealService.MoveStage(r.Context(), kind, id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "move pipeline item")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
