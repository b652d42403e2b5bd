package handler

import (
	"net/http"

	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type StageHandler struct {
	stageService *service.StageService
	logger       *zap.Logger
}

func NewStageHandler(stageService *service.StageService, logger *zap.Logger) *StageHandler {
	return &StageHandler{
		stageService: stageService,
		logger:       logger,
	}
}

// @Summary List pipeline stages
// @Description Resolved stages of the caller's organization in display order
// @Tags Pipeline
// @Produce json
// @Success 200 {array} domain.PipelineStage
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pipeline/stages [get]
func (h *StageHandler) List(w http.ResponseWriter, r *http.Request) {
	stages, err := h.stageService.GetStages(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "load pipeline stages")
		return
	}
	respondJSON(w, http.StatusOK, stages)
}

// @Summary Refresh pipeline stages
// @Description Drop the cached stage set and resolve it again
// @Tags Pipeline
// @Produce json
// @Success 200 {array} domain.PipelineStage
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pipeline/stages/refresh [post]
func (h *StageHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	stages, err := h.stageService.Refresh(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "refresh pipeline stages")
		return
	}
	respondJSON(w, http.StatusOK, stages)
}
