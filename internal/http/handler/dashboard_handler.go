package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// @Summary Dashboard metrics
// @Description Lead pipeline, sample workload and billing counters for the operations dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardMetrics
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/metrics [get]
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboardService.Metrics(r.Context())
	if err != nil {
		h.logger.Error("failed to compute dashboard metrics", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to compute dashboard metrics")
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}
