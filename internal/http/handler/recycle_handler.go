package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type RecycleHandler struct {
	recycleService *service.RecycleService
	logger         *zap.Logger
}

func NewRecycleHandler(recycleService *service.RecycleService, logger *zap.Logger) *RecycleHandler {
	return &RecycleHandler{
		recycleService: recycleService,
		logger:         logger,
	}
}

// @Summary List recycle bin
// @Description List soft-deleted records awaiting restore or purge
// @Tags Recycle
// @Produce json
// @Param entityType query string false "Filter by entity type (leads, samples)"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} domain.ListResponse[domain.RecycleEntry]
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /recycle [get]
func (h *RecycleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	result, err := h.recycleService.List(r.Context(), r.URL.Query().Get("entityType"), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list recycle bin", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list recycle bin")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Restore recycled record
// @Description Restore a soft-deleted record from the recycle bin
// @Tags Recycle
// @Produce json
// @Param id path string true "Recycle entry ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /recycle/{id}/restore [post]
func (h *RecycleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid recycle entry ID: must be a valid UUID")
		return
	}

	if err := h.recycleService.Restore(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Recycle entry not found")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, service.ErrConflict) {
			respondServiceError(w, err)
			return
		}
		h.logger.Error("failed to restore recycle entry", zap.Error(err), zap.String("entry_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to restore record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Purge recycled record
// @Description Permanently delete a record from the recycle bin
// @Tags Recycle
// @Produce json
// @Param id path string true "Recycle entry ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /recycle/{id} [delete]
func (h *RecycleHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid recycle entry ID: must be a valid UUID")
		return
	}

	if err := h.recycleService.Purge(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Recycle entry not found")
			return
		}
		h.logger.Error("failed to purge recycle entry", zap.Error(err), zap.String("entry_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to purge record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
