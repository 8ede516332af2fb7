package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type CounsellingHandler struct {
	counsellingService *service.CounsellingService
	logger             *zap.Logger
}

func NewCounsellingHandler(counsellingService *service.CounsellingService, logger *zap.Logger) *CounsellingHandler {
	return &CounsellingHandler{
		counsellingService: counsellingService,
		logger:             logger,
	}
}

// @Summary List pending counselling sessions
// @Description List genetic counselling sessions awaiting assignment or approval
// @Tags Counselling
// @Produce json
// @Success 200 {array} domain.GeneticCounselling
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /counselling/pending [get]
func (h *CounsellingHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.counsellingService.ListPending(r.Context())
	if err != nil {
		h.logger.Error("failed to list pending counselling sessions", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list pending counselling sessions")
		return
	}

	respondJSON(w, http.StatusOK, sessions)
}

// @Summary Get counselling session
// @Tags Counselling
// @Produce json
// @Param id path string true "Counselling session ID"
// @Success 200 {object} domain.GeneticCounselling
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /counselling/{id} [get]
func (h *CounsellingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid counselling session ID: must be a valid UUID")
		return
	}

	session, err := h.counsellingService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Counselling session not found")
			return
		}
		h.logger.Error("failed to get counselling session", zap.Error(err), zap.String("session_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get counselling session")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// @Summary Assign counsellor
// @Description Assign a genetic counsellor and optionally schedule the session
// @Tags Counselling
// @Accept json
// @Produce json
// @Param id path string true "Counselling session ID"
// @Param request body domain.AssignCounsellorRequest true "Counsellor assignment"
// @Success 200 {object} domain.GeneticCounselling
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /counselling/{id}/assign [put]
func (h *CounsellingHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid counselling session ID: must be a valid UUID")
		return
	}

	var req domain.AssignCounsellorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	session, err := h.counsellingService.Assign(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Counselling session not found")
			return
		}
		if errors.Is(err, service.ErrInvalidStatus) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to assign counsellor", zap.Error(err), zap.String("session_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to assign counsellor")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// @Summary Approve counselling session
// @Description Mark a counselling session as approved after review
// @Tags Counselling
// @Produce json
// @Param id path string true "Counselling session ID"
// @Success 200 {object} domain.GeneticCounselling
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /counselling/{id}/approve [put]
func (h *CounsellingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid counselling session ID: must be a valid UUID")
		return
	}

	session, err := h.counsellingService.Approve(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Counselling session not found")
			return
		}
		if errors.Is(err, service.ErrInvalidStatus) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to approve counselling session", zap.Error(err), zap.String("session_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to approve counselling session")
		return
	}

	respondJSON(w, http.StatusOK, session)
}
