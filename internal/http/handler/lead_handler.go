package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type LeadHandler struct {
	leadService       *service.LeadService
	conversionService *service.ConversionService
	logger            *zap.Logger
}

func NewLeadHandler(leadService *service.LeadService, conversionService *service.ConversionService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		leadService:       leadService,
		conversionService: conversionService,
		logger:            logger,
	}
}

// @Summary List leads
// @Description List leads with optional filters
// @Tags Leads
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status (quoted, cold, hot, won, converted, closed)"
// @Param testCategory query string false "Filter by test category (clinical, discovery)"
// @Param organization query string false "Filter by organization"
// @Param q query string false "Search in name, email, phone and lead ID"
// @Param sort query string false "Sort field (created_at, name, status)"
// @Param order query string false "Sort order (asc, desc)"
// @Success 200 {object} domain.ListResponse[domain.Lead]
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads [get]
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filter := &domain.LeadListFilter{
		Status:       r.URL.Query().Get("status"),
		TestCategory: r.URL.Query().Get("testCategory"),
		Organization: r.URL.Query().Get("organization"),
		Search:       r.URL.Query().Get("q"),
		Page:         page,
		PageSize:     pageSize,
		SortBy:       r.URL.Query().Get("sort"),
		SortOrder:    r.URL.Query().Get("order"),
	}

	result, err := h.leadService.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to list leads", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list leads")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create lead
// @Description Register a new lead with a generated role-coded lead ID
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body domain.CreateLeadRequest true "Lead data"
// @Success 201 {object} domain.Lead
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads [post]
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.leadService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create lead", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create lead")
		return
	}

	w.Header().Set("Location", "/api/v1/leads/"+lead.ID.String())
	respondJSON(w, http.StatusCreated, lead)
}

// @Summary Get lead
// @Description Get a lead by ID
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} domain.Lead
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id} [get]
func (h *LeadHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID: must be a valid UUID")
		return
	}

	lead, err := h.leadService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("failed to get lead", zap.Error(err), zap.String("lead_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

// @Summary Update lead
// @Description Update lead contact and clinical details. Status changes go through the status endpoint.
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body domain.UpdateLeadRequest true "Fields to update"
// @Success 200 {object} domain.Lead
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id} [put]
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID: must be a valid UUID")
		return
	}

	var req domain.UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.leadService.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lead not found")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update lead", zap.Error(err), zap.String("lead_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update lead")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

// @Summary Update lead status
// @Description Move a lead along the pipeline. Only adjacent forward moves and closing are allowed.
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body domain.UpdateLeadStatusRequest true "Target status"
// @Success 200 {object} domain.Lead
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id}/status [put]
func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID: must be a valid UUID")
		return
	}

	var req domain.UpdateLeadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.leadService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lead not found")
			return
		}
		if errors.Is(err, service.ErrInvalidStatus) || errors.Is(err, service.ErrInvalidTransition) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update lead status", zap.Error(err), zap.String("lead_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update lead status")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

// @Summary Convert lead
// @Description Convert a won lead into a sample with finance and lab records in one transaction
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body domain.ConvertLeadRequest true "Conversion details"
// @Success 201 {object} domain.ConversionResult
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id}/convert [post]
func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID: must be a valid UUID")
		return
	}

	var req domain.ConvertLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.conversionService.Convert(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lead not found")
			return
		}
		if errors.Is(err, service.ErrLeadNotConvertible) || errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to convert lead", zap.Error(err), zap.String("lead_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to convert lead")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// @Summary Delete lead
// @Description Soft-delete a lead into the recycle bin
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Param reason query string false "Deletion reason"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id} [delete]
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID: must be a valid UUID")
		return
	}

	if err := h.leadService.Delete(r.Context(), id, r.URL.Query().Get("reason")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("failed to delete lead", zap.Error(err), zap.String("lead_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to delete lead")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Lead status history
// @Description List the status transitions recorded for a lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {array} domain.LeadStatusHistory
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id}/history [get]
func (h *LeadHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID: must be a valid UUID")
		return
	}

	history, err := h.leadService.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("failed to get lead history", zap.Error(err), zap.String("lead_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get lead history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// @Summary Lead pipeline
// @Description Per-status lead counts for the pipeline board
// @Tags Leads
// @Produce json
// @Success 200 {object} domain.PipelineCounts
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/pipeline [get]
func (h *LeadHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	counts, err := h.leadService.Pipeline(r.Context())
	if err != nil {
		h.logger.Error("failed to get pipeline counts", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to get pipeline counts")
		return
	}

	respondJSON(w, http.StatusOK, counts)
}
