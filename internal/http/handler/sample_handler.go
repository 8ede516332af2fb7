package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type SampleHandler struct {
	sampleService *service.SampleService
	logger        *zap.Logger
}

func NewSampleHandler(sampleService *service.SampleService, logger *zap.Logger) *SampleHandler {
	return &SampleHandler{
		sampleService: sampleService,
		logger:        logger,
	}
}

// @Summary List samples
// @Description List samples with optional filters
// @Tags Samples
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status (pickup_scheduled, picked_up, received, in_lab, sequencing, bioinformatics, report_ready, delivered)"
// @Param testCategory query string false "Filter by test category (clinical, discovery)"
// @Param organization query string false "Filter by organization"
// @Param q query string false "Search in sample ID, patient name and service name"
// @Success 200 {object} domain.ListResponse[domain.Sample]
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples [get]
func (h *SampleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := &repository.SampleFilters{
		Status:       r.URL.Query().Get("status"),
		TestCategory: r.URL.Query().Get("testCategory"),
		Organization: r.URL.Query().Get("organization"),
		Search:       r.URL.Query().Get("q"),
	}

	result, err := h.sampleService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to list samples", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Get sample
// @Description Get a sample by its sample ID
// @Tags Samples
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Success 200 {object} domain.Sample
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples/{sampleId} [get]
func (h *SampleHandler) GetBySampleID(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	sample, err := h.sampleService.GetBySampleID(r.Context(), sampleID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Sample not found")
			return
		}
		h.logger.Error("failed to get sample", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to get sample")
		return
	}

	respondJSON(w, http.StatusOK, sample)
}

// @Summary Update sample status
// @Description Move a sample one step forward in the processing pipeline
// @Tags Samples
// @Accept json
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Param request body domain.UpdateSampleStatusRequest true "Target status"
// @Success 200 {object} domain.Sample
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples/{sampleId}/status [put]
func (h *SampleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	var req domain.UpdateSampleStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	sample, err := h.sampleService.UpdateStatus(r.Context(), sampleID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Sample not found")
			return
		}
		if errors.Is(err, service.ErrInvalidStatus) || errors.Is(err, service.ErrInvalidTransition) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update sample status", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to update sample status")
		return
	}

	respondJSON(w, http.StatusOK, sample)
}

// @Summary Delete sample
// @Description Soft-delete a sample into the recycle bin
// @Tags Samples
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Param reason query string false "Deletion reason"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples/{sampleId} [delete]
func (h *SampleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	if err := h.sampleService.Delete(r.Context(), sampleID, r.URL.Query().Get("reason")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Sample not found")
			return
		}
		h.logger.Error("failed to delete sample", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to delete sample")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Get lab processing
// @Description Get the wet-lab processing record for a sample
// @Tags Samples
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Success 200 {object} domain.LabProcessing
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples/{sampleId}/lab [get]
func (h *SampleHandler) GetLab(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	lab, err := h.sampleService.GetLab(r.Context(), sampleID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lab processing record not found")
			return
		}
		h.logger.Error("failed to get lab processing", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to get lab processing record")
		return
	}

	respondJSON(w, http.StatusOK, lab)
}

// @Summary Update lab processing
// @Description Record wet-lab progress (QC, library prep, outsourcing) for a sample
// @Tags Samples
// @Accept json
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Param request body domain.UpdateLabProcessingRequest true "Lab progress"
// @Success 200 {object} domain.LabProcessing
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples/{sampleId}/lab [put]
func (h *SampleHandler) UpdateLab(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	var req domain.UpdateLabProcessingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	lab, err := h.sampleService.UpdateLab(r.Context(), sampleID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Lab processing record not found")
			return
		}
		if errors.Is(err, service.ErrInvalidStatus) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update lab processing", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to update lab processing record")
		return
	}

	respondJSON(w, http.StatusOK, lab)
}
