package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type FinanceHandler struct {
	financeService *service.FinanceService
	logger         *zap.Logger
}

func NewFinanceHandler(financeService *service.FinanceService, logger *zap.Logger) *FinanceHandler {
	return &FinanceHandler{
		financeService: financeService,
		logger:         logger,
	}
}

// @Summary Get finance record
// @Description Get the finance record for a sample
// @Tags Finance
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Success 200 {object} domain.FinanceRecord
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /finance/{sampleId} [get]
func (h *FinanceHandler) GetBySampleID(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	record, err := h.financeService.GetBySampleID(r.Context(), sampleID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Finance record not found")
			return
		}
		h.logger.Error("failed to get finance record", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to get finance record")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// @Summary Record payment
// @Description Register a payment against a sample's finance record
// @Tags Finance
// @Accept json
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Param request body domain.RecordPaymentRequest true "Payment details"
// @Success 200 {object} domain.FinanceRecord
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /finance/{sampleId}/payments [post]
func (h *FinanceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	var req domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	record, err := h.financeService.RecordPayment(r.Context(), sampleID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Finance record not found")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to record payment", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to record payment")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// @Summary List unsettled finance records
// @Description List finance records with an outstanding balance
// @Tags Finance
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} domain.ListResponse[domain.FinanceRecord]
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /finance/unsettled [get]
func (h *FinanceHandler) ListUnsettled(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	result, err := h.financeService.ListUnsettled(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list unsettled finance records", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list unsettled finance records")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
