package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type ReportHandler struct {
	reportService *service.ReportService
	maxUploadMB   int64
	logger        *zap.Logger
}

func NewReportHandler(reportService *service.ReportService, maxUploadMB int64, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		maxUploadMB:   maxUploadMB,
		logger:        logger,
	}
}

// @Summary Upload report
// @Description Upload a report file for a sample
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Param file formData file true "Report file"
// @Success 201 {object} domain.ReportFile
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples/{sampleId}/reports [post]
func (h *ReportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	report, err := h.reportService.Upload(r.Context(), sampleID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Sample not found")
			return
		}
		h.logger.Error("failed to upload report", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to upload report")
		return
	}

	respondJSON(w, http.StatusCreated, report)
}

// @Summary List reports
// @Description List report files uploaded for a sample
// @Tags Reports
// @Produce json
// @Param sampleId path string true "Sample ID"
// @Success 200 {array} domain.ReportFile
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /samples/{sampleId}/reports [get]
func (h *ReportHandler) ListBySample(w http.ResponseWriter, r *http.Request) {
	sampleID := chi.URLParam(r, "sampleId")

	reports, err := h.reportService.ListBySample(r.Context(), sampleID)
	if err != nil {
		h.logger.Error("failed to list reports", zap.Error(err), zap.String("sample_id", sampleID))
		respondWithError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	respondJSON(w, http.StatusOK, reports)
}

// @Summary Download report
// @Tags Reports
// @Produce application/octet-stream
// @Param id path string true "Report file ID"
// @Success 200
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reports/{id}/download [get]
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report file ID: must be a valid UUID")
		return
	}

	report, reader, err := h.reportService.Download(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Report file not found")
			return
		}
		h.logger.Error("failed to download report", zap.Error(err), zap.String("report_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to download report")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition", "attachment; filename=\""+report.FileName+"\"")
	contentType := report.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	_, _ = io.Copy(w, reader)
}
