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

type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// @Summary List notifications
// @Description List in-app notifications for the authenticated user
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param unreadOnly query bool false "Only unread notifications"
// @Success 200 {object} domain.ListResponse[domain.Notification]
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	result, err := h.notificationService.ListForCurrentUser(r.Context(), page, pageSize, unreadOnly)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.logger.Error("failed to list notifications", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.UnreadCount(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.logger.Error("failed to count unread notifications", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to count unread notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204
// @Security BearerAuth
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid notification ID: must be a valid UUID")
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Notification not found")
			return
		}
		if errors.Is(err, service.ErrUnauthorized) || errors.Is(err, service.ErrPermissionDenied) {
			respondServiceError(w, err)
			return
		}
		if errors.Is(err, service.ErrNotificationNotOwned) {
			respondWithError(w, http.StatusForbidden, "Notification belongs to another user")
			return
		}
		h.logger.Error("failed to mark notification read", zap.Error(err), zap.String("notification_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to mark notification read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 204
// @Security BearerAuth
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.MarkAllRead(r.Context()); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.logger.Error("failed to mark all notifications read", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to mark all notifications read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
