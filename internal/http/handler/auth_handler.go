package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
)

type AuthHandler struct {
	otpService *service.OTPService
	logger     *zap.Logger
}

func NewAuthHandler(otpService *service.OTPService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		otpService: otpService,
		logger:     logger,
	}
}

// @Summary Request login code
// @Description Email a one-time login code to a registered user. Always returns 204 so callers cannot probe for registered addresses.
// @Tags Auth
// @Accept json
// @Param request body domain.RequestOTPRequest true "Email address"
// @Success 204
// @Router /auth/otp/request [post]
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.otpService.RequestOTP(r.Context(), req.Email); err != nil {
		// Do not reveal whether the address is registered.
		if !errors.Is(err, service.ErrUserNotFound) {
			h.logger.Error("failed to request login code", zap.Error(err))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Verify login code
// @Description Exchange a one-time login code for a JWT
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.VerifyOTPRequest true "Email and code"
// @Success 200 {object} domain.AuthTokenResponse
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	token, err := h.otpService.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrOTPInvalid) || errors.Is(err, service.ErrOTPExpired) ||
			errors.Is(err, service.ErrUserNotFound) {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired login code")
			return
		}
		h.logger.Error("failed to verify login code", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to verify login code")
		return
	}

	respondJSON(w, http.StatusOK, token)
}
