package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

// Middleware handles authentication for HTTP requests
type Middleware struct {
	issuer *TokenIssuer
	apiKey string
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(issuer *TokenIssuer, apiKey string, logger *zap.Logger) *Middleware {
	return &Middleware{
		issuer: issuer,
		apiKey: apiKey,
		logger: logger,
	}
}

// Authenticate validates the bearer token (or the integration API key) and
// attaches the user context to the request.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Integration API key for trusted server-to-server callers
		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if m.validateAPIKey(apiKey) {
				userCtx := &UserContext{
					UserID:      uuid.Nil,
					DisplayName: "Integration",
					Email:       "integration@progenics.local",
					Role:        domain.UserRoleAdmin,
				}
				next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
				return
			}
			m.logger.Warn("invalid API key attempt",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			m.unauthorized(w, "invalid API key")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.unauthorized(w, "missing authorization header")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			m.unauthorized(w, "authorization header must use the Bearer scheme")
			return
		}

		userCtx, err := m.issuer.Validate(tokenString)
		if err != nil {
			m.logger.Debug("token validation failed",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.unauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireRole gates a subtree to users holding one of the given roles.
// Admins pass every gate.
func (m *Middleware) RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				m.unauthorized(w, "not authenticated")
				return
			}
			if !userCtx.HasAnyRole(roles...) && !userCtx.IsAdmin() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(&domain.APIError{
					Type:   domain.ErrorTypeForbidden,
					Title:  "Forbidden",
					Status: http.StatusForbidden,
					Detail: "insufficient role",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) validateAPIKey(provided string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) == 1
}

func (m *Middleware) unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(&domain.APIError{
		Type:   domain.ErrorTypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
	})
}
