package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/config"
	"github.com/Progenics2025/LIMS-sub000/internal/database"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/http/handler"
	"github.com/Progenics2025/LIMS-sub000/internal/http/middleware"

	_ "github.com/Progenics2025/LIMS-sub000/docs" // Import generated swagger docs
)

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	authMiddleware      *auth.Middleware
	rateLimiter         *middleware.RateLimiter
	authHandler         *handler.AuthHandler
	leadHandler         *handler.LeadHandler
	sampleHandler       *handler.SampleHandler
	financeHandler      *handler.FinanceHandler
	counsellingHandler  *handler.CounsellingHandler
	recycleHandler      *handler.RecycleHandler
	reportHandler       *handler.ReportHandler
	dashboardHandler    *handler.DashboardHandler
	notificationHandler *handler.NotificationHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	leadHandler *handler.LeadHandler,
	sampleHandler *handler.SampleHandler,
	financeHandler *handler.FinanceHandler,
	counsellingHandler *handler.CounsellingHandler,
	recycleHandler *handler.RecycleHandler,
	reportHandler *handler.ReportHandler,
	dashboardHandler *handler.DashboardHandler,
	notificationHandler *handler.NotificationHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		authMiddleware:      authMiddleware,
		rateLimiter:         rateLimiter,
		authHandler:         authHandler,
		leadHandler:         leadHandler,
		sampleHandler:       sampleHandler,
		financeHandler:      financeHandler,
		counsellingHandler:  counsellingHandler,
		recycleHandler:      recycleHandler,
		reportHandler:       reportHandler,
		dashboardHandler:    dashboardHandler,
		notificationHandler: notificationHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with pool stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes: only the OTP login flow, throttled by client IP.
		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitByIP)
			r.Post("/auth/otp/request", rt.authHandler.RequestOTP)
			r.Post("/auth/otp/verify", rt.authHandler.VerifyOTP)
		})

		// Protected routes, throttled per user.
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)

			// Leads
			r.Route("/leads", func(r chi.Router) {
				r.Get("/", rt.leadHandler.List)
				r.Post("/", rt.leadHandler.Create)
				r.Get("/pipeline", rt.leadHandler.Pipeline)
				r.Get("/{id}", rt.leadHandler.GetByID)
				r.Put("/{id}", rt.leadHandler.Update)
				r.Delete("/{id}", rt.leadHandler.Delete)
				r.Put("/{id}/status", rt.leadHandler.UpdateStatus)
				r.Post("/{id}/convert", rt.leadHandler.Convert)
				r.Get("/{id}/history", rt.leadHandler.History)
			})

			// Samples and lab processing
			r.Route("/samples", func(r chi.Router) {
				r.Get("/", rt.sampleHandler.List)
				r.Get("/{sampleId}", rt.sampleHandler.GetBySampleID)
				r.Delete("/{sampleId}", rt.sampleHandler.Delete)
				r.Put("/{sampleId}/status", rt.sampleHandler.UpdateStatus)
				r.Get("/{sampleId}/lab", rt.sampleHandler.GetLab)
				r.Put("/{sampleId}/lab", rt.sampleHandler.UpdateLab)
				r.Get("/{sampleId}/reports", rt.reportHandler.ListBySample)
				r.Post("/{sampleId}/reports", rt.reportHandler.Upload)
			})

			// Report downloads
			r.Get("/reports/{id}/download", rt.reportHandler.Download)

			// Finance
			r.Route("/finance", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.UserRoleAdmin, domain.UserRoleFinance))
				r.Get("/unsettled", rt.financeHandler.ListUnsettled)
				r.Get("/{sampleId}", rt.financeHandler.GetBySampleID)
				r.Post("/{sampleId}/payments", rt.financeHandler.RecordPayment)
			})

			// Genetic counselling
			r.Route("/counselling", func(r chi.Router) {
				r.Get("/pending", rt.counsellingHandler.ListPending)
				r.Get("/{id}", rt.counsellingHandler.GetByID)
				r.Put("/{id}/assign", rt.counsellingHandler.Assign)
				r.Put("/{id}/approve", rt.counsellingHandler.Approve)
			})

			// Recycle bin
			r.Route("/recycle", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.UserRoleAdmin))
				r.Get("/", rt.recycleHandler.List)
				r.Post("/{id}/restore", rt.recycleHandler.Restore)
				r.Delete("/{id}", rt.recycleHandler.Purge)
			})

			// Dashboard
			r.Get("/dashboard/metrics", rt.dashboardHandler.Metrics)

			// Notifications
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", rt.notificationHandler.List)
				r.Get("/unread-count", rt.notificationHandler.UnreadCount)
				r.Put("/read-all", rt.notificationHandler.MarkAllRead)
				r.Put("/{id}/read", rt.notificationHandler.MarkRead)
			})
		})
	})

	return r
}
