package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/docs"
	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/config"
	"github.com/Progenics2025/LIMS-sub000/internal/database"
	"github.com/Progenics2025/LIMS-sub000/internal/datawarehouse"
	"github.com/Progenics2025/LIMS-sub000/internal/http/handler"
	"github.com/Progenics2025/LIMS-sub000/internal/http/middleware"
	"github.com/Progenics2025/LIMS-sub000/internal/http/router"
	"github.com/Progenics2025/LIMS-sub000/internal/jobs"
	"github.com/Progenics2025/LIMS-sub000/internal/logger"
	"github.com/Progenics2025/LIMS-sub000/internal/reconcile"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
	"github.com/Progenics2025/LIMS-sub000/internal/storage"
)

// @title Progenics LIMS API
// @version 1.0
// @description Lab information management API for genetic testing leads, samples, finance and counselling
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@progenics.in

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "lims-staging.progenics.in"
	case "production":
		docs.SwaggerInfo.Host = "lims.progenics.in"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize report storage
	reportStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Legacy accounting warehouse (optional, read-only). The app continues
	// without it if not configured.
	var warehouse *datawarehouse.Client
	if cfg.Warehouse.Enabled {
		warehouse, err = datawarehouse.NewClient(&cfg.Warehouse, log)
		if err != nil {
			log.Warn("Accounting warehouse connection failed, continuing without it",
				zap.Error(err),
			)
		} else if warehouse != nil {
			log.Info("Accounting warehouse connected",
				zap.Int("max_open_conns", cfg.Warehouse.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.Warehouse.QueryTimeout),
			)
		}
	} else {
		log.Info("Accounting warehouse not configured, skipping")
	}

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	historyRepo := repository.NewLeadStatusHistoryRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	financeRepo := repository.NewFinanceRepository(db)
	labRepo := repository.NewLabProcessingRepository(db)
	gcRepo := repository.NewGeneticCounsellingRepository(db)
	recycleRepo := repository.NewRecycleRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	taskRepo := repository.NewReconciliationTaskRepository(db)
	reportRepo := repository.NewReportFileRepository(db)

	// Reconciliation dispatchers, one per transport kind
	dispatchers := map[string]reconcile.Dispatcher{
		"http": reconcile.NewHTTPDispatcher(cfg.Reconcile.HTTPTimeoutDuration(), cfg.Auth.APIKey),
	}
	var amqpDispatcher *reconcile.AMQPDispatcher
	if cfg.Reconcile.AMQPURL != "" {
		amqpDispatcher = reconcile.NewAMQPDispatcher(cfg.Reconcile.AMQPURL, cfg.Reconcile.AMQPExchange, log)
		dispatchers["amqp"] = amqpDispatcher
	}

	endpoints := make([]service.ReconcileEndpoint, 0, len(cfg.Reconcile.Endpoints))
	for _, ep := range cfg.Reconcile.Endpoints {
		endpoints = append(endpoints, service.ReconcileEndpoint{
			Name:   ep.Name,
			Kind:   ep.Kind,
			Target: ep.Target,
		})
	}

	// Initialize services
	idService := service.NewIDService(leadRepo, sampleRepo, log)
	reconcileService := service.NewReconcileService(taskRepo, dispatchers, endpoints, cfg.Reconcile.MaxAttempts, cfg.Reconcile.RetryDelay(), log)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, log)
	leadService := service.NewLeadService(leadRepo, historyRepo, recycleRepo, userRepo, idService, log)
	conversionService := service.NewConversionService(db, leadRepo, historyRepo, idService, reconcileService, notificationService, log)
	sampleService := service.NewSampleService(sampleRepo, labRepo, recycleRepo, log)
	financeService := service.NewFinanceService(financeRepo, sampleRepo, log)
	counsellingService := service.NewCounsellingService(gcRepo, log)
	recycleService := service.NewRecycleService(recycleRepo, leadRepo, sampleRepo, log)
	dashboardService := service.NewDashboardService(leadRepo, sampleRepo, financeRepo, gcRepo, warehouse, log)
	reportService := service.NewReportService(reportRepo, sampleRepo, reportStorage, log)

	// OTP login flow
	otpStore := service.NewOTPStore()
	mailer := service.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	tokenIssuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.TokenLifetime())
	otpService := service.NewOTPService(otpStore, mailer, userRepo, tokenIssuer, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(tokenIssuer, cfg.Auth.APIKey, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(otpService, log)
	leadHandler := handler.NewLeadHandler(leadService, conversionService, log)
	sampleHandler := handler.NewSampleHandler(sampleService, log)
	financeHandler := handler.NewFinanceHandler(financeService, log)
	counsellingHandler := handler.NewCounsellingHandler(counsellingService, log)
	recycleHandler := handler.NewRecycleHandler(recycleService, log)
	reportHandler := handler.NewReportHandler(reportService, cfg.Storage.MaxUploadSizeMB, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		authHandler,
		leadHandler,
		sampleHandler,
		financeHandler,
		counsellingHandler,
		recycleHandler,
		reportHandler,
		dashboardHandler,
		notificationHandler,
	)

	// Background jobs: reconciliation queue drain and OTP store sweep
	scheduler := jobs.NewScheduler(log)

	dispatchJob := jobs.NewReconcileDispatchJob(reconcileService, jobs.DefaultDispatchBatchSize, log, 2*time.Minute)
	if err := scheduler.AddJob(jobs.ReconcileDispatchJobName, "@every 1m", dispatchJob.Run); err != nil {
		log.Error("Failed to register reconciliation dispatch job", zap.Error(err))
	}

	sweepJob := jobs.NewOTPSweepJob(otpStore, log)
	if err := scheduler.AddJob(jobs.OTPSweepJobName, "@every 5m", sweepJob.Run); err != nil {
		log.Error("Failed to register login code sweep job", zap.Error(err))
	}

	scheduler.Start()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		stopCtx := scheduler.Stop()
		<-stopCtx.Done()
		log.Info("Scheduler stopped")

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if amqpDispatcher != nil {
			amqpDispatcher.Close()
		}

		if warehouse != nil {
			if err := warehouse.Close(); err != nil {
				log.Warn("Error closing accounting warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
