package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/animatepdf/animatepdf/internal"
	"github.com/animatepdf/animatepdf/internal/billing"
	"github.com/animatepdf/animatepdf/internal/email"
	"github.com/animatepdf/animatepdf/internal/handler"
	"github.com/animatepdf/animatepdf/internal/jobs"
	"github.com/animatepdf/animatepdf/internal/metrics"
	"github.com/animatepdf/animatepdf/internal/middleware"
	"github.com/animatepdf/animatepdf/internal/repository"
	"github.com/animatepdf/animatepdf/internal/service"
	"github.com/animatepdf/animatepdf/internal/storage"
	"github.com/animatepdf/animatepdf/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	store := repository.New(db)

	// Initialize storage provider
	fileStorage, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize email service
	emailService := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, logger)

	// Initialize job queue enqueuer. Usage alerts from the request path go
	// through the queue so SMTP failures never affect API responses.
	enqueuer := worker.NewEnqueuer(store)

	// Initialize services
	planService := service.NewPlanService(store, logger)
	creditService := service.NewCreditService(store, enqueuer, logger)
	subscriptionService := service.NewSubscriptionService(store, logger)
	uploadService := service.NewUploadService(store, fileStorage, logger)

	// Initialize Stripe billing (optional; webhook endpoint rejects events
	// when billing is not configured)
	var billingService billing.Service
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			StarterMonthlyPriceID: cfg.StripeStarterMonthlyPriceID,
			StarterYearlyPriceID:  cfg.StripeStarterYearlyPriceID,
			ProMonthlyPriceID:     cfg.StripeProMonthlyPriceID,
			ProYearlyPriceID:      cfg.StripeProYearlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled, webhook events will be rejected")
	}

	// Initialize middleware
	isSecure := cfg.Env != "development"
	serviceAuth := middleware.NewServiceAuthMiddleware(cfg.ServiceTokens, logger)
	adminAuth := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash, logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, logger)
	rateLimit := middleware.NewRateLimitMiddleware(rateLimiter, logger)

	// Initialize handlers
	creditHandler := handler.NewCreditHandler(creditService, logger)
	planHandler := handler.NewPlanHandler(planService, logger)
	uploadHandler := handler.NewUploadHandler(uploadService, logger)
	adminHandler := handler.NewAdminHandler(planService, creditService, subscriptionService, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, subscriptionService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics (basic auth)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Stripe webhooks (authenticated by signature verification, not bearer tokens)
	webhookHandler.RegisterRoutes(mux)

	// Service API (bearer tokens for internal callers)
	apiMux := http.NewServeMux()
	creditHandler.RegisterRoutes(apiMux)
	planHandler.RegisterRoutes(apiMux)
	uploadHandler.RegisterRoutes(apiMux)
	mux.Handle("/api/v1/", serviceAuth.RequireService(rateLimit.Limit(apiMux)))

	// Admin API (bcrypt-hashed admin token)
	adminMux := http.NewServeMux()
	adminHandler.RegisterRoutes(adminMux)
	mux.Handle("/admin/v1/", adminAuth.RequireAdmin(adminMux))

	// Local file serving (development storage provider only)
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Global middleware chain
	var root http.Handler = mux
	root = metrics.Middleware(root)
	root = requestLogging.Handler(root)
	root = securityHeaders.Handler(root)

	// ==========================================================================
	// Start background worker
	// ==========================================================================

	var jobWorker *worker.Worker
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		jobWorker, err = worker.New(db, store, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		jobWorker.Register(jobs.NewUsageAlertHandler(emailService, logger))
		jobWorker.Register(jobs.NewExpireSubscriptionsHandler(subscriptionService, logger))
		jobWorker.Start(workerCtx)

		// Periodically enqueue the subscription expiry sweep
		go runExpireSweep(workerCtx, enqueuer, cfg.ExpireSweepInterval, logger)
	} else {
		logger.Warn("Background worker disabled, jobs will not be processed")
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Stop the worker after the server so in-flight requests can still enqueue
	workerCancel()
	if jobWorker != nil {
		jobWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the file storage backend selected by configuration.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

// runExpireSweep enqueues the subscription expiry job on a fixed interval
// until ctx is canceled. The first sweep runs at startup so a service that
// was down over a period boundary catches up immediately.
func runExpireSweep(ctx context.Context, enqueuer *worker.Enqueuer, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := enqueuer.EnqueueExpireSubscriptions(ctx); err != nil {
			logger.Error("failed to enqueue subscription expiry sweep", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
