package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/codesagecoder/digital-marketplace/internal/app"
	"github.com/codesagecoder/digital-marketplace/internal/auth"
	"github.com/codesagecoder/digital-marketplace/internal/catalog"
	"github.com/codesagecoder/digital-marketplace/internal/observability"
	"github.com/codesagecoder/digital-marketplace/internal/ownership"
	"github.com/codesagecoder/digital-marketplace/internal/payments"
	"github.com/codesagecoder/digital-marketplace/internal/platform/cache"
	"github.com/codesagecoder/digital-marketplace/internal/platform/db"
	"github.com/codesagecoder/digital-marketplace/internal/shared"
	"github.com/codesagecoder/digital-marketplace/internal/users"
	"github.com/codesagecoder/digital-marketplace/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "marketplace_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	sessionAudit := auth.NewSessionAudit(dbpool)
	authService := auth.NewService(usersRepo, sessionAudit)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)
	authMiddleware := auth.NewMiddleware(logger, usersService)

	catalogRepo := catalog.NewRepository(dbpool)
	ownershipIndex := ownership.NewIndex(usersRepo, catalogRepo)

	stripeClient := payments.NewStripeClient(cfg.StripeAPIBase, cfg.StripeSecretKey)
	catalogService := catalog.NewService(logger, catalogRepo, stripeClient, ownershipIndex, metrics)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(logger, jobsClient)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		CatalogHandler: catalogHandler,
		UsersHandler:   usersHandler,
		JobsHandler:    jobsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("marketplace listening", slog.String("addr", cfg.AppAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}
