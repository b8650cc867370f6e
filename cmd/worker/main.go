package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/codesagecoder/digital-marketplace/internal/app"
	"github.com/codesagecoder/digital-marketplace/internal/catalog"
	"github.com/codesagecoder/digital-marketplace/internal/ownership"
	"github.com/codesagecoder/digital-marketplace/internal/platform/db"
	"github.com/codesagecoder/digital-marketplace/internal/users"
	"github.com/codesagecoder/digital-marketplace/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	usersRepo := users.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	index := ownership.NewIndex(usersRepo, catalogRepo)
	rebuilder := jobs.NewRebuildProcessor(logger, index, usersRepo)

	var cron []jobs.CronRegistration
	if cfg.OwnershipRebuildCron != "" {
		task, err := jobs.NewOwnershipRebuildTask(jobs.OwnershipRebuildPayload{})
		if err != nil {
			logger.Error("build rebuild task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.OwnershipRebuildCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Rebuilder: rebuilder,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
