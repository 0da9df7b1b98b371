package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jonah2xm/e-commerce/internal/app"
	"github.com/jonah2xm/e-commerce/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	mailer := &jobs.Mailer{Addr: cfg.SMTPAddr(), From: cfg.SMTPFrom}
	processor := jobs.NewProcessor(mailer, logger)
	worker := jobs.NewWorker(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, processor, logger)

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
