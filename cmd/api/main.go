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
	"golang.org/x/sync/errgroup"

	"github.com/jonah2xm/e-commerce/internal/app"
	"github.com/jonah2xm/e-commerce/internal/catalog"
	"github.com/jonah2xm/e-commerce/internal/inventory"
	"github.com/jonah2xm/e-commerce/internal/orders"
	"github.com/jonah2xm/e-commerce/internal/platform/cache"
	"github.com/jonah2xm/e-commerce/internal/platform/db"
	"github.com/jonah2xm/e-commerce/internal/sales"
	"github.com/jonah2xm/e-commerce/internal/sequence"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	notifier := jobs.NewNotifier(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger)
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("notifier close", slog.Any("error", err))
		}
	}()

	sequences := sequence.NewGenerator()

	catalogRepo := catalog.NewRepository(pool)
	catalogCache := catalog.NewProductCache(redisClient, 10*time.Minute)
	catalogService := catalog.NewService(catalogRepo, catalogCache, notifier, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	inventoryRepo := inventory.NewRepository(pool, sequences)
	inventoryService := inventory.NewService(inventoryRepo, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	salesRepo := sales.NewRepository(pool, sequences)
	salesService := sales.NewService(salesRepo, logger)
	salesHandler := sales.NewHandler(logger, salesService)

	ordersRepo := orders.NewRepository(pool, sequences)
	ordersService := orders.NewService(ordersRepo, notifier, logger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		InventoryHandler: inventoryHandler,
		SalesHandler:     salesHandler,
		OrdersHandler:    ordersHandler,
		Pool:             pool,
		Redis:            redisClient,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
