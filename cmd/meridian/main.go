package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/allocation"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/identity"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/notify"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/workflow"
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

	identityStore := identity.NewStore(redisClient, cfg.TokenTTL)
	metrics := observability.NewMetrics()

	var gateway notify.Gateway
	if cfg.DisableJobQueue {
		gateway = notify.NewLogGateway(logger)
	} else {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := asynqClient.Close(); err != nil {
				logger.Warn("asynq close", slog.Any("error", err))
			}
		}()
		gateway = notify.NewAsynqGateway(asynqClient, cfg.NotifyQueue)
	}

	documentRepo := documents.NewRepository(pool)
	documentService := documents.NewService(documentRepo)
	documentHandler := documents.NewHandler(documentService)

	poster := ledger.NewPoster()
	ledgerRepo := ledger.NewRepository(pool)
	ledgerHandler := ledger.NewHandler(ledgerRepo)

	workflowRepo := workflow.NewRepository(pool)
	workflowEngine := workflow.NewEngine(workflowRepo, poster, gateway, logger)
	workflowHandler := workflow.NewHandler(workflowEngine)

	allocationRepo := allocation.NewRepository(pool)
	allocationEngine := allocation.NewEngine(allocationRepo, logger)
	allocationHandler := allocation.NewHandler(allocationEngine)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Identity:          identityStore,
		DocumentHandler:   documentHandler,
		WorkflowHandler:   workflowHandler,
		AllocationHandler: allocationHandler,
		LedgerHandler:     ledgerHandler,
		Metrics:           metrics,
		Pool:              pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
