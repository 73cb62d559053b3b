package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/cache"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/category"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/config"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/events"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/export"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/log"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/merchant"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/storage"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/worker"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting sync worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := category.NewRegistry(repo)
	if err := registry.Hydrate(ctx); err != nil {
		logger.Error("Failed to hydrate categories", "error", err)
		os.Exit(1)
	}
	resolver := merchant.NewResolver(registry, repo, nil)
	if err := resolver.Hydrate(ctx); err != nil {
		logger.Error("Failed to hydrate aliases", "error", err)
		os.Exit(1)
	}
	registry.BindAliases(resolver)

	var sheet export.GroupWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := export.NewSheetsClient(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize sheets client", "error", err)
			os.Exit(1)
		}
		sheet = client
		logger.Info("Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	consumer, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	spend := cache.New[int64](cfg.CacheSize, cfg.CacheTTL)
	syncWorker := worker.NewSyncWorker(repo, resolver, sheet, spend)

	// Startup pass picks up anything changed while the worker was down.
	if err := syncWorker.Sync(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Consume(ctx, func(env events.Envelope) error {
			return syncWorker.HandleEvent(ctx, env)
		})
	}()

	// Periodic resync covers dropped events.
	ticker := time.NewTicker(cfg.CacheTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			return
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", "error", err)
				os.Exit(1)
			}
			return
		case <-ticker.C:
			if err := syncWorker.Sync(ctx); err != nil {
				logger.Error("Periodic sync failed", "error", err)
			}
		}
	}
}
