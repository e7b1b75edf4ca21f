package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pagos/internal/amqp"
	"pagos/internal/backend"
	"pagos/internal/cli"
	applog "pagos/internal/log"
	"pagos/internal/services"
	"pagos/internal/storage"
	"pagos/internal/worker"
)

// defaultQueue is the durable queue shared by worker replicas.
const defaultQueue = "pagos-sync"

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	logger.InfoContext(ctx, "Starting pagos-worker")

	if cfg.AMQPURL == "" {
		logger.ErrorContext(ctx, "AMQP_URL is required by the worker")
		os.Exit(1)
	}
	queue := cfg.AMQPQueue
	if queue == "" {
		queue = defaultQueue
	}

	// The worker reads the same database the app writes to.
	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	backendCfg := backend.Config{
		GoogleSpreadsheetID:     cfg.GoogleSpreadsheetID,
		GoogleSheetName:         cfg.GoogleSheetName,
		GoogleClosingsSheetName: cfg.GoogleClosingsSheetName,
	}
	sinks, err := backend.NewFactory(logger.Logger).CreateSinks(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sqliteRepo, sinks, cfg.FeeRate)

	// Catch up on anything written while the worker was down.
	logger.InfoContext(ctx, "Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed startup sync check", "error", err)
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		Interval: cfg.SyncInterval,
	})
	if err := processor.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	// Blocks until a shutdown signal or an unrecoverable broker error.
	if err := amqpClient.Listen(ctx, syncWorker.HandleChange, nil, nil); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(context.Background(), "Message consumption failed", "error", err)
	}

	logger.InfoContext(context.Background(), "Shutting down worker...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.WarnContext(shutdownCtx, "Shutdown timeout reached", "error", err)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete")
}
