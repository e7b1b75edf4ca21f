package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pagos/internal/adapters"
	"pagos/internal/amqp"
	"pagos/internal/records"
	"pagos/internal/records/local"
	"pagos/internal/records/memory"
	"pagos/internal/services"
	gsheet "pagos/internal/sheets/google"
	sheetsmem "pagos/internal/sheets/memory"
	"pagos/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case LocalBackend:
		return f.createLocalBackend(config)
	default:
		return f.createMemoryBackend(config)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it edits from other processes are not seen
	// until restart.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var publisher services.ChangePublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	paymentService := services.NewPaymentService(sqliteRepo, publisher)
	adapter, err := adapters.NewSQLiteAdapter(ctx, sqliteRepo, paymentService)
	if err != nil {
		paymentService.Close()
		return nil, fmt.Errorf("failed to load SQLite snapshots: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	result := &BackendResult{
		Store:   adapter,
		Cleanup: adapter.Close,
	}
	if amqpClient != nil {
		result.Listen = func(ctx context.Context) error {
			return adapter.Listen(ctx, amqpClient)
		}
	}
	return result, nil
}

func (f *DefaultFactory) createLocalBackend(config Config) (*BackendResult, error) {
	if err := os.MkdirAll(filepath.Dir(config.LocalDBPath), 0755); err != nil {
		return nil, fmt.Errorf("create local db directory: %w", err)
	}
	store, err := local.Open(config.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	f.logger.Info("Initialized local backend", "db_path", config.LocalDBPath)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	var store *memory.Store
	if config.SeedDir != "" {
		store = memory.NewFromFiles(config.SeedDir)
	} else {
		store = memory.New(records.DefaultAgents)
	}

	f.logger.Info("Initialized memory backend", "seed_dir", config.SeedDir)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

// CreateSinks returns the Google Sheets client when a spreadsheet is
// configured, and an in-memory sink otherwise.
func (f *DefaultFactory) CreateSinks(ctx context.Context, config Config) (Sinks, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("No spreadsheet configured, keeping summaries in memory")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: config.GoogleSpreadsheetID,
		SummarySheet:  config.GoogleSheetName,
		ClosingsSheet: config.GoogleClosingsSheetName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
	return client, nil
}
