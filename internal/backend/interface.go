// Package backend builds the record store and the spreadsheet sinks named
// by the configuration.
package backend

import (
	"context"

	"pagos/internal/records"
	"pagos/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is a ready record store.
type BackendResult struct {
	Store   records.Store
	Cleanup CleanupFunc
	// Listen follows change messages from other processes until ctx ends.
	// Nil when the store has no cross-process feed.
	Listen func(ctx context.Context) error
}

// Sinks receive the spreadsheet mirror writes.
type Sinks interface {
	sheets.SummaryWriter
	sheets.ClosingArchiver
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateSinks(ctx context.Context, config Config) (Sinks, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	// AMQPQueue is empty for app processes, which consume on an exclusive
	// queue of their own.
	AMQPQueue string

	// Local (bolt) specific
	LocalDBPath string

	// Memory specific
	SeedDir string

	// Sheets mirror; empty SpreadsheetID selects the in-memory sink.
	GoogleSpreadsheetID     string
	GoogleSheetName         string
	GoogleClosingsSheetName string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	LocalBackend  BackendType = "local"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, LocalBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
