package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pagos/internal/config"
	"pagos/internal/core"
	"pagos/internal/storage"
)

// repository is the part of the SQLite store the commands read.
type repository interface {
	ListPayments(ctx context.Context) ([]core.Payment, error)
	ListAgents(ctx context.Context) ([]string, error)
	Close() error
}

// openRepository is swapped in tests.
var openRepository = func(path string) (repository, error) {
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// now is swapped in tests.
var now = time.Now

var (
	dbPath  string
	feeRate string
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "pagosctl",
		Short: "Inspect the payment ledger from the terminal",
		Long: `pagosctl reads the SQLite payment store used by the pagos server and
prints daily reports, range totals and the agent roster.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&dbPath, "db", cfg.SQLiteDBPath, "Path to the SQLite database")
	root.PersistentFlags().StringVar(&feeRate, "fee", cfg.FeeRate.String(), "Fee rate applied to totals")

	root.AddCommand(newReportCmd(), newRangeCmd(), newAgentsCmd(), newMigrateCmd())
	return root
}

func parsedFee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(feeRate)
	if err != nil || !fee.IsPositive() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("invalid fee rate %q: must be between 0 and 1", feeRate)
	}
	return fee, nil
}

// withPayments opens the store, loads every payment and closes it again.
func withPayments(ctx context.Context) ([]core.Payment, error) {
	repo, err := openRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer repo.Close()
	return repo.ListPayments(ctx)
}
