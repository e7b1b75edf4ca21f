package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"pagos/internal/amqp"
	"pagos/internal/core"
	"pagos/internal/sheets"
)

// PaymentReader is the read side of the SQLite repository.
type PaymentReader interface {
	ListPayments(ctx context.Context) ([]core.Payment, error)
	ListPaymentsByDate(ctx context.Context, businessDate string) ([]core.Payment, error)
}

// SyncWorker keeps one summary row per business date in the mirror.
type SyncWorker struct {
	storage PaymentReader
	sheets  sheets.SummaryWriter
	feeRate decimal.Decimal

	mu sync.Mutex
	// dates mirrored so far, so a reconcile can zero a day whose last
	// payment was deleted
	mirrored map[string]struct{}
}

func NewSyncWorker(storage PaymentReader, writer sheets.SummaryWriter, feeRate decimal.Decimal) *SyncWorker {
	return &SyncWorker{
		storage:  storage,
		sheets:   writer,
		feeRate:  feeRate,
		mirrored: map[string]struct{}{},
	}
}

// HandleChange recomputes the rows for every business date a change touched.
// Agent changes do not affect the mirror. A payment change without dates
// falls back to a full reconcile.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Collection != amqp.CollectionPayments {
		slog.DebugContext(ctx, "Ignoring change message", "collection", msg.Collection, "op", msg.Op)
		return nil
	}

	slog.InfoContext(ctx, "Processing change message",
		"op", msg.Op,
		"id", msg.ID,
		"business_dates", msg.BusinessDates)

	if len(msg.BusinessDates) == 0 {
		return w.ReconcileAll(ctx)
	}
	for _, date := range msg.BusinessDates {
		if err := w.SyncDate(ctx, date); err != nil {
			return err
		}
	}
	return nil
}

// SyncDate recomputes and writes the row for one business date.
func (w *SyncWorker) SyncDate(ctx context.Context, date string) error {
	ps, err := w.storage.ListPaymentsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("list payments for %s: %w", date, err)
	}
	return w.write(ctx, date, ps)
}

// ReconcileAll rewrites every row from the full payment list. Dates
// mirrored earlier that no longer hold payments are written as zero rows.
func (w *SyncWorker) ReconcileAll(ctx context.Context) error {
	ps, err := w.storage.ListPayments(ctx)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}

	byDate := map[string][]core.Payment{}
	for _, p := range ps {
		d := p.BusinessDate()
		byDate[d] = append(byDate[d], p)
	}
	w.mu.Lock()
	for d := range w.mirrored {
		if _, ok := byDate[d]; !ok {
			byDate[d] = nil
		}
	}
	w.mu.Unlock()

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var errs []error
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.write(ctx, d, byDate[d]); err != nil {
			errs = append(errs, err)
		}
	}

	slog.InfoContext(ctx, "Reconcile finished",
		"dates", len(dates),
		"payments", len(ps),
		"errors", len(errs))

	return errors.Join(errs...)
}

// StartupSyncCheck rebuilds the mirror at worker startup, recovering from
// change messages published while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if err := w.ReconcileAll(ctx); err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	return nil
}

func (w *SyncWorker) write(ctx context.Context, date string, ps []core.Payment) error {
	row := sheets.SummaryFromStats(date, core.ComputeStats(ps, w.feeRate))
	if err := w.sheets.UpsertDailySummary(ctx, row); err != nil {
		return fmt.Errorf("upsert summary %s: %w", date, err)
	}

	w.mu.Lock()
	w.mirrored[date] = struct{}{}
	w.mu.Unlock()

	slog.DebugContext(ctx, "Summary synced",
		"business_date", date,
		"total", row.Total.String(),
		"count", row.Count)
	return nil
}
