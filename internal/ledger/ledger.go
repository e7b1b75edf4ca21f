// Package ledger owns the live payment snapshot. It follows both store
// collections, recomputes every derived view from the latest snapshot, and
// validates entries before writing them back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
	applog "pagos/internal/log"
	"pagos/internal/metrics"
	"pagos/internal/records"
	"pagos/internal/report"
	"pagos/internal/sheets"
)

// Snapshot is an immutable view of both collections. Version grows with
// every change, local echoes included.
type Snapshot struct {
	Payments []core.Payment
	Agents   []string
	Version  uint64
}

// Query selects the derived views.
type Query struct {
	// Date is the global business date filter; empty shows every date.
	Date          string
	HistorySearch string
	SummarySearch string
}

// Views are the derived views of one snapshot.
type Views struct {
	Query
	Version uint64
	// Payments on the filtered date, newest first.
	Payments []core.Payment
	Stats    core.Stats
	History  []core.Payment
	Summary  []core.AgentTotal
	Agents   []string
}

// Closing is the result of CloseDay.
type Closing struct {
	Date    string
	Stats   core.Stats
	Groups  []core.AgentTotal
	Report  string
	Cleared int
}

type Options struct {
	FeeRate decimal.Decimal
	Policy  core.DuplicatePolicy
	// Archiver receives every closing; optional.
	Archiver sheets.ClosingArchiver
	// RetryDelay between resubscribe attempts (default 2s).
	RetryDelay time.Duration
	Now        func() time.Time
	// Logger defaults to one over slog.Default.
	Logger *applog.Logger
}

type Ledger struct {
	store records.Store
	opts  Options
	log   *applog.StructuredLogger

	mu           sync.RWMutex
	snap         Snapshot
	paymentsLive bool
	agentsLive   bool
	ready        chan struct{}
	readyOnce    sync.Once

	writeMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store records.Store, opts Options) *Ledger {
	if opts.FeeRate.IsZero() {
		opts.FeeRate = core.DefaultFeeRate
	}
	if opts.Policy == "" {
		opts.Policy = core.DuplicateGlobal
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.FromContext(context.Background())
	}
	return &Ledger{
		store: store,
		opts:  opts,
		log:   applog.NewStructuredLogger(opts.Logger),
		ready: make(chan struct{}),
	}
}

// Start subscribes to both collections. Subscriptions that drop are
// retried until Stop.
func (l *Ledger) Start(ctx context.Context) error {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.cancel != nil {
		return errors.New("ledger already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		follow(ctx, l, "payments", l.store.SubscribePayments, l.applyPayments)
	}()
	go func() {
		defer l.wg.Done()
		follow(ctx, l, "agents", l.store.SubscribeAgents, l.applyAgents)
	}()
	return nil
}

// Stop unsubscribes and waits for the followers to exit.
func (l *Ledger) Stop() {
	l.runMu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	l.wg.Wait()
	l.setLive("payments", false)
	l.setLive("agents", false)
}

// Ready is closed once the first payments snapshot has been applied.
func (l *Ledger) Ready() <-chan struct{} { return l.ready }

// Online reports whether both subscriptions are live.
func (l *Ledger) Online() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paymentsLive && l.agentsLive
}

func (l *Ledger) FeeRate() decimal.Decimal { return l.opts.FeeRate }

func (l *Ledger) Policy() core.DuplicatePolicy { return l.opts.Policy }

// SupportsClose reports whether the store can be cleared by CloseDay.
func (l *Ledger) SupportsClose() bool {
	_, ok := l.store.(records.Clearer)
	return ok
}

// Snapshot returns the current snapshot. Its slices must not be modified.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Views derives every view from the current snapshot.
func (l *Ledger) Views(q Query) Views {
	snap := l.Snapshot()
	dated := core.FilterByDate(snap.Payments, q.Date)
	stats := core.ComputeStats(dated, l.opts.FeeRate)
	return Views{
		Query:    q,
		Version:  snap.Version,
		Payments: dated,
		Stats:    stats,
		History:  core.FilterHistory(dated, q.HistorySearch),
		Summary:  core.SummaryGroups(stats, q.SummarySearch),
		Agents:   snap.Agents,
	}
}

// RangeStats aggregates the payments of every business date in
// [start, end] over the current snapshot.
func (l *Ledger) RangeStats(start, end string) (core.Stats, error) {
	return core.RangeStats(l.Snapshot().Payments, start, end, l.opts.FeeRate)
}

// CheckReference is the as-you-type duplicate check. References shorter
// than core.MinReferenceLength are never reported. date scopes the check
// under the same-day policy; empty means today.
func (l *Ledger) CheckReference(reference, excludeID, date string) (core.Payment, bool) {
	if utf8.RuneCountInString(reference) < core.MinReferenceLength {
		return core.Payment{}, false
	}
	if date == "" {
		date = core.BusinessDate(l.opts.Now())
	}
	return core.FindDuplicate(l.Snapshot().Payments, reference, excludeID, l.opts.Policy, date)
}

// Submit validates e and creates a payment.
func (l *Ledger) Submit(ctx context.Context, e core.Entry) (core.Payment, error) {
	if !l.Online() {
		return core.Payment{}, ErrOffline
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	snap := l.Snapshot()
	p, err := e.Build(snap.Payments, "", l.opts.Policy, l.opts.Now())
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(metrics.Reason(err)).Inc()
		return core.Payment{}, err
	}

	id, err := l.store.CreatePayment(ctx, p)
	if err != nil {
		metrics.WriteFailures.WithLabelValues("create").Inc()
		return core.Payment{}, &WriteError{Op: "create", Err: err}
	}
	p.ID = id
	metrics.PaymentsWritten.WithLabelValues("create").Inc()

	l.echo(func(ps []core.Payment) []core.Payment {
		if indexOf(ps, id) >= 0 {
			return nil
		}
		return append(ps, p)
	})
	l.registerAgent(ctx, p.Agent, snap.Agents)

	l.log.LogPaymentWritten(ctx, applog.OpCreate, p)
	return p, nil
}

// Update validates e and replaces payment id, keeping its identity.
func (l *Ledger) Update(ctx context.Context, id string, e core.Entry) (core.Payment, error) {
	if !l.Online() {
		return core.Payment{}, ErrOffline
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	snap := l.Snapshot()
	if indexOf(snap.Payments, id) < 0 {
		return core.Payment{}, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	p, err := e.Build(snap.Payments, id, l.opts.Policy, l.opts.Now())
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(metrics.Reason(err)).Inc()
		return core.Payment{}, err
	}
	p.ID = id

	if err := l.store.UpdatePayment(ctx, p); err != nil {
		metrics.WriteFailures.WithLabelValues("update").Inc()
		return core.Payment{}, &WriteError{Op: "update", Err: err}
	}
	metrics.PaymentsWritten.WithLabelValues("update").Inc()

	l.echo(func(ps []core.Payment) []core.Payment {
		i := indexOf(ps, id)
		if i < 0 {
			return nil
		}
		ps[i] = p
		return ps
	})
	l.registerAgent(ctx, p.Agent, snap.Agents)

	l.log.LogPaymentWritten(ctx, applog.OpUpdate, p)
	return p, nil
}

// Delete removes payment id. It is irreversible, so confirmed must be set.
func (l *Ledger) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if !l.Online() {
		return ErrOffline
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.store.DeletePayment(ctx, id); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return fmt.Errorf("payment %s: %w", id, ErrNotFound)
		}
		metrics.WriteFailures.WithLabelValues("delete").Inc()
		return &WriteError{Op: "delete", Err: err}
	}
	metrics.PaymentsWritten.WithLabelValues("delete").Inc()

	l.echo(func(ps []core.Payment) []core.Payment {
		i := indexOf(ps, id)
		if i < 0 {
			return nil
		}
		return append(ps[:i], ps[i+1:]...)
	})

	slog.InfoContext(ctx, "Payment deleted", applog.FieldPaymentID, id)
	return nil
}

// CloseDay builds the closing report for date, filtered by summarySearch,
// and then clears every payment in the store. Only stores implementing
// records.Clearer support it.
func (l *Ledger) CloseDay(ctx context.Context, date, summarySearch string, confirmed bool) (Closing, error) {
	if !confirmed {
		return Closing{}, ErrNotConfirmed
	}
	clearer, ok := l.store.(records.Clearer)
	if !ok {
		return Closing{}, ErrCloseUnsupported
	}
	if !l.Online() {
		return Closing{}, ErrOffline
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	v := l.Views(Query{Date: date, SummarySearch: summarySearch})
	c := Closing{
		Date:    date,
		Stats:   v.Stats,
		Groups:  v.Summary,
		Report:  report.ClosingText(date, l.opts.FeeRate, v.Stats, v.Summary),
		Cleared: len(l.Snapshot().Payments),
	}

	if err := clearer.ClearPayments(ctx); err != nil {
		metrics.WriteFailures.WithLabelValues("clear").Inc()
		return Closing{}, &WriteError{Op: "clear", Err: err}
	}
	metrics.PaymentsWritten.WithLabelValues("clear").Add(float64(c.Cleared))
	l.echo(func([]core.Payment) []core.Payment { return []core.Payment{} })

	if l.opts.Archiver != nil {
		archived := sheets.Closing{
			Date:     date,
			Summary:  sheets.SummaryFromStats(date, v.Stats),
			Report:   c.Report,
			ClosedAt: l.opts.Now(),
		}
		if err := l.opts.Archiver.ArchiveClosing(ctx, archived); err != nil {
			l.log.LogError(ctx, "Failed to archive closing", err, applog.ComponentSheets, applog.OpClose,
				applog.LogFields{applog.FieldBusinessDate: date})
		}
	}

	slog.InfoContext(ctx, "Day closed",
		"business_date", date,
		"cleared", c.Cleared,
		"total", v.Stats.Total.String())
	return c, nil
}

// registerAgent adds a name the agents snapshot does not know yet. A
// failure is logged: the payment itself is already stored.
func (l *Ledger) registerAgent(ctx context.Context, name string, known []string) {
	for _, a := range known {
		if a == name {
			return
		}
	}
	if err := l.store.AddAgent(ctx, name); err != nil {
		slog.WarnContext(ctx, "Failed to register agent", "agent", name, "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.snap.Agents {
		if a == name {
			return
		}
	}
	l.snap.Agents = records.SortedAgents(append(append([]string(nil), l.snap.Agents...), name))
	l.snap.Version++
}

// echo applies a local change to a copy of the payments snapshot until the
// store pushes its own. mutate returns nil to leave the snapshot alone.
func (l *Ledger) echo(mutate func([]core.Payment) []core.Payment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := mutate(append([]core.Payment(nil), l.snap.Payments...))
	if next == nil {
		return
	}
	core.SortPayments(next)
	l.snap.Payments = next
	l.snap.Version++
}

func (l *Ledger) applyPayments(ps []core.Payment) {
	l.mu.Lock()
	l.snap.Payments = ps
	l.snap.Version++
	l.mu.Unlock()
	metrics.SnapshotsApplied.WithLabelValues("payments").Inc()
	l.readyOnce.Do(func() { close(l.ready) })
}

func (l *Ledger) applyAgents(agents []string) {
	l.mu.Lock()
	l.snap.Agents = agents
	l.snap.Version++
	l.mu.Unlock()
	metrics.SnapshotsApplied.WithLabelValues("agents").Inc()
}

func (l *Ledger) setLive(collection string, live bool) {
	l.mu.Lock()
	if collection == "payments" {
		l.paymentsLive = live
	} else {
		l.agentsLive = live
	}
	online := l.paymentsLive && l.agentsLive
	l.mu.Unlock()

	if online {
		metrics.Online.Set(1)
	} else {
		metrics.Online.Set(0)
	}
}

// follow keeps one subscription alive until ctx ends. The collection is
// live from its first snapshot until its channel closes.
func follow[T any](ctx context.Context, l *Ledger, collection string,
	subscribe func(context.Context) (<-chan T, error), apply func(T)) {
	for {
		ch, err := subscribe(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Subscribe failed", "collection", collection, "error", err)
		} else {
			first := true
			for v := range ch {
				apply(v)
				if first {
					l.setLive(collection, true)
					first = false
				}
			}
			l.setLive(collection, false)
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "Subscription lost", "collection", collection)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.opts.RetryDelay):
		}
	}
}

func indexOf(ps []core.Payment, id string) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}
	return -1
}
