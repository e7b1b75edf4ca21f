package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"pagos/internal/amqp"
	"pagos/internal/core"
	"pagos/internal/records"
	"pagos/internal/services"
	"pagos/internal/storage"
)

// SQLiteAdapter turns SQLiteRepository and PaymentService into a
// records.Store. Snapshots are re-read after local writes and whenever a
// change message arrives from another process.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.PaymentService

	payments records.Feed[[]core.Payment]
	agents   records.Feed[[]string]

	// listening is set once Listen runs; from then on subscriptions follow
	// the broker connection.
	listening atomic.Bool
	online    atomic.Bool
}

var _ records.Store = (*SQLiteAdapter)(nil)

// NewSQLiteAdapter loads the initial snapshots.
func NewSQLiteAdapter(ctx context.Context, storage *storage.SQLiteRepository, service *services.PaymentService) (*SQLiteAdapter, error) {
	a := &SQLiteAdapter{
		storage: storage,
		service: service,
	}
	a.online.Store(true)
	if err := a.reloadPayments(ctx); err != nil {
		return nil, err
	}
	if err := a.reloadAgents(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SQLiteAdapter) CreatePayment(ctx context.Context, p core.Payment) (string, error) {
	id, err := a.service.CreatePayment(ctx, p)
	if err != nil {
		return "", err
	}
	a.refresh(ctx, amqp.CollectionPayments)
	return id, nil
}

func (a *SQLiteAdapter) UpdatePayment(ctx context.Context, p core.Payment) error {
	if err := a.service.UpdatePayment(ctx, p); err != nil {
		return err
	}
	a.refresh(ctx, amqp.CollectionPayments)
	return nil
}

func (a *SQLiteAdapter) DeletePayment(ctx context.Context, id string) error {
	if err := a.service.DeletePayment(ctx, id); err != nil {
		return err
	}
	a.refresh(ctx, amqp.CollectionPayments)
	return nil
}

func (a *SQLiteAdapter) AddAgent(ctx context.Context, name string) error {
	if err := a.service.AddAgent(ctx, name); err != nil {
		return err
	}
	a.refresh(ctx, amqp.CollectionAgents)
	return nil
}

func (a *SQLiteAdapter) SubscribePayments(ctx context.Context) (<-chan []core.Payment, error) {
	if a.listening.Load() && !a.online.Load() {
		return nil, records.ErrUnavailable
	}
	return a.payments.Subscribe(ctx), nil
}

func (a *SQLiteAdapter) SubscribeAgents(ctx context.Context) (<-chan []string, error) {
	if a.listening.Load() && !a.online.Load() {
		return nil, records.ErrUnavailable
	}
	return a.agents.Subscribe(ctx), nil
}

// HandleChange re-reads the collection named by msg. It is the AMQP
// handler for this process's own queue.
func (a *SQLiteAdapter) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	switch msg.Collection {
	case amqp.CollectionPayments:
		return a.reloadPayments(ctx)
	case amqp.CollectionAgents:
		return a.reloadAgents(ctx)
	default:
		slog.WarnContext(ctx, "Unknown collection in change message", "collection", msg.Collection)
		return nil
	}
}

// Listen consumes change messages until ctx ends. While the broker is
// unreachable every subscription is closed and new ones are refused.
func (a *SQLiteAdapter) Listen(ctx context.Context, client *amqp.Client) error {
	a.listening.Store(true)
	return client.Listen(ctx, a.HandleChange,
		func() {
			a.refresh(ctx, amqp.CollectionPayments)
			a.refresh(ctx, amqp.CollectionAgents)
			a.online.Store(true)
		},
		func() {
			a.online.Store(false)
			a.payments.Drop()
			a.agents.Drop()
		})
}

// Close ends every subscription and closes the service.
func (a *SQLiteAdapter) Close() error {
	a.payments.Close()
	a.agents.Close()
	if a.service != nil {
		return a.service.Close()
	}
	return nil
}

// refresh logs instead of failing: the write it follows already committed.
func (a *SQLiteAdapter) refresh(ctx context.Context, collection string) {
	var err error
	if collection == amqp.CollectionAgents {
		err = a.reloadAgents(ctx)
	} else {
		err = a.reloadPayments(ctx)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload snapshot", "collection", collection, "error", err)
	}
}

func (a *SQLiteAdapter) reloadPayments(ctx context.Context) error {
	ps, err := a.storage.ListPayments(ctx)
	if err != nil {
		return fmt.Errorf("reload payments: %w", err)
	}
	a.payments.Publish(ps)
	return nil
}

func (a *SQLiteAdapter) reloadAgents(ctx context.Context) error {
	agents, err := a.storage.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("reload agents: %w", err)
	}
	a.agents.Publish(agents)
	return nil
}
