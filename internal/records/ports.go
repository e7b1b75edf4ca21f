// Package records defines the record store the ledger projects from: two
// collections (payments and agent names) with writes and live snapshot
// subscriptions.
package records

import (
	"context"
	"errors"

	"pagos/internal/core"
)

var (
	// ErrNotFound is returned when an update or delete targets an unknown id.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned by Subscribe while a backend has lost its
	// change feed.
	ErrUnavailable = errors.New("record feed unavailable")
)

// Ports for record store backends.
type (
	PaymentWriter interface {
		// CreatePayment stores p and returns the id assigned to it. p.ID is ignored.
		CreatePayment(ctx context.Context, p core.Payment) (id string, err error)
		// UpdatePayment replaces the payment with id p.ID.
		UpdatePayment(ctx context.Context, p core.Payment) error
		DeletePayment(ctx context.Context, id string) error
	}

	AgentWriter interface {
		// AddAgent registers name. Registering a known name is a no-op.
		AddAgent(ctx context.Context, name string) error
	}

	// Subscriber pushes the full ordered collection on subscribe and after
	// every change. Payments arrive newest first, agents by name ascending.
	// A channel is closed when ctx ends or when the backend loses its feed;
	// the caller may subscribe again. Received slices are shared and must not
	// be modified.
	Subscriber interface {
		SubscribePayments(ctx context.Context) (<-chan []core.Payment, error)
		SubscribeAgents(ctx context.Context) (<-chan []string, error)
	}

	Store interface {
		PaymentWriter
		AgentWriter
		Subscriber
	}

	// Clearer is implemented by single-tenant stores that allow the closing
	// reset to wipe every payment.
	Clearer interface {
		ClearPayments(ctx context.Context) error
	}
)
