package ledger

import (
	"errors"
	"fmt"

	"pagos/internal/records"
)

var (
	// ErrNotConfirmed is returned by destructive operations called without
	// explicit confirmation.
	ErrNotConfirmed = errors.New("confirmation required")
	// ErrOffline is returned by writes attempted while a store subscription
	// is down.
	ErrOffline = errors.New("store offline")
	// ErrNotFound is the store's unknown-id error.
	ErrNotFound = records.ErrNotFound
	// ErrCloseUnsupported is returned by CloseDay on stores that cannot be
	// cleared.
	ErrCloseUnsupported = errors.New("closing not supported by this store")
)

// WriteError wraps a failed store write. Local state is left as it was.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s payment: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
