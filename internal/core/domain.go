package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MinReferenceLength is the shortest reference accepted on submit, and the
// length at which the reactive duplicate check starts.
const MinReferenceLength = 4

type (
	// Payment is one collected payment as held by the record store.
	Payment struct {
		ID        string          `json:"id"`
		Agent     string          `json:"agent"`
		Amount    decimal.Decimal `json:"amount"`
		Reference string          `json:"reference"`
		Timestamp time.Time       `json:"timestamp"`
	}

	// Entry is the raw form input for a new or edited payment.
	Entry struct {
		Agent     string
		Amount    string
		Reference string
		// Date is the business date the payment is filed under. Empty means
		// the current business date.
		Date string
	}
)

var (
	ErrMissingFields     = errors.New("missing required fields")
	ErrReferenceTooShort = errors.New("reference too short")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid business date")
	ErrInvalidRange      = errors.New("invalid date range")
	ErrDuplicate         = errors.New("duplicate reference")
)

// DuplicateError reports the payment that already owns a reference.
type DuplicateError struct {
	Reference    string
	Agent        string
	BusinessDate string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate reference %q: registered on %s by %s", e.Reference, e.BusinessDate, e.Agent)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// BusinessDate of the payment, see BusinessDate.
func (p Payment) BusinessDate() string {
	return BusinessDate(p.Timestamp)
}

// Build validates the entry against the current snapshot and returns the
// payment it describes. The returned payment has no ID; excludeID names the
// record being edited, if any.
//
// Checks run in order and stop at the first failure: required fields,
// reference length, amount, business date, duplicate reference.
func (e Entry) Build(snapshot []Payment, excludeID string, policy DuplicatePolicy, now time.Time) (Payment, error) {
	agent := strings.TrimSpace(e.Agent)
	reference := strings.TrimSpace(e.Reference)
	if agent == "" || strings.TrimSpace(e.Amount) == "" || reference == "" {
		return Payment{}, ErrMissingFields
	}
	if utf8.RuneCountInString(reference) < MinReferenceLength {
		return Payment{}, ErrReferenceTooShort
	}
	amount, err := ParseAmount(e.Amount)
	if err != nil {
		return Payment{}, err
	}

	date := strings.TrimSpace(e.Date)
	if date == "" {
		date = BusinessDate(now)
	}
	ts, err := PaymentTimestamp(date, now)
	if err != nil {
		return Payment{}, err
	}

	if dup, ok := FindDuplicate(snapshot, reference, excludeID, policy, date); ok {
		return Payment{}, &DuplicateError{
			Reference:    reference,
			Agent:        dup.Agent,
			BusinessDate: dup.BusinessDate(),
		}
	}

	return Payment{
		Agent:     agent,
		Amount:    amount,
		Reference: reference,
		Timestamp: ts,
	}, nil
}

// Validate runs the same checks as Build and discards the payment.
func (e Entry) Validate(snapshot []Payment, excludeID string, policy DuplicatePolicy, now time.Time) error {
	_, err := e.Build(snapshot, excludeID, policy, now)
	return err
}
