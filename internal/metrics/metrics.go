// Package metrics holds the Prometheus collectors of both binaries.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pagos/internal/core"
)

const namespace = "pagos"

var PaymentsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "payments_written_total",
	Help:      "Payments written to the store by operation (create, update, delete, clear).",
}, []string{"op"})

var ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "validation_failures_total",
	Help:      "Rejected entries by reason.",
}, []string{"reason"})

var WriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "write_failures_total",
	Help:      "Store writes that failed, by operation.",
}, []string{"op"})

var SnapshotsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "snapshots_applied_total",
	Help:      "Snapshots received from the store, by collection.",
}, []string{"collection"})

var Online = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "online",
	Help:      "1 while both store subscriptions are live.",
})

var RateFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "rates",
	Name:      "fetches_total",
	Help:      "Exchange rate fetches by outcome (ok, error).",
}, []string{"outcome"})

var SummarySyncs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "worker",
	Name:      "summary_syncs_total",
	Help:      "Change messages handled by the mirror worker, by outcome.",
}, []string{"outcome"})

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method and status code.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "code"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

var SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "suspicious_requests_total",
	Help:      "Requests matching a known attack pattern.",
})

// Reason maps a validation error to its label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, core.ErrReferenceTooShort):
		return "reference_too_short"
	case errors.Is(err, core.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, core.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, core.ErrDuplicate):
		return "duplicate"
	default:
		return "other"
	}
}
