package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
)

// DailySummary is the mirrored row for one business date.
type DailySummary struct {
	Date  string
	Total decimal.Decimal
	Fee   decimal.Decimal
	Net   decimal.Decimal
	Count int
}

// Closing is an archived end-of-day report.
type Closing struct {
	Date     string // business date filter, empty for all dates
	Summary  DailySummary
	Report   string
	ClosedAt time.Time
}

// SummaryFromStats folds stats for one business date into a mirror row.
func SummaryFromStats(date string, s core.Stats) DailySummary {
	count := 0
	for _, a := range s.PerAgent {
		count += a.Count
	}
	return DailySummary{
		Date:  date,
		Total: s.Total,
		Fee:   s.Profit,
		Net:   s.NetRemainder,
		Count: count,
	}
}

// Ports for outbound adapters.
type (
	// SummaryWriter keeps one row per business date. Writing the same date
	// twice replaces the row.
	SummaryWriter interface {
		UpsertDailySummary(ctx context.Context, s DailySummary) error
	}

	// ClosingArchiver appends closing reports.
	ClosingArchiver interface {
		ArchiveClosing(ctx context.Context, c Closing) error
	}
)
