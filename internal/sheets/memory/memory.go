// Package memory is an in-process sheets sink, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"pagos/internal/sheets"
)

type Sink struct {
	mu        sync.Mutex
	summaries map[string]sheets.DailySummary
	closings  []sheets.Closing
}

var (
	_ sheets.SummaryWriter   = (*Sink)(nil)
	_ sheets.ClosingArchiver = (*Sink)(nil)
)

func New() *Sink {
	return &Sink{summaries: map[string]sheets.DailySummary{}}
}

func (s *Sink) UpsertDailySummary(_ context.Context, row sheets.DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[row.Date] = row
	return nil
}

func (s *Sink) ArchiveClosing(_ context.Context, c sheets.Closing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closings = append(s.closings, c)
	return nil
}

// Summaries returns every row ordered by date ascending.
func (s *Sink) Summaries() []sheets.DailySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.DailySummary, 0, len(s.summaries))
	for _, row := range s.summaries {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Sink) Summary(date string) (sheets.DailySummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.summaries[date]
	return row, ok
}

func (s *Sink) Closings() []sheets.Closing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Closing(nil), s.closings...)
}
