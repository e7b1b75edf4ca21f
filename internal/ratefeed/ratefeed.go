// Package ratefeed loads the two informational exchange rates shown next to
// the totals. Rates are display data only; a failed load leaves zeros.
package ratefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"pagos/internal/metrics"
)

const (
	DefaultURL           = "https://ve.dolarapi.com/v1/dolares"
	DefaultOfficialLabel = "oficial"
	DefaultParallelLabel = "paralelo"
)

type State string

const (
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
)

// Rates is the feed state. Official and Parallel stay zero until loaded and
// after a failed load.
type Rates struct {
	State    State           `json:"state"`
	Official decimal.Decimal `json:"official"`
	Parallel decimal.Decimal `json:"parallel"`
	// Error is set when the load failed.
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

type Options struct {
	URL           string
	OfficialLabel string
	ParallelLabel string
	Client        *http.Client
}

// Feed loads the rates once. Concurrent loads share a single request.
type Feed struct {
	url      string
	official string
	parallel string
	client   *http.Client

	group singleflight.Group

	mu    sync.RWMutex
	rates Rates
}

func New(opts Options) *Feed {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.OfficialLabel == "" {
		opts.OfficialLabel = DefaultOfficialLabel
	}
	if opts.ParallelLabel == "" {
		opts.ParallelLabel = DefaultParallelLabel
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Feed{
		url:      opts.URL,
		official: opts.OfficialLabel,
		parallel: opts.ParallelLabel,
		client:   opts.Client,
		rates:    Rates{State: StateLoading, Official: decimal.Zero, Parallel: decimal.Zero},
	}
}

// Rates returns the current state without loading.
func (f *Feed) Rates() Rates {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rates
}

// Load fetches the rates unless they are already loaded, and returns the
// resulting state. Failures are logged and reported as loaded zeros.
func (f *Feed) Load(ctx context.Context) Rates {
	if r := f.Rates(); r.State == StateLoaded {
		return r
	}

	v, _, _ := f.group.Do("rates", func() (any, error) {
		if r := f.Rates(); r.State == StateLoaded {
			return r, nil
		}
		r := Rates{State: StateLoaded, Official: decimal.Zero, Parallel: decimal.Zero, FetchedAt: time.Now()}
		official, parallel, err := f.fetch(ctx)
		if err != nil {
			metrics.RateFetches.WithLabelValues("error").Inc()
			slog.WarnContext(ctx, "Failed to load exchange rates", "url", f.url, "error", err)
			r.Error = err.Error()
		} else {
			metrics.RateFetches.WithLabelValues("ok").Inc()
			r.Official, r.Parallel = official, parallel
			slog.InfoContext(ctx, "Exchange rates loaded",
				"official", official.String(),
				"parallel", parallel.String())
		}

		f.mu.Lock()
		f.rates = r
		f.mu.Unlock()
		return r, nil
	})
	return v.(Rates)
}

type quote struct {
	Source  string          `json:"fuente"`
	Average decimal.Decimal `json:"promedio"`
}

func (f *Feed) fetch(ctx context.Context) (official, parallel decimal.Decimal, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("get rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, decimal.Zero, fmt.Errorf("get rates: status %d", resp.StatusCode)
	}

	var quotes []quote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}

	official, parallel = decimal.Zero, decimal.Zero
	for _, q := range quotes {
		switch q.Source {
		case f.official:
			official = q.Average
		case f.parallel:
			parallel = q.Average
		}
	}
	return official, parallel, nil
}
