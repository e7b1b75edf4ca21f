package ratefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleBody = `[
	{"fuente": "oficial", "nombre": "Oficial", "promedio": 36.52},
	{"fuente": "paralelo", "nombre": "Paralelo", "promedio": 39.1},
	{"fuente": "bitcoin", "promedio": 40}
]`

func TestFeed_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	f := New(Options{URL: srv.URL})
	if got := f.Rates(); got.State != StateLoading || !got.Official.IsZero() {
		t.Fatalf("initial Rates() = %+v, want loading zeros", got)
	}

	got := f.Load(context.Background())
	if got.State != StateLoaded || got.Error != "" {
		t.Fatalf("Load() = %+v", got)
	}
	if !got.Official.Equal(decimal.RequireFromString("36.52")) {
		t.Errorf("Official = %s, want 36.52", got.Official)
	}
	if !got.Parallel.Equal(decimal.RequireFromString("39.1")) {
		t.Errorf("Parallel = %s, want 39.1", got.Parallel)
	}
}

func TestFeed_CustomLabels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	f := New(Options{URL: srv.URL, OfficialLabel: "bitcoin", ParallelLabel: "missing"})
	got := f.Load(context.Background())
	if !got.Official.Equal(decimal.NewFromInt(40)) || !got.Parallel.IsZero() {
		t.Errorf("Load() = %+v", got)
	}
}

func TestFeed_FailureDegradesToZero(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"fuente":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got := New(Options{URL: srv.URL}).Load(context.Background())
			if got.State != StateLoaded || got.Error == "" {
				t.Fatalf("Load() = %+v, want loaded with error", got)
			}
			if !got.Official.IsZero() || !got.Parallel.IsZero() {
				t.Errorf("Load() = %+v, want zero rates", got)
			}
		})
	}
}

func TestFeed_LoadsOnce(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	f := New(Options{URL: srv.URL})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Load(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	f.Load(context.Background())
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}
