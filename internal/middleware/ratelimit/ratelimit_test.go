package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("1.1.1.1") {
		t.Error("fourth request in the window allowed")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other client rejected")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Error("request after the window rejected")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("1.1.1.1")

	now = now.Add(11 * time.Minute)
	rl.Allow("2.2.2.2")
	rl.cleanupStaleEntries()

	if n := rl.ActiveClients(); n != 1 {
		t.Errorf("ActiveClients() = %d, want 1", n)
	}
}

func TestLimiter_MiddlewareMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "1.1.1.1" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/payments", nil))
		return rec.Code
	}

	if code := do(http.MethodPost); code != http.StatusNoContent {
		t.Fatalf("first POST = %d", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Errorf("second POST = %d, want 429", code)
	}
	for i := 0; i < 3; i++ {
		if code := do(http.MethodGet); code != http.StatusNoContent {
			t.Errorf("GET = %d, reads are not limited", code)
		}
	}
}
