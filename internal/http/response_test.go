package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pagos/internal/core"
	"pagos/internal/ledger"
)

func TestReply_Events(t *testing.T) {
	w := httptest.NewRecorder()

	Reply(http.StatusCreated).
		PaymentsChanged("2025-03-10").
		FormReset().
		Notify(notifySuccess, "Pago registrado").
		Fragment("success", "Pago registrado").
		Send(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	var events map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{"payments:changed", "form:reset", "show-notification"} {
		if _, ok := events[name]; !ok {
			t.Errorf("HX-Trigger missing %q", name)
		}
	}
	if string(events["payments:changed"]) != `{"date":"2025-03-10"}` {
		t.Errorf("payments:changed detail = %s", events["payments:changed"])
	}
	if !strings.Contains(string(events["show-notification"]), `"duration":3000`) {
		t.Errorf("show-notification detail = %s", events["show-notification"])
	}
	if w.Body.String() != `<div class="success">Pago registrado</div>` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestReply_DayClosedAndErrorDuration(t *testing.T) {
	w := httptest.NewRecorder()
	Reply(http.StatusOK).DayClosed("2025-03-10", 4).Notify(notifyError, "x").Send(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"day:closed"`, `"cleared":4`, `"duration":5000`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %s: %s", part, trigger)
		}
	}
}

func TestReply_NoEventsNoHeader(t *testing.T) {
	w := httptest.NewRecorder()
	Reply(http.StatusOK).HTML("<p>ok</p>").Send(w)

	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger = %q, want empty", w.Header().Get("HX-Trigger"))
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReply_JSON(t *testing.T) {
	w := httptest.NewRecorder()
	Reply(http.StatusOK).JSON(map[string]int{"n": 1}).Send(w)

	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("body = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	Reply(http.StatusOK).JSON(func() {}).Send(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("unencodable value status = %d, want 500", w.Code)
	}
}

func TestFailure_EscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Failure(http.StatusUnprocessableEntity, "<script>x</script>").Set("Retry-After", "60").Send(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Error("custom header lost")
	}
}

func TestLedgerFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "duplicate",
			err:        &core.DuplicateError{Reference: "1234", Agent: "Liam", BusinessDate: "2025-03-09"},
			wantStatus: http.StatusConflict,
			wantBody:   "⚠️ DUPLICADA. Registrada el 09/03/2025 por Liam",
		},
		{"missing fields", core.ErrMissingFields, http.StatusUnprocessableEntity, msgMissingFields},
		{"short reference", core.ErrReferenceTooShort, http.StatusUnprocessableEntity, msgShortReference},
		{"invalid amount", fmt.Errorf("amount: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity, msgInvalidAmount},
		{"invalid date", core.ErrInvalidDate, http.StatusUnprocessableEntity, msgInvalidDate},
		{"invalid range", core.ErrInvalidRange, http.StatusUnprocessableEntity, msgInvalidRange},
		{"not confirmed", ledger.ErrNotConfirmed, http.StatusPreconditionRequired, msgNotConfirmed},
		{"not found", ledger.ErrNotFound, http.StatusNotFound, msgNotFound},
		{"close unsupported", ledger.ErrCloseUnsupported, http.StatusNotImplemented, msgCloseDisabled},
		{"offline", ledger.ErrOffline, http.StatusServiceUnavailable, msgConnection},
		{"write failure", &ledger.WriteError{Op: "create", Err: errors.New("disk full")}, http.StatusServiceUnavailable, msgConnection},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, msgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			LedgerFailure(tt.err, false).Send(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestLedgerFailure_JSONDuplicate(t *testing.T) {
	w := httptest.NewRecorder()
	LedgerFailure(fmt.Errorf("submit: %w", &core.DuplicateError{Reference: "1234", Agent: "Liam", BusinessDate: "2025-03-09"}), true).Send(w)

	var body apiError
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Duplicate == nil || body.Duplicate.Agent != "Liam" || body.Duplicate.BusinessDate != "2025-03-09" {
		t.Errorf("duplicate = %+v", body.Duplicate)
	}
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}
