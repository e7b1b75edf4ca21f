package http

import (
	"bytes"
	"net/http"
	"time"

	"pagos/internal/core"
	"pagos/internal/ledger"
	applog "pagos/internal/log"
	"pagos/internal/ratefeed"
)

// pageData is rendered by index.html and its partials.
type pageData struct {
	ledger.Views
	Today    string
	Online   bool
	CanClose bool
	Rates    ratefeed.Rates
}

func (s *Server) today() string {
	return core.BusinessDate(s.now())
}

func (s *Server) pageData(r *http.Request) pageData {
	today := s.today()
	d := pageData{
		Views:    s.ledger.Views(ParseViewQuery(r.URL.Query(), today)),
		Today:    today,
		Online:   s.ledger.Online(),
		CanClose: s.ledger.SupportsClose(),
	}
	if s.rates != nil {
		d.Rates = s.rates.Rates()
	} else {
		d.Rates = ratefeed.Rates{State: ratefeed.StateLoaded}
	}
	return d
}

// render executes name into a buffer first so a template error never
// leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldOperation, applog.OpRender)
		Failure(http.StatusInternalServerError, msgInternal).Send(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name)
		Failure(http.StatusInternalServerError, "Error al mostrar la página").Send(w)
		return
	}
	Reply(http.StatusOK).Blob("text/html; charset=utf-8", buf.Bytes()).Send(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", s.pageData(r))
}

func (s *Server) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "stats.html", s.pageData(r))
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "summary.html", s.pageData(r))
}

func (s *Server) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "history.html", s.pageData(r))
}

// handleCheckReference answers the as-you-type duplicate check with a
// warning fragment, or an empty body when the reference is free.
func (s *Server) handleCheckReference(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := sanitizeInput(q.Get("reference"))
	dup, found := s.ledger.CheckReference(ref, sanitizeInput(q.Get("exclude")), sanitizeInput(q.Get("date")))

	if wantsJSON(r) {
		body := map[string]any{"reference": ref, "duplicate": found}
		if found {
			body["agent"] = dup.Agent
			body["business_date"] = dup.BusinessDate()
		}
		Reply(http.StatusOK).JSON(body).Send(w)
		return
	}
	if !found {
		Reply(http.StatusOK).HTML("").Send(w)
		return
	}
	Reply(http.StatusOK).Fragment("warning", "⚠️ Existe: "+ref).Send(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	Reply(http.StatusOK).JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Send(w)
}

// handleReady reports ready once the first snapshot arrived and the
// templates parsed. An offline store is reported but does not fail the
// probe: reads keep working from the last snapshot.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	select {
	case <-s.ledger.Ready():
		checks["snapshot"] = "ok"
	default:
		checks["snapshot"] = "waiting"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.ledger.Online() {
		checks["store"] = "online"
	} else {
		checks["store"] = "offline"
	}

	if s.rates != nil {
		checks["rates"] = string(s.rates.Rates().State)
	}

	hits, misses := s.rangeCache.Stats()
	checks["cache"] = map[string]any{
		"range_entries": s.rangeCache.Size(),
		"pdf_entries":   s.pdfCache.Size(),
		"range_hits":    hits,
		"range_misses":  misses,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	Reply(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Send(w)
}
