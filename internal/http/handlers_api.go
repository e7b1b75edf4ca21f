package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
	applog "pagos/internal/log"
	"pagos/internal/report"
)

// statsResponse flattens core.Stats with the agents in summary order.
type statsResponse struct {
	Date         string            `json:"date,omitempty"`
	Start        string            `json:"start,omitempty"`
	End          string            `json:"end,omitempty"`
	FeeRate      decimal.Decimal   `json:"fee_rate"`
	Total        decimal.Decimal   `json:"total"`
	Profit       decimal.Decimal   `json:"profit"`
	NetRemainder decimal.Decimal   `json:"net_remainder"`
	Count        int               `json:"count"`
	Agents       []core.AgentTotal `json:"agents"`
}

func (s *Server) newStatsResponse(stats core.Stats) statsResponse {
	groups := core.SummaryGroups(stats, "")
	count := 0
	for _, g := range groups {
		count += g.Count
	}
	return statsResponse{
		FeeRate:      s.ledger.FeeRate(),
		Total:        stats.Total,
		Profit:       stats.Profit,
		NetRemainder: stats.NetRemainder,
		Count:        count,
		Agents:       groups,
	}
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	v := s.ledger.Views(ParseViewQuery(r.URL.Query(), s.today()))
	resp := s.newStatsResponse(v.Stats)
	resp.Date = v.Date
	Reply(http.StatusOK).JSON(resp).Send(w)
}

func (s *Server) handleAPIRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := sanitizeInput(q.Get("start")), sanitizeInput(q.Get("end"))
	key := strconv.FormatUint(s.ledger.Snapshot().Version, 10) + "|" + start + "|" + end
	stats, err := s.rangeCache.GetOrCompute(key, func() (core.Stats, error) {
		return s.ledger.RangeStats(start, end)
	})
	if err != nil {
		LedgerFailure(err, true).Send(w)
		return
	}
	resp := s.newStatsResponse(stats)
	resp.Start, resp.End = start, end
	Reply(http.StatusOK).JSON(resp).Send(w)
}

func (s *Server) handleAPIRates(w http.ResponseWriter, r *http.Request) {
	if s.rates == nil {
		Reply(http.StatusOK).JSON(map[string]string{"state": "disabled"}).Send(w)
		return
	}
	Reply(http.StatusOK).JSON(s.rates.Rates()).Send(w)
}

// handleReportPDF renders the payments of the date filter as a PDF
// download. Rendered bytes are cached per snapshot version and filter.
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	v := s.ledger.Views(ParseViewQuery(r.URL.Query(), s.today()))

	key := strconv.FormatUint(v.Version, 10) + "|" + v.Date
	body, err := s.pdfCache.GetOrCompute(key, func() ([]byte, error) {
		var buf bytes.Buffer
		err := report.PDF(&buf, report.Document{
			Title:       "Control Pagos",
			Date:        v.Date,
			FeeRate:     s.ledger.FeeRate(),
			Stats:       v.Stats,
			Payments:    v.Payments,
			GeneratedAt: s.now(),
		})
		return buf.Bytes(), err
	})
	if err != nil {
		s.slog.LogError(r.Context(), "PDF rendering failed", err, applog.ComponentReport, applog.OpRender,
			applog.LogFields{applog.FieldBusinessDate: v.Date})
		Failure(http.StatusInternalServerError, "No se pudo generar el reporte").Send(w)
		return
	}

	Reply(http.StatusOK).
		Set("Content-Disposition", `attachment; filename="`+report.FileName(v.Date)+`"`).
		Blob("application/pdf", body).
		Send(w)
}

// handleReportChart plots per-agent totals for the date filter. An empty
// day answers 204 so the page can hide the image.
func (s *Server) handleReportChart(w http.ResponseWriter, r *http.Request) {
	v := s.ledger.Views(ParseViewQuery(r.URL.Query(), s.today()))

	title := "Total por agente"
	if v.Date != "" {
		title += " " + displayDate(v.Date)
	}
	var buf bytes.Buffer
	if err := report.AgentChart(&buf, title, v.Summary); err != nil {
		if errors.Is(err, report.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.slog.LogError(r.Context(), "Chart rendering failed", err, applog.ComponentReport, applog.OpRender,
			applog.LogFields{applog.FieldBusinessDate: v.Date})
		Failure(http.StatusInternalServerError, "No se pudo generar el gráfico").Send(w)
		return
	}

	Reply(http.StatusOK).Blob("image/png", buf.Bytes()).Send(w)
}
