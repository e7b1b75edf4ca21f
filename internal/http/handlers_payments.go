package http

import (
	"html/template"
	"net/http"

	"pagos/internal/core"
	"pagos/internal/ledger"
	applog "pagos/internal/log"
)

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse body error", applog.FieldError, err, applog.FieldPath, r.URL.Path)
		Failure(http.StatusBadRequest, msgBadRequest).Send(w)
		return
	}
	asJSON := parser.IsJSON() || wantsJSON(r)

	p, err := s.ledger.Submit(r.Context(), parser.Entry())
	if err != nil {
		s.writeLedgerError(w, r, err, applog.OpCreate, asJSON)
		return
	}
	s.writePaymentWritten(w, p, http.StatusCreated, "Pago de "+p.Agent+" registrado.", asJSON)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse body error", applog.FieldError, err, applog.FieldPath, r.URL.Path)
		Failure(http.StatusBadRequest, msgBadRequest).Send(w)
		return
	}
	asJSON := parser.IsJSON() || wantsJSON(r)

	p, err := s.ledger.Update(r.Context(), id, parser.Entry())
	if err != nil {
		s.writeLedgerError(w, r, err, applog.OpUpdate, asJSON)
		return
	}
	s.writePaymentWritten(w, p, http.StatusOK, "Pago de "+p.Agent+" actualizado.", asJSON)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	asJSON := wantsJSON(r)

	if err := s.ledger.Delete(r.Context(), id, ParseConfirm(r.URL.Query())); err != nil {
		s.writeLedgerError(w, r, err, applog.OpDelete, asJSON)
		return
	}
	if asJSON {
		Reply(http.StatusOK).JSON(map[string]string{"deleted": id}).Send(w)
		return
	}
	// An empty 200 lets hx-swap="outerHTML" drop the row.
	Reply(http.StatusOK).
		PaymentsChanged("").
		Notify(notifySuccess, "Registro eliminado").
		Send(w)
}

// closingResponse is the JSON body of POST /close.
type closingResponse struct {
	Date    string            `json:"date"`
	Stats   core.Stats        `json:"stats"`
	Groups  []core.AgentTotal `json:"groups"`
	Report  string            `json:"report"`
	Cleared int               `json:"cleared"`
}

// handleCloseDay reads its parameters from the query string and from a
// form body, so the page can include the summary search field.
func (s *Server) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	asJSON := wantsJSON(r)
	if err := r.ParseForm(); err != nil {
		Failure(http.StatusBadRequest, msgBadRequest).Send(w)
		return
	}
	q := r.Form
	view := ParseViewQuery(q, s.today())

	c, err := s.ledger.CloseDay(r.Context(), view.Date, view.SummarySearch, ParseConfirm(q))
	if err != nil {
		s.writeLedgerError(w, r, err, applog.OpClose, asJSON)
		return
	}
	s.pdfCache.Purge()
	s.rangeCache.Purge()

	if asJSON {
		Reply(http.StatusOK).JSON(closingResponse(c)).Send(w)
		return
	}
	Reply(http.StatusOK).
		PaymentsChanged(c.Date).
		DayClosed(c.Date, c.Cleared).
		Notify(notifySuccess, "Reporte copiado. Base de datos reiniciada.").
		HTML(`<pre id="closing-report" class="closing-report">` + template.HTMLEscapeString(c.Report) + `</pre>`).
		Send(w)
}

func (s *Server) writePaymentWritten(w http.ResponseWriter, p core.Payment, status int, msg string, asJSON bool) {
	if asJSON {
		Reply(status).JSON(p).Send(w)
		return
	}
	Reply(status).
		PaymentsChanged(p.BusinessDate()).
		FormReset().
		Notify(notifySuccess, msg).
		Fragment("success", msg).
		Send(w)
}

// writeLedgerError answers with the mapped status. Write failures are
// logged; validation outcomes are already counted by the ledger.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error, op string, asJSON bool) {
	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.slog.LogError(r.Context(), "Ledger operation failed", err, applog.ComponentLedger, op, nil)
	}
	LedgerFailure(err, asJSON).Send(w)
}

var _ Ledger = (*ledger.Ledger)(nil)
