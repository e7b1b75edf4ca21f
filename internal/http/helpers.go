package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/ledger"
	"pagos/internal/report"
)

// Messages shown to cashiers.
const (
	msgMissingFields  = "Todos los campos son obligatorios"
	msgShortReference = "La referencia debe tener al menos 4 dígitos"
	msgInvalidAmount  = "Monto inválido"
	msgInvalidDate    = "Fecha inválida"
	msgInvalidRange   = "Rango de fechas inválido"
	msgNotConfirmed   = "Se requiere confirmación"
	msgNotFound       = "Registro no encontrado"
	msgCloseDisabled  = "El cierre no está disponible con este almacenamiento"
	msgConnection     = "Error de conexión. Intente de nuevo."
	msgInternal       = "Error interno"
	msgBadRequest     = "Formato de solicitud inválido"
	msgRateLimited    = "Demasiadas solicitudes. Intente en un minuto."
)

// errorStatus maps a ledger error to a status code and a user message.
func errorStatus(err error) (int, string) {
	var dup *core.DuplicateError
	var werr *ledger.WriteError
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, "⚠️ DUPLICADA. Registrada el " + displayDate(dup.BusinessDate) + " por " + dup.Agent
	case errors.Is(err, core.ErrMissingFields):
		return http.StatusUnprocessableEntity, msgMissingFields
	case errors.Is(err, core.ErrReferenceTooShort):
		return http.StatusUnprocessableEntity, msgShortReference
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, msgInvalidAmount
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity, msgInvalidDate
	case errors.Is(err, core.ErrInvalidRange):
		return http.StatusUnprocessableEntity, msgInvalidRange
	case errors.Is(err, ledger.ErrNotConfirmed):
		return http.StatusPreconditionRequired, msgNotConfirmed
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, ledger.ErrCloseUnsupported):
		return http.StatusNotImplemented, msgCloseDisabled
	case errors.Is(err, ledger.ErrOffline), errors.As(err, &werr):
		return http.StatusServiceUnavailable, msgConnection
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// displayDate renders a business date as DD/MM/YYYY.
func displayDate(date string) string {
	t, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func templateFuncs(feeRate decimal.Decimal) template.FuncMap {
	return template.FuncMap{
		"bs":       core.FormatBs,
		"num":      core.FormatNumber,
		"hour":     core.TimeOfDay,
		"bizdate":  core.BusinessDate,
		"dmy":      displayDate,
		"feeLabel": func() string { return report.FeeLabel(feeRate) },
		"lastRef": func(refs []string) string {
			if len(refs) == 0 {
				return ""
			}
			return refs[len(refs)-1]
		},
	}
}
