// Package http serves the payment ledger: a server-rendered page driven by
// HTMX, JSON endpoints for scripts, and report downloads.
package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"pagos/internal/core"
)

// Response is a reply assembled in steps and written once by Send. HTMX
// events accumulate into a single HX-Trigger header; the last body set wins.
type Response struct {
	status int
	events map[string]any
	header http.Header
	body   []byte
}

// Reply starts a response with the given status.
func Reply(status int) *Response {
	return &Response{status: status, header: http.Header{}}
}

// Event queues an HTMX event. detail is encoded as the event's payload.
func (r *Response) Event(name string, detail any) *Response {
	if r.events == nil {
		r.events = make(map[string]any)
	}
	r.events[name] = detail
	return r
}

// PaymentsChanged makes every view reload; date is the business date the
// write touched, empty when unknown.
func (r *Response) PaymentsChanged(date string) *Response {
	return r.Event("payments:changed", map[string]string{"date": date})
}

// FormReset clears the entry form.
func (r *Response) FormReset() *Response {
	return r.Event("form:reset", struct{}{})
}

// DayClosed announces a closing so the page can copy the report.
func (r *Response) DayClosed(date string, cleared int) *Response {
	return r.Event("day:closed", map[string]any{"date": date, "cleared": cleared})
}

// Notification kinds understood by app.js.
const (
	notifySuccess = "success"
	notifyError   = "error"
)

// Notify shows a toast. Errors stay on screen longer.
func (r *Response) Notify(kind, message string) *Response {
	duration := 3000
	if kind == notifyError {
		duration = 5000
	}
	return r.Event("show-notification", map[string]any{
		"type":     kind,
		"message":  message,
		"duration": duration,
	})
}

// Set sets a response header.
func (r *Response) Set(name, value string) *Response {
	r.header.Set(name, value)
	return r
}

// HTML sets a trusted HTML body.
func (r *Response) HTML(markup string) *Response {
	return r.Blob("text/html; charset=utf-8", []byte(markup))
}

// Fragment wraps escaped text in a div of the given class.
func (r *Response) Fragment(class, text string) *Response {
	return r.HTML(`<div class="` + class + `">` + template.HTMLEscapeString(text) + `</div>`)
}

// Blob sets a raw body of the given content type.
func (r *Response) Blob(contentType string, body []byte) *Response {
	r.header.Set("Content-Type", contentType)
	r.body = body
	return r
}

// JSON encodes v as the body. An encoding failure turns the reply into a
// plain 500.
func (r *Response) JSON(v any) *Response {
	b, err := json.Marshal(v)
	if err != nil {
		r.status = http.StatusInternalServerError
		return r.Blob("application/json", []byte(`{"error":"`+msgInternal+`"}`))
	}
	return r.Blob("application/json", append(b, '\n'))
}

// Send writes headers, status and body.
func (r *Response) Send(w http.ResponseWriter) {
	for name, values := range r.header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	if len(r.events) > 0 {
		if b, err := json.Marshal(r.events); err == nil {
			w.Header().Set("HX-Trigger", string(b))
		}
	}
	w.WriteHeader(r.status)
	if len(r.body) > 0 {
		_, _ = w.Write(r.body)
	}
}

// Failure is an error fragment for an hx-target.
func Failure(status int, message string) *Response {
	return Reply(status).Fragment("error", message)
}

// apiError is the JSON error body.
type apiError struct {
	Error     string         `json:"error"`
	Duplicate *duplicateBody `json:"duplicate,omitempty"`
}

type duplicateBody struct {
	Reference    string `json:"reference"`
	Agent        string `json:"agent"`
	BusinessDate string `json:"business_date"`
}

// LedgerFailure maps a ledger error to its status and user message, as an
// HTML fragment or as JSON. A duplicate also reports who filed the
// reference and when.
func LedgerFailure(err error, asJSON bool) *Response {
	status, msg := errorStatus(err)
	if !asJSON {
		return Failure(status, msg)
	}
	body := apiError{Error: msg}
	var dup *core.DuplicateError
	if errors.As(err, &dup) {
		body.Duplicate = &duplicateBody{Reference: dup.Reference, Agent: dup.Agent, BusinessDate: dup.BusinessDate}
	}
	return Reply(status).JSON(body)
}
