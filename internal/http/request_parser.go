// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Payment entries arrive either as HTMX form posts or as JSON bodies from
// scripts; both go through RequestBodyParser.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pagos/internal/core"
	"pagos/internal/ledger"
)

// maxBodyBytes bounds entry bodies; a payment is a handful of short fields.
const maxBodyBytes = 64 << 10

// ParseViewQuery extracts the view filters from query parameters.
//
// A missing date parameter selects today; a present but empty one clears
// the filter and shows every date. An unparsable date also falls back to
// today.
func ParseViewQuery(query url.Values, today string) ledger.Query {
	q := ledger.Query{
		Date:          today,
		HistorySearch: sanitizeInput(query.Get("history")),
		SummarySearch: sanitizeInput(query.Get("summary")),
	}
	if _, ok := query["date"]; ok {
		date := sanitizeInput(query.Get("date"))
		if date == "" {
			q.Date = ""
		} else if _, err := core.ParseBusinessDate(date); err == nil {
			q.Date = date
		}
	}
	return q
}

// ParseConfirm reads the confirm flag of destructive operations.
func ParseConfirm(query url.Values) bool {
	switch strings.ToLower(strings.TrimSpace(query.Get("confirm"))) {
	case "true", "1", "yes", "si", "sí":
		return true
	default:
		return false
	}
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Entry reads the payment fields. An empty date means today.
func (p *RequestBodyParser) Entry() core.Entry {
	return core.Entry{
		Agent:     p.Get("agent"),
		Amount:    p.Get("amount"),
		Reference: p.Get("reference"),
		Date:      p.Get("date"),
	}
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
