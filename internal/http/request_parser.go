// This file implements utilities for parsing and validating HTTP request
// data: query windows, dates and request bodies that may arrive as JSON
// from API clients or form-encoded from HTMX.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bizledger/internal/core"
	"bizledger/internal/services"
)

// maxMonths bounds the trailing window a client may ask for.
const maxMonths = 120

// errBadRequest marks errors caused by malformed client input.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// ParseMetricsQuery reads the monthly window from end=YYYY-MM and months=N,
// or window=records for a window spanning the records.
func ParseMetricsQuery(query url.Values) (services.MetricsQuery, error) {
	var q services.MetricsQuery
	switch w := strings.ToLower(strings.TrimSpace(query.Get("window"))); w {
	case "":
	case "records":
		q.FromRecords = true
		return q, nil
	default:
		return q, badRequest("unknown window %q", w)
	}

	if v := strings.TrimSpace(query.Get("end")); v != "" {
		ym, err := core.ParseYearMonth(v)
		if err != nil {
			return q, badRequest("invalid end %q: want YYYY-MM", v)
		}
		q.End = ym
	}
	if v := strings.TrimSpace(query.Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxMonths {
			return q, badRequest("invalid months %q: want 1..%d", v, maxMonths)
		}
		q.Months = n
	}
	return q, nil
}

// ParseAsOf reads as_of=YYYY-MM-DD. A missing value yields the zero date.
func ParseAsOf(query url.Values) (core.Date, error) {
	v := strings.TrimSpace(query.Get("as_of"))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("invalid as_of %q: want YYYY-MM-DD", v)
	}
	return d, nil
}

// wantsHTML reports whether format=html was requested.
func wantsHTML(query url.Values) (bool, error) {
	switch f := strings.ToLower(strings.TrimSpace(query.Get("format"))); f {
	case "", "json":
		return false, nil
	case "html":
		return true, nil
	default:
		return false, badRequest("unknown format %q", f)
	}
}

// decodeJSON strictly decodes a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty request body")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
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

	p.body, p.err = io.ReadAll(r.Body)
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

	if p.body[0] == '{' || p.body[0] == '[' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = badRequest("invalid JSON body: %v", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = badRequest("invalid form body: %v", p.err)
	}
	return p.err
}

// Decode unmarshals a JSON body into dst.
func (p *RequestBodyParser) Decode(dst any) error {
	if err := p.Parse(); err != nil {
		return err
	}
	if !p.IsJSON() {
		return badRequest("expected a JSON body")
	}
	if err := json.Unmarshal(p.body, dst); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
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

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
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

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
