package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bizledger/internal/core"
)

func TestParseMetricsQuery(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantErr     bool
		wantRecords bool
		wantEnd     string
		wantMonths  int
	}{
		{name: "defaults", query: ""},
		{name: "explicit window", query: "end=2024-03&months=6", wantEnd: "2024-03", wantMonths: 6},
		{name: "records window", query: "window=records&months=abc", wantRecords: true},
		{name: "records is case insensitive", query: "window=Records", wantRecords: true},
		{name: "unknown window", query: "window=weekly", wantErr: true},
		{name: "bad end", query: "end=03-2024", wantErr: true},
		{name: "zero months", query: "months=0", wantErr: true},
		{name: "too many months", query: "months=121", wantErr: true},
		{name: "months not a number", query: "months=twelve", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			q, err := ParseMetricsQuery(values)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("error = %v, want bad request", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.FromRecords != tt.wantRecords {
				t.Errorf("FromRecords = %v, want %v", q.FromRecords, tt.wantRecords)
			}
			if tt.wantEnd != "" && q.End.String() != tt.wantEnd {
				t.Errorf("End = %s, want %s", q.End, tt.wantEnd)
			}
			if tt.wantEnd == "" && !q.End.IsZero() {
				t.Errorf("End = %s, want zero", q.End)
			}
			if q.Months != tt.wantMonths {
				t.Errorf("Months = %d, want %d", q.Months, tt.wantMonths)
			}
		})
	}
}

func TestParseAsOf(t *testing.T) {
	d, err := ParseAsOf(url.Values{})
	if err != nil || !d.IsEmpty() {
		t.Errorf("missing as_of = %v, %v; want zero date", d, err)
	}

	d, err = ParseAsOf(url.Values{"as_of": {"2024-02-29"}})
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("as_of = %s", d)
	}

	if _, err := ParseAsOf(url.Values{"as_of": {"2024-02-30"}}); !errors.Is(err, errBadRequest) {
		t.Errorf("invalid as_of error = %v", err)
	}
}

func TestWantsHTML(t *testing.T) {
	for format, want := range map[string]bool{"": false, "json": false, "HTML": true} {
		got, err := wantsHTML(url.Values{"format": {format}})
		if err != nil || got != want {
			t.Errorf("wantsHTML(%q) = %v, %v", format, got, err)
		}
	}
	if _, err := wantsHTML(url.Values{"format": {"pdf"}}); err == nil {
		t.Error("expected error for pdf")
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": "test", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}
	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}

	var rec core.ExpenseRecord
	if err := parser.Decode(&rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rec.ID != "123" || rec.Amount != "42.5" {
		t.Errorf("Decode() = %+v", rec)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&note=a%01b"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
	if note := parser.Get("note"); note != "ab" {
		t.Errorf("control characters not stripped: %q", note)
	}
	if err := parser.Decode(&struct{}{}); !errors.Is(err, errBadRequest) {
		t.Errorf("Decode() of a form = %v, want bad request", err)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"id":`))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); !errors.Is(err, errBadRequest) {
		t.Fatalf("Parse() error = %v, want bad request", err)
	}
	// the error sticks
	if err := parser.Parse(); !errors.Is(err, errBadRequest) {
		t.Fatalf("second Parse() error = %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  padded  ":        "padded",
		"tab\tkept":         "tab\tkept",
		"bell\x07removed":   "bellremoved",
		"line\nbreak\rkept": "line\nbreak\rkept",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
