package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned for amounts that are not decimal numbers.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNegativeAmount is returned for amounts below zero. Record amounts are
	// never negative; sign only appears in derived profit figures.
	ErrNegativeAmount = errors.New("negative amount")

	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidStatus = errors.New("invalid invoice status")

	// ErrNotFound is returned by ledger stores for unknown identifiers.
	ErrNotFound = errors.New("not found")

	// ErrMissingConfig is wrapped by TemplateConfigError when a template has
	// no layout, style or content configuration at all.
	ErrMissingConfig = errors.New("template has no layout, style or content configuration")
)

// RecordValidationError describes a single ledger record that was excluded
// from aggregation.
type RecordValidationError struct {
	// RecordID is the record identifier as stored, possibly empty.
	RecordID string

	// Kind tells invoices and expenses apart.
	Kind RecordKind

	// Field is the offending field, e.g. "date" or "amount".
	Field string

	// Value is the raw value that failed to parse.
	Value string

	// Err is the underlying error.
	Err error
}

func newRecordError(kind RecordKind, id, field, value string, err error) *RecordValidationError {
	return &RecordValidationError{RecordID: id, Kind: kind, Field: field, Value: value, Err: err}
}

// Error implements the error interface.
func (e *RecordValidationError) Error() string {
	return fmt.Sprintf("%s %q: invalid %s %q: %v", e.Kind, e.RecordID, e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RecordValidationError) Unwrap() error {
	return e.Err
}

func (e *RecordValidationError) MarshalJSON() ([]byte, error) {
	reason := ""
	if e.Err != nil {
		reason = e.Err.Error()
	}
	return json.Marshal(struct {
		RecordID string     `json:"record_id"`
		Kind     RecordKind `json:"kind"`
		Field    string     `json:"field"`
		Value    string     `json:"value"`
		Reason   string     `json:"reason"`
	}{e.RecordID, e.Kind, e.Field, e.Value, reason})
}

// TemplateConfigError is returned when a template cannot be rendered at all.
type TemplateConfigError struct {
	TemplateID string
	Err        error
}

func (e *TemplateConfigError) Error() string {
	if e.TemplateID != "" {
		return fmt.Sprintf("template %q: %v", e.TemplateID, e.Err)
	}
	return fmt.Sprintf("template: %v", e.Err)
}

func (e *TemplateConfigError) Unwrap() error {
	return e.Err
}

// ConfigValidationWarning reports a template value that was replaced by its
// default. It never stops rendering.
type ConfigValidationWarning struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Fallback string `json:"fallback"`
}

func (w ConfigValidationWarning) String() string {
	return fmt.Sprintf("%s: unsupported value %q, using %q", w.Field, w.Value, w.Fallback)
}
