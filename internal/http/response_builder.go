// Package http serves the JSON API and the HTMX dashboard.
//
// This file implements the builder used by every handler: a JSON envelope
// for API clients, HTML fragments for HTMX requests, and HX-Trigger events
// so the dashboard refreshes after a write.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"bizledger/internal/core"
)

// Response is the JSON envelope for all API responses.
type Response struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// HeaderRenderWarnings lists the template fields that fell back to a
// default while rendering.
const HeaderRenderWarnings = "X-Render-Warnings"

// EventLedgerChanged is the HX-Trigger event the dashboard listens to.
const EventLedgerChanged = "ledger:changed"

// ResponseBuilder provides a fluent API for building API and HTMX
// responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	json       *Response
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerLedgerChanged tells the dashboard a record of kind was stored.
func (b *ResponseBuilder) TriggerLedgerChanged(kind core.RecordKind, id string) *ResponseBuilder {
	return b.Trigger(EventLedgerChanged, map[string]string{"kind": string(kind), "id": id})
}

// TriggerFormReset adds the form:reset trigger.
func (b *ResponseBuilder) TriggerFormReset() *ResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
)

// TriggerNotification adds a show-notification trigger.
func (b *ResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *ResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Warnings records render fallbacks in the X-Render-Warnings header as a
// comma separated list of field names.
func (b *ResponseBuilder) Warnings(ws []core.ConfigValidationWarning) *ResponseBuilder {
	if len(ws) == 0 {
		return b
	}
	names := make([]string, len(ws))
	for i, w := range ws {
		names[i] = w.Field
	}
	return b.Header(HeaderRenderWarnings, strings.Join(names, ","))
}

// Data sets a JSON envelope body carrying data.
func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.json = &Response{Data: data}
	return b
}

// Error sets a JSON envelope body carrying msg.
func (b *ResponseBuilder) Error(msg string) *ResponseBuilder {
	b.json = &Response{Error: msg}
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *ResponseBuilder) BodyHTML(html string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	b.json = nil
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.json != nil {
		body, err := json.Marshal(b.json)
		if err != nil {
			b.statusCode = http.StatusInternalServerError
			body = []byte(`{"data":null,"error":"failed to encode response"}`)
		}
		b.headers["Content-Type"] = "application/json"
		b.body = append(body, '\n')
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	NewResponse().Status(status).Data(data).Write(w)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	NewResponse().Status(status).Error(msg).Write(w)
}

// FragmentResponse creates an HTML fragment for HTMX swaps. The message is
// HTML-escaped.
func FragmentResponse(statusCode int, class, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		BodyHTML(`<div class="` + class + `">` + template.HTMLEscapeString(message) + `</div>`)
}
