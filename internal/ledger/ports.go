// Package ledger declares the storage ports the services depend on. Each
// backend (memory, sqlite, postgres, google sheets) implements some or all
// of them; backend.Factory combines them into a Ledger.
package ledger

import (
	"context"
	"errors"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/render"
)

// ErrReadOnly is returned by adapters that cannot persist a record kind.
var ErrReadOnly = errors.New("ledger backend is read-only")

// Render job states.
const (
	RenderQueued = "queued"
	RenderDone   = "done"
	RenderFailed = "failed"
)

// RenderJob tracks one asynchronous invoice render.
type RenderJob struct {
	JobID       string                         `json:"job_id"`
	InvoiceID   string                         `json:"invoice_id"`
	TemplateID  string                         `json:"template_id"`
	Status      string                         `json:"status"`
	HTML        string                         `json:"html,omitempty"`
	Warnings    []core.ConfigValidationWarning `json:"warnings"`
	Error       string                         `json:"error,omitempty"`
	RequestedAt time.Time                      `json:"requested_at"`
	CompletedAt *time.Time                     `json:"completed_at,omitempty"`
}

// Ports for outbound adapters.
//
//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks -source=ports.go
type (
	InvoiceLister interface {
		ListInvoices(ctx context.Context) ([]core.InvoiceRecord, error)
		// GetInvoice returns core.ErrNotFound for unknown IDs.
		GetInvoice(ctx context.Context, id string) (core.InvoiceRecord, error)
	}

	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	}

	InvoiceWriter interface {
		CreateInvoice(ctx context.Context, inv core.InvoiceRecord) error
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, exp core.ExpenseRecord) error
	}

	TemplateStore interface {
		ListTemplates(ctx context.Context) ([]render.Template, error)
		// GetTemplate returns core.ErrNotFound for unknown IDs.
		GetTemplate(ctx context.Context, id string) (render.Template, error)
		// SaveTemplate inserts or replaces the template with the same ID.
		SaveTemplate(ctx context.Context, tpl render.Template) error
	}

	RenderStore interface {
		// SaveRender inserts or replaces the job with the same JobID.
		SaveRender(ctx context.Context, job RenderJob) error
		// GetRender returns core.ErrNotFound for unknown IDs.
		GetRender(ctx context.Context, jobID string) (RenderJob, error)
	}

	// Ledger is everything the services need from storage.
	Ledger interface {
		InvoiceLister
		ExpenseLister
		InvoiceWriter
		ExpenseWriter
		TemplateStore
		RenderStore
	}
)

// Composite assembles a Ledger from separate record and document stores,
// e.g. invoices from Google Sheets with templates kept in memory.
type Composite struct {
	InvoiceLister
	ExpenseLister
	InvoiceWriter
	ExpenseWriter
	TemplateStore
	RenderStore
}

var _ Ledger = Composite{}
