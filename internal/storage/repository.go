package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/render"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Ledger = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite ledger ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]core.InvoiceRecord, error) {
	rows, err := r.queries.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]core.InvoiceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, InvoiceFromRow(row))
	}
	return out, nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.InvoiceRecord, error) {
	row, err := r.queries.GetInvoice(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InvoiceRecord{}, fmt.Errorf("invoice %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.InvoiceRecord{}, fmt.Errorf("get invoice %q: %w", id, err)
	}
	return InvoiceFromRow(row), nil
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.InvoiceRecord) error {
	row, err := InvoiceToRow(inv)
	if err != nil {
		return err
	}
	if err := r.queries.CreateInvoice(ctx, row); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	slog.DebugContext(ctx, "Invoice saved to SQLite", "invoice_id", inv.ID)
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExpenseFromRow(row))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, exp core.ExpenseRecord) error {
	if err := r.queries.CreateExpense(ctx, ExpenseToRow(exp)); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense saved to SQLite", "record_id", exp.ID)
	return nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]render.Template, error) {
	rows, err := r.queries.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]render.Template, 0, len(rows))
	for _, row := range rows {
		tpl, err := TemplateFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (render.Template, error) {
	row, err := r.queries.GetTemplate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return render.Template{}, fmt.Errorf("template %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return render.Template{}, fmt.Errorf("get template %q: %w", id, err)
	}
	return TemplateFromRow(row)
}

func (r *SQLiteRepository) SaveTemplate(ctx context.Context, tpl render.Template) error {
	row, err := TemplateToRow(tpl)
	if err != nil {
		return err
	}
	if err := r.queries.UpsertTemplate(ctx, row); err != nil {
		return fmt.Errorf("save template %q: %w", tpl.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) SaveRender(ctx context.Context, job ledger.RenderJob) error {
	row, err := RenderJobToRow(job)
	if err != nil {
		return err
	}
	if err := r.queries.UpsertRenderJob(ctx, row); err != nil {
		return fmt.Errorf("save render job %q: %w", job.JobID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetRender(ctx context.Context, jobID string) (ledger.RenderJob, error) {
	row, err := r.queries.GetRenderJob(ctx, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.RenderJob{}, fmt.Errorf("render job %q: %w", jobID, core.ErrNotFound)
	}
	if err != nil {
		return ledger.RenderJob{}, fmt.Errorf("get render job %q: %w", jobID, err)
	}
	return RenderJobFromRow(row)
}

// Row conversions shared with the postgres repository.

func InvoiceToRow(inv core.InvoiceRecord) (InvoiceRow, error) {
	items := inv.Items
	if items == nil {
		items = []core.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return InvoiceRow{}, fmt.Errorf("encode invoice items: %w", err)
	}
	return InvoiceRow{
		ID:       inv.ID,
		Number:   inv.Number,
		Date:     inv.Date,
		DueDate:  inv.DueDate,
		Amount:   string(inv.Amount),
		Status:   inv.Status,
		Customer: inv.Customer,
		Email:    inv.Email,
		Notes:    inv.Notes,
		Items:    string(b),
	}, nil
}

// InvoiceFromRow ignores undecodable items; amount and date problems are
// left for validation to report.
func InvoiceFromRow(row InvoiceRow) core.InvoiceRecord {
	var items []core.LineItem
	_ = json.Unmarshal([]byte(row.Items), &items)
	if len(items) == 0 {
		items = nil
	}
	return core.InvoiceRecord{
		ID:       row.ID,
		Number:   row.Number,
		Date:     row.Date,
		DueDate:  row.DueDate,
		Amount:   core.RawAmount(row.Amount),
		Status:   row.Status,
		Customer: row.Customer,
		Email:    row.Email,
		Notes:    row.Notes,
		Items:    items,
	}
}

func ExpenseToRow(exp core.ExpenseRecord) ExpenseRow {
	return ExpenseRow{
		ID:            exp.ID,
		Date:          exp.Date,
		Amount:        string(exp.Amount),
		Category:      exp.Category,
		Vendor:        exp.Vendor,
		PaymentMethod: exp.PaymentMethod,
		Description:   exp.Description,
	}
}

func ExpenseFromRow(row ExpenseRow) core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:            row.ID,
		Date:          row.Date,
		Amount:        core.RawAmount(row.Amount),
		Category:      row.Category,
		Vendor:        row.Vendor,
		PaymentMethod: row.PaymentMethod,
		Description:   row.Description,
	}
}

func TemplateToRow(tpl render.Template) (TemplateRow, error) {
	b, err := json.Marshal(tpl)
	if err != nil {
		return TemplateRow{}, fmt.Errorf("encode template %q: %w", tpl.ID, err)
	}
	return TemplateRow{ID: tpl.ID, Name: tpl.Name, Document: string(b)}, nil
}

func TemplateFromRow(row TemplateRow) (render.Template, error) {
	tpl, err := render.DecodeTemplate([]byte(row.Document))
	if err != nil {
		return render.Template{}, fmt.Errorf("template %q: %w", row.ID, err)
	}
	tpl.ID = row.ID
	tpl.Name = row.Name
	return tpl, nil
}

func RenderJobToRow(job ledger.RenderJob) (RenderJobRow, error) {
	warnings := job.Warnings
	if warnings == nil {
		warnings = []core.ConfigValidationWarning{}
	}
	b, err := json.Marshal(warnings)
	if err != nil {
		return RenderJobRow{}, fmt.Errorf("encode render warnings: %w", err)
	}
	row := RenderJobRow{
		JobID:       job.JobID,
		InvoiceID:   job.InvoiceID,
		TemplateID:  job.TemplateID,
		Status:      job.Status,
		HTML:        job.HTML,
		Warnings:    string(b),
		Error:       job.Error,
		RequestedAt: job.RequestedAt.UTC(),
	}
	if job.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: job.CompletedAt.UTC(), Valid: true}
	}
	return row, nil
}

func RenderJobFromRow(row RenderJobRow) (ledger.RenderJob, error) {
	job := ledger.RenderJob{
		JobID:       row.JobID,
		InvoiceID:   row.InvoiceID,
		TemplateID:  row.TemplateID,
		Status:      row.Status,
		HTML:        row.HTML,
		Error:       row.Error,
		RequestedAt: row.RequestedAt.UTC(),
		Warnings:    []core.ConfigValidationWarning{},
	}
	if err := json.Unmarshal([]byte(row.Warnings), &job.Warnings); err != nil {
		return ledger.RenderJob{}, fmt.Errorf("decode render warnings for %q: %w", row.JobID, err)
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time.UTC()
		job.CompletedAt = &t
	}
	return job, nil
}
