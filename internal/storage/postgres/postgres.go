// Package postgres is the Ledger backed by PostgreSQL through a pgx pool.
// Schema changes are goose migrations embedded in the binary.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/render"
	"bizledger/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Repository struct {
	pool *pgxpool.Pool
}

var _ ledger.Ledger = (*Repository)(nil)

// Open connects to databaseURL and applies pending migrations.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repository{pool: pool}, nil
}

// Migrate runs the embedded goose migrations against pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	dir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, dir)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		slog.InfoContext(ctx, "Applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const invoiceColumns = `id, number, date, due_date, amount, status, customer, email, notes, items::text`

func scanInvoice(row pgx.Row) (storage.InvoiceRow, error) {
	var i storage.InvoiceRow
	err := row.Scan(&i.ID, &i.Number, &i.Date, &i.DueDate, &i.Amount, &i.Status, &i.Customer, &i.Email, &i.Notes, &i.Items)
	return i, err
}

func (r *Repository) ListInvoices(ctx context.Context) ([]core.InvoiceRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	out := []core.InvoiceRecord{}
	for rows.Next() {
		row, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, storage.InvoiceFromRow(row))
	}
	return out, rows.Err()
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (core.InvoiceRecord, error) {
	row, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.InvoiceRecord{}, fmt.Errorf("invoice %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.InvoiceRecord{}, fmt.Errorf("get invoice %q: %w", id, err)
	}
	return storage.InvoiceFromRow(row), nil
}

func (r *Repository) CreateInvoice(ctx context.Context, inv core.InvoiceRecord) error {
	row, err := storage.InvoiceToRow(inv)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO invoices (id, number, date, due_date, amount, status, customer, email, notes, items)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`,
		row.ID, row.Number, row.Date, row.DueDate, row.Amount, row.Status, row.Customer, row.Email, row.Notes, row.Items)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, date, amount, category, vendor, payment_method, description
FROM expenses ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	out := []core.ExpenseRecord{}
	for rows.Next() {
		var e storage.ExpenseRow
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Vendor, &e.PaymentMethod, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, storage.ExpenseFromRow(e))
	}
	return out, rows.Err()
}

func (r *Repository) CreateExpense(ctx context.Context, exp core.ExpenseRecord) error {
	e := storage.ExpenseToRow(exp)
	_, err := r.pool.Exec(ctx, `INSERT INTO expenses (id, date, amount, category, vendor, payment_method, description)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Date, e.Amount, e.Category, e.Vendor, e.PaymentMethod, e.Description)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (r *Repository) ListTemplates(ctx context.Context) ([]render.Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, document::text FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	out := []render.Template{}
	for rows.Next() {
		var t storage.TemplateRow
		if err := rows.Scan(&t.ID, &t.Name, &t.Document); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpl, err := storage.TemplateFromRow(t)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (r *Repository) GetTemplate(ctx context.Context, id string) (render.Template, error) {
	var t storage.TemplateRow
	err := r.pool.QueryRow(ctx, `SELECT id, name, document::text FROM templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Document)
	if errors.Is(err, pgx.ErrNoRows) {
		return render.Template{}, fmt.Errorf("template %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return render.Template{}, fmt.Errorf("get template %q: %w", id, err)
	}
	return storage.TemplateFromRow(t)
}

func (r *Repository) SaveTemplate(ctx context.Context, tpl render.Template) error {
	t, err := storage.TemplateToRow(tpl)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO templates (id, name, document, updated_at) VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = now()`,
		t.ID, t.Name, t.Document)
	if err != nil {
		return fmt.Errorf("save template %q: %w", tpl.ID, err)
	}
	return nil
}

func (r *Repository) SaveRender(ctx context.Context, job ledger.RenderJob) error {
	row, err := storage.RenderJobToRow(job)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO render_jobs (job_id, invoice_id, template_id, status, html, warnings, error, requested_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
ON CONFLICT (job_id) DO UPDATE SET
    status = EXCLUDED.status,
    html = EXCLUDED.html,
    warnings = EXCLUDED.warnings,
    error = EXCLUDED.error,
    completed_at = EXCLUDED.completed_at`,
		row.JobID, row.InvoiceID, row.TemplateID, row.Status, row.HTML, row.Warnings, row.Error, row.RequestedAt, row.CompletedAt)
	if err != nil {
		return fmt.Errorf("save render job %q: %w", job.JobID, err)
	}
	return nil
}

func (r *Repository) GetRender(ctx context.Context, jobID string) (ledger.RenderJob, error) {
	var row storage.RenderJobRow
	err := r.pool.QueryRow(ctx, `SELECT job_id, invoice_id, template_id, status, html, warnings::text, error, requested_at, completed_at
FROM render_jobs WHERE job_id = $1`, jobID).
		Scan(&row.JobID, &row.InvoiceID, &row.TemplateID, &row.Status, &row.HTML, &row.Warnings, &row.Error, &row.RequestedAt, &row.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.RenderJob{}, fmt.Errorf("render job %q: %w", jobID, core.ErrNotFound)
	}
	if err != nil {
		return ledger.RenderJob{}, fmt.Errorf("get render job %q: %w", jobID, err)
	}
	return storage.RenderJobFromRow(row)
}
