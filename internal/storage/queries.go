package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL statements used by SQLiteRepository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type InvoiceRow struct {
	ID       string
	Number   string
	Date     string
	DueDate  string
	Amount   string
	Status   string
	Customer string
	Email    string
	Notes    string
	Items    string
}

type ExpenseRow struct {
	ID            string
	Date          string
	Amount        string
	Category      string
	Vendor        string
	PaymentMethod string
	Description   string
}

type TemplateRow struct {
	ID       string
	Name     string
	Document string
}

type RenderJobRow struct {
	JobID       string
	InvoiceID   string
	TemplateID  string
	Status      string
	HTML        string
	Warnings    string
	Error       string
	RequestedAt time.Time
	CompletedAt sql.NullTime
}

const createInvoice = `INSERT INTO invoices (id, number, date, due_date, amount, status, customer, email, notes, items)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateInvoice(ctx context.Context, arg InvoiceRow) error {
	_, err := q.db.ExecContext(ctx, createInvoice,
		arg.ID, arg.Number, arg.Date, arg.DueDate, arg.Amount, arg.Status,
		arg.Customer, arg.Email, arg.Notes, arg.Items)
	return err
}

const invoiceColumns = `id, number, date, due_date, amount, status, customer, email, notes, items`

const listInvoices = `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY date, id`

func (q *Queries) ListInvoices(ctx context.Context) ([]InvoiceRow, error) {
	rows, err := q.db.QueryContext(ctx, listInvoices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InvoiceRow{}
	for rows.Next() {
		var i InvoiceRow
		if err := rows.Scan(&i.ID, &i.Number, &i.Date, &i.DueDate, &i.Amount, &i.Status,
			&i.Customer, &i.Email, &i.Notes, &i.Items); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

func (q *Queries) GetInvoice(ctx context.Context, id string) (InvoiceRow, error) {
	var i InvoiceRow
	err := q.db.QueryRowContext(ctx, getInvoice, id).Scan(&i.ID, &i.Number, &i.Date, &i.DueDate,
		&i.Amount, &i.Status, &i.Customer, &i.Email, &i.Notes, &i.Items)
	return i, err
}

const createExpense = `INSERT INTO expenses (id, date, amount, category, vendor, payment_method, description)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, arg ExpenseRow) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID, arg.Date, arg.Amount, arg.Category, arg.Vendor, arg.PaymentMethod, arg.Description)
	return err
}

const listExpenses = `SELECT id, date, amount, category, vendor, payment_method, description
FROM expenses ORDER BY date, id`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ExpenseRow{}
	for rows.Next() {
		var e ExpenseRow
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Vendor, &e.PaymentMethod, &e.Description); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const upsertTemplate = `INSERT INTO templates (id, name, document, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, document = excluded.document, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertTemplate(ctx context.Context, arg TemplateRow) error {
	_, err := q.db.ExecContext(ctx, upsertTemplate, arg.ID, arg.Name, arg.Document)
	return err
}

const listTemplates = `SELECT id, name, document FROM templates ORDER BY id`

func (q *Queries) ListTemplates(ctx context.Context) ([]TemplateRow, error) {
	rows, err := q.db.QueryContext(ctx, listTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TemplateRow{}
	for rows.Next() {
		var t TemplateRow
		if err := rows.Scan(&t.ID, &t.Name, &t.Document); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTemplate = `SELECT id, name, document FROM templates WHERE id = ?`

func (q *Queries) GetTemplate(ctx context.Context, id string) (TemplateRow, error) {
	var t TemplateRow
	err := q.db.QueryRowContext(ctx, getTemplate, id).Scan(&t.ID, &t.Name, &t.Document)
	return t, err
}

const upsertRenderJob = `INSERT INTO render_jobs (job_id, invoice_id, template_id, status, html, warnings, error, requested_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
    status = excluded.status,
    html = excluded.html,
    warnings = excluded.warnings,
    error = excluded.error,
    completed_at = excluded.completed_at`

func (q *Queries) UpsertRenderJob(ctx context.Context, arg RenderJobRow) error {
	_, err := q.db.ExecContext(ctx, upsertRenderJob,
		arg.JobID, arg.InvoiceID, arg.TemplateID, arg.Status, arg.HTML, arg.Warnings, arg.Error,
		arg.RequestedAt, arg.CompletedAt)
	return err
}

const getRenderJob = `SELECT job_id, invoice_id, template_id, status, html, warnings, error, requested_at, completed_at
FROM render_jobs WHERE job_id = ?`

func (q *Queries) GetRenderJob(ctx context.Context, jobID string) (RenderJobRow, error) {
	var r RenderJobRow
	err := q.db.QueryRowContext(ctx, getRenderJob, jobID).Scan(&r.JobID, &r.InvoiceID, &r.TemplateID,
		&r.Status, &r.HTML, &r.Warnings, &r.Error, &r.RequestedAt, &r.CompletedAt)
	return r, err
}
