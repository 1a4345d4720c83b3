// Package importer reads invoice and expense records from CSV or JSON files
// for the command-line tools and bulk loads.
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bizledger/internal/core"
)

// ErrUnsupportedFormat is returned for files that are neither .csv nor .json.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FileRepository loads records from files on disk. The format is chosen by
// the file extension.
type FileRepository struct{}

func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

// GetInvoices reads invoices from path.
func (r *FileRepository) GetInvoices(ctx context.Context, path string) ([]core.InvoiceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open invoice file %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadInvoicesCSV(f)
	case ".json":
		var out []core.InvoiceRecord
		if err := json.NewDecoder(f).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// GetExpenses reads expenses from path.
func (r *FileRepository) GetExpenses(ctx context.Context, path string) ([]core.ExpenseRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open expense file %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadExpensesCSV(f)
	case ".json":
		var out []core.ExpenseRecord
		if err := json.NewDecoder(f).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// ReadInvoicesCSV parses invoices from CSV with a header row. Columns are
// matched by name (id, number, date, due_date, amount, status, customer,
// email, notes) in any order; id, date and amount are required.
func ReadInvoicesCSV(r io.Reader) ([]core.InvoiceRecord, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	cols, err := requireColumns(header, "id", "date", "amount")
	if err != nil {
		return nil, err
	}
	out := make([]core.InvoiceRecord, 0, len(rows))
	for _, rec := range rows {
		out = append(out, core.InvoiceRecord{
			ID:       cols.get(rec, "id"),
			Number:   cols.get(rec, "number"),
			Date:     cols.get(rec, "date"),
			DueDate:  cols.get(rec, "due_date"),
			Amount:   core.RawAmount(cols.get(rec, "amount")),
			Status:   cols.get(rec, "status"),
			Customer: cols.get(rec, "customer"),
			Email:    cols.get(rec, "email"),
			Notes:    cols.get(rec, "notes"),
		})
	}
	return out, nil
}

// ReadExpensesCSV parses expenses from CSV with a header row.
func ReadExpensesCSV(r io.Reader) ([]core.ExpenseRecord, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	cols, err := requireColumns(header, "id", "date", "amount")
	if err != nil {
		return nil, err
	}
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, rec := range rows {
		out = append(out, core.ExpenseRecord{
			ID:            cols.get(rec, "id"),
			Date:          cols.get(rec, "date"),
			Amount:        core.RawAmount(cols.get(rec, "amount")),
			Category:      cols.get(rec, "category"),
			Vendor:        cols.get(rec, "vendor"),
			PaymentMethod: cols.get(rec, "payment_method"),
			Description:   cols.get(rec, "description"),
		})
	}
	return out, nil
}

func readAll(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading record: %w", err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

type columns map[string]int

func requireColumns(header []string, required ...string) (columns, error) {
	cols := columns{}
	for i, h := range header {
		name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")), " ", "_"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	if header == nil {
		return cols, nil
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns %s in header %v", strings.Join(missing, ", "), header)
	}
	return cols, nil
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
