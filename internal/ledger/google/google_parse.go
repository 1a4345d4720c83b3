package google

import (
	"fmt"
	"strings"

	"bizledger/internal/core"
)

// columns maps canonical header names to their index in the sheet.
type columns map[string]int

func headerColumns(header []string, want []string) (columns, error) {
	cols := columns{}
	for _, name := range want {
		cols[name] = indexOf(header, name)
	}
	for _, required := range []string{"id", "date", "amount"} {
		if cols[required] == -1 {
			return nil, fmt.Errorf("unexpected sheet header: missing %s; got headers=%v", required, header)
		}
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	idx, ok := c[name]
	if !ok {
		return ""
	}
	return safeGet(row, idx)
}

// parseInvoices converts a values matrix into raw invoice records. Blank
// rows are skipped. Values are kept as text; validation happens downstream.
func parseInvoices(values [][]interface{}) ([]core.InvoiceRecord, error) {
	if len(values) == 0 {
		return []core.InvoiceRecord{}, nil
	}
	cols, err := headerColumns(toStrings(values[0]), invoiceHeaders)
	if err != nil {
		return nil, err
	}
	out := make([]core.InvoiceRecord, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		out = append(out, core.InvoiceRecord{
			ID:       cols.get(row, "id"),
			Number:   cols.get(row, "number"),
			Date:     cols.get(row, "date"),
			DueDate:  cols.get(row, "due_date"),
			Amount:   core.RawAmount(cols.get(row, "amount")),
			Status:   cols.get(row, "status"),
			Customer: cols.get(row, "customer"),
			Email:    cols.get(row, "email"),
			Notes:    cols.get(row, "notes"),
		})
	}
	return out, nil
}

func parseExpenses(values [][]interface{}) ([]core.ExpenseRecord, error) {
	if len(values) == 0 {
		return []core.ExpenseRecord{}, nil
	}
	cols, err := headerColumns(toStrings(values[0]), expenseHeaders)
	if err != nil {
		return nil, err
	}
	out := make([]core.ExpenseRecord, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		out = append(out, core.ExpenseRecord{
			ID:            cols.get(row, "id"),
			Date:          cols.get(row, "date"),
			Amount:        core.RawAmount(cols.get(row, "amount")),
			Category:      cols.get(row, "category"),
			Vendor:        cols.get(row, "vendor"),
			PaymentMethod: cols.get(row, "payment_method"),
			Description:   cols.get(row, "description"),
		})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// indexOf finds a header case-insensitively, treating spaces as underscores.
func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.ReplaceAll(strings.TrimSpace(h), " ", "_"), name) {
			return i
		}
	}
	return -1
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
