package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core"
)

func TestReadInvoicesCSV(t *testing.T) {
	in := "Status,ID,Date,Amount,Due Date,Customer\n" +
		"paid,INV-1,2024-01-15,100,2024-02-14,Acme\n" +
		",,,,,\n" +
		"pending,INV-2,2024-02-01,\"1.234,50\"\n"

	got, err := ReadInvoicesCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.InvoiceRecord{
		ID: "INV-1", Date: "2024-01-15", DueDate: "2024-02-14", Amount: "100", Status: "paid", Customer: "Acme",
	}, got[0])
	assert.Equal(t, core.RawAmount("1.234,50"), got[1].Amount)
	assert.Equal(t, "", got[1].Customer)

	inv, err := got[1].Validate()
	require.NoError(t, err)
	assert.Equal(t, "1234.50", inv.Amount.String())
}

func TestReadInvoicesCSV_MissingColumns(t *testing.T) {
	_, err := ReadInvoicesCSV(strings.NewReader("id,status\nINV-1,paid\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date, amount")
}

func TestReadInvoicesCSV_Empty(t *testing.T) {
	got, err := ReadInvoicesCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadExpensesCSV(t *testing.T) {
	in := "\uFEFFid,date,amount,category,payment method\nE-1,2024-01-20,30,,card\nE-2,bad-date,12,Travel,\n"

	got, err := ReadExpensesCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "card", got[0].PaymentMethod)

	_, err = got[1].Validate()
	assert.True(t, errors.Is(err, core.ErrInvalidDate), "rows are imported raw and validated later")
}

func TestFileRepository(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	repo := NewFileRepository()
	ctx := context.Background()

	jsonPath := write("invoices.json", `[{"id":"INV-1","date":"2024-01-15","amount":100,"status":"paid"}]`)
	invs, err := repo.GetInvoices(ctx, jsonPath)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, core.RawAmount("100"), invs[0].Amount)

	csvPath := write("expenses.CSV", "id,date,amount\nE-1,2024-01-20,30\n")
	exps, err := repo.GetExpenses(ctx, csvPath)
	require.NoError(t, err)
	assert.Len(t, exps, 1)

	_, err = repo.GetExpenses(ctx, write("expenses.xlsx", "x"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = repo.GetInvoices(ctx, filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
