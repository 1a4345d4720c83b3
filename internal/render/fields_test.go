package render

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core"
)

func TestSubstitute(t *testing.T) {
	f := Fields{InvoiceNumber: "INV-7", ClientName: "Acme", Total: "$10.00"}

	tests := []struct {
		in   string
		want string
	}{
		{"Invoice {{invoice_number}}", "Invoice INV-7"},
		{"{{ client_name }} owes {{total}}", "Acme owes $10.00"},
		{"Hello {{unknown_token}}", "Hello {{unknown_token}}"},
		{"{{invoice_number}}{{invoice_number}}", "INV-7INV-7"},
		{"no tokens", "no tokens"},
		{"{{Invoice_Number}}", "{{Invoice_Number}}"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.in, f))
		})
	}
}

func TestFieldsFromInvoice_Items(t *testing.T) {
	inv := core.InvoiceRecord{
		ID:       "i1",
		Number:   "INV-1001",
		Date:     "2024-01-15",
		DueDate:  "2024-02-14",
		Amount:   "999",
		Status:   "pending",
		Customer: "Acme",
		Items: []core.LineItem{
			{Description: "Design", Quantity: "2", UnitPrice: "50"},
			{Description: "Hosting", UnitPrice: "20"},
		},
	}
	p := Pricing{TaxRate: decimal.RequireFromString("0.2"), Discount: core.MustParseAmount("10"), Currency: "$"}

	f, err := FieldsFromInvoice(inv, BusinessProfile{Name: "Studio"}, p)
	require.NoError(t, err)

	assert.Equal(t, "INV-1001", f.InvoiceNumber)
	assert.Equal(t, "2024-01-15", f.IssueDate)
	assert.Equal(t, "2024-02-14", f.DueDate)
	assert.Equal(t, "Studio", f.BusinessName)
	require.Len(t, f.Items, 2)
	assert.Equal(t, ItemLine{Description: "Hosting", Quantity: "1", UnitPrice: "$20.00", Amount: "$20.00"}, f.Items[1])
	assert.Equal(t, "$120.00", f.Subtotal)
	assert.Equal(t, "$10.00", f.Discount)
	assert.Equal(t, "$22.00", f.TaxAmount)
	assert.Equal(t, "$132.00", f.Total)
}

func TestFieldsFromInvoice_AmountOnly(t *testing.T) {
	inv := core.InvoiceRecord{ID: "i2", Date: "2024-03-01", Amount: "1234.5", Status: "paid"}

	f, err := FieldsFromInvoice(inv, BusinessProfile{}, Pricing{})
	require.NoError(t, err)

	assert.Equal(t, "i2", f.InvoiceNumber)
	assert.Equal(t, "1,234.50", f.Subtotal)
	assert.Equal(t, "0.00", f.TaxAmount)
	assert.Equal(t, "1,234.50", f.Total)
	assert.NotNil(t, f.Items)
}

func TestFieldsFromInvoice_BadRecord(t *testing.T) {
	_, err := FieldsFromInvoice(core.InvoiceRecord{ID: "bad", Date: "soon", Amount: "1"}, BusinessProfile{}, Pricing{})

	var recErr *core.RecordValidationError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "date", recErr.Field)
	assert.True(t, errors.Is(err, core.ErrInvalidDate))
}

func TestFieldsFromInvoice_BadDueDate(t *testing.T) {
	_, err := FieldsFromInvoice(core.InvoiceRecord{ID: "late", Date: "2024-03-01", DueDate: "next week", Amount: "1"}, BusinessProfile{}, Pricing{})

	var recErr *core.RecordValidationError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "due_date", recErr.Field)
	assert.Equal(t, "next week", recErr.Value)
	assert.True(t, errors.Is(err, core.ErrInvalidDate))
}

func TestFieldsFromInvoice_BlankDueDateOmitted(t *testing.T) {
	f, err := FieldsFromInvoice(core.InvoiceRecord{ID: "i1", Date: "2024-03-01", DueDate: "  ", Amount: "1"}, BusinessProfile{}, Pricing{})

	require.NoError(t, err)
	assert.Empty(t, f.DueDate)
	assert.Equal(t, "2024-03-01", f.IssueDate)
}
