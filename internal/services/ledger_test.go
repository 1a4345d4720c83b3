package services

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/ledger/memory"
	"bizledger/internal/render"
)

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func TestLedgerService_CreateInvoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	store := memory.New()
	inv := &countingInvalidator{}
	svc := NewLedgerService(store, inv, pub, nil)
	svc.newID = func() string { return "generated-id" }
	ctx := context.Background()

	pub.EXPECT().PublishLedgerChanged(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg *amqp.LedgerChangedMessage) error {
			assert.Equal(t, "invoice", msg.Kind)
			assert.Equal(t, "generated-id", msg.ID)
			return nil
		})

	got, err := svc.CreateInvoice(ctx, core.InvoiceRecord{Date: "2024-01-15", Amount: "100", Status: " PAID "})
	require.NoError(t, err)
	assert.Equal(t, "generated-id", got.ID)
	assert.Equal(t, "paid", got.Status)
	assert.Equal(t, 1, inv.n)

	stored, err := svc.GetInvoice(ctx, "generated-id")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestLedgerService_CreateInvoiceInvalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	svc := NewLedgerService(memory.New(), nil, pub, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		rec   core.InvoiceRecord
		field string
	}{
		{"negative amount", core.InvoiceRecord{ID: "A", Date: "2024-01-15", Amount: "-5", Status: "paid"}, "amount"},
		{"bad status", core.InvoiceRecord{ID: "B", Date: "2024-01-15", Amount: "5", Status: "void"}, "status"},
		{"bad item", core.InvoiceRecord{ID: "C", Date: "2024-01-15", Amount: "5", Status: "paid",
			Items: []core.LineItem{{Description: "x", UnitPrice: "abc"}}}, "items[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(ctx, tt.rec)
			var rve *core.RecordValidationError
			require.True(t, errors.As(err, &rve), "err = %v", err)
			assert.Equal(t, tt.field, rve.Field)
		})
	}

	all, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLedgerService_PublishFailureKeepsRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	svc := NewLedgerService(memory.New(), nil, pub, nil)

	pub.EXPECT().PublishLedgerChanged(gomock.Any(), gomock.Any()).Return(errors.New("circuit breaker is open"))

	got, err := svc.CreateExpense(context.Background(), core.ExpenseRecord{ID: "E-1", Date: "2024-01-20", Amount: "30"})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCategory, got.Category)

	all, _ := svc.ListExpenses(context.Background())
	assert.Len(t, all, 1)
}

func TestLedgerService_Import(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, nil, nil)

	rep, err := svc.Import(context.Background(),
		[]core.InvoiceRecord{
			{ID: "INV-1", Date: "2024-01-15", Amount: "100", Status: "paid"},
			{ID: "INV-2", Date: "2024-13-01", Amount: "100", Status: "paid"},
		},
		[]core.ExpenseRecord{{ID: "E-1", Date: "2024-01-20", Amount: "30"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Invoices)
	assert.Equal(t, 1, rep.Expenses)
	require.Len(t, rep.Rejected, 1)
	assert.Equal(t, "INV-2", rep.Rejected[0].RecordID)
}

func TestLedgerService_ImportPublishesOneChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	inv := &countingInvalidator{}
	svc := NewLedgerService(memory.New(), inv, pub, nil)

	pub.EXPECT().PublishLedgerChanged(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg *amqp.LedgerChangedMessage) error {
			assert.Equal(t, amqp.ChangeKindImport, msg.Kind)
			assert.Empty(t, msg.ID)
			assert.Equal(t, 3, msg.Count)
			return nil
		}).Times(1)

	rep, err := svc.Import(context.Background(),
		[]core.InvoiceRecord{
			{ID: "INV-1", Date: "2024-01-15", Amount: "100", Status: "paid"},
			{ID: "INV-2", Date: "2024-02-15", Amount: "80", Status: "pending"},
		},
		[]core.ExpenseRecord{{ID: "E-1", Date: "2024-01-20", Amount: "30"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Invoices)
	assert.Equal(t, 1, inv.n)
}

func TestLedgerService_ImportOfRejectsOnlyIsSilent(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	svc := NewLedgerService(memory.New(), nil, pub, nil)

	rep, err := svc.Import(context.Background(),
		[]core.InvoiceRecord{{ID: "INV-9", Date: "yesterday", Amount: "1", Status: "paid"}}, nil)
	require.NoError(t, err)
	assert.Len(t, rep.Rejected, 1)
}

func TestLedgerService_SaveTemplate(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, nil, nil)
	svc.newID = func() string { return "tpl-1" }
	ctx := context.Background()

	_, _, err := svc.SaveTemplate(ctx, render.Template{Name: "empty"})
	assert.ErrorIs(t, err, core.ErrMissingConfig)

	tpl, warnings, err := svc.SaveTemplate(ctx, render.Template{
		Name:   "classic",
		Layout: &render.LayoutConfig{Header: true},
		Style:  &render.StyleConfig{TableStyle: "zebra"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", tpl.ID)
	require.Len(t, warnings, 1)
	assert.Equal(t, "styleConfig.tableStyle", warnings[0].Field)

	stored, err := svc.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, render.TableStyle("zebra"), stored.Style.TableStyle)
}
