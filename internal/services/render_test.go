package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/ledger/memory"
	"bizledger/internal/ledger/mocks"
	"bizledger/internal/render"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateInvoice(ctx, core.InvoiceRecord{
		ID: "INV-1", Number: "2024-001", Date: "2024-01-15", Amount: "100", Status: "pending", Customer: "Acme",
	}))
	require.NoError(t, store.SaveTemplate(ctx, render.Template{
		ID:      "classic",
		Layout:  &render.LayoutConfig{Header: true, ClientInfo: true, Summary: true},
		Style:   &render.StyleConfig{HeaderAlignment: "middle"},
		Content: &render.ContentConfig{HeaderText: "Invoice {{invoice_number}} for {{client_name}}"},
	}))
	return store
}

func newTestRenderService(store *memory.Store, pub Publisher) *RenderService {
	svc := NewRenderService(
		RenderStores{Invoices: store, Templates: store, Renders: store},
		pub,
		render.BusinessProfile{Name: "Studio"},
		render.Pricing{TaxRate: decimal.RequireFromString("0.1"), Currency: "$"},
		nil,
	)
	svc.newID = func() string { return "job-1" }
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestRenderService_RenderInvoice(t *testing.T) {
	svc := newTestRenderService(seededStore(t), nil)

	out, err := svc.RenderInvoice(context.Background(), "INV-1", "classic")
	require.NoError(t, err)
	require.Len(t, out.Document.Blocks, 3)
	assert.Equal(t, "Invoice 2024-001 for Acme", out.Document.Blocks[0].Lines[0].Text)
	assert.Contains(t, out.HTML, "Invoice 2024-001 for Acme")
	assert.Contains(t, out.HTML, "$110.00")
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, "styleConfig.headerAlignment", out.Warnings[0].Field)
}

func TestRenderService_DefaultTemplate(t *testing.T) {
	svc := newTestRenderService(seededStore(t), nil)

	out, err := svc.RenderInvoice(context.Background(), "INV-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, out.HTML)

	empty := newTestRenderService(memory.New(), nil)
	_, err = empty.RenderInvoice(context.Background(), "INV-1", "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRenderService_PreviewWithoutHTML(t *testing.T) {
	svc := newTestRenderService(memory.New(), nil)

	out, err := svc.Preview(context.Background(),
		render.Template{ID: "p", Layout: &render.LayoutConfig{Footer: true}},
		render.Fields{InvoiceNumber: "7"}, false)
	require.NoError(t, err)
	assert.Empty(t, out.HTML)
	require.Len(t, out.Document.Blocks, 1)
	assert.Equal(t, render.SectionFooter, out.Document.Blocks[0].Section)

	_, err = svc.Preview(context.Background(), render.Template{ID: "bare"}, render.Fields{}, true)
	var tce *core.TemplateConfigError
	require.True(t, errors.As(err, &tce))
	assert.Equal(t, "bare", tce.TemplateID)
}

func TestRenderService_EnqueueAndProcess(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	store := seededStore(t)
	svc := newTestRenderService(store, pub)
	ctx := context.Background()

	var published *amqp.RenderJobMessage
	pub.EXPECT().PublishRenderJob(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg *amqp.RenderJobMessage) error {
			published = msg
			return nil
		})

	job, err := svc.EnqueueRender(ctx, "INV-1", "classic")
	require.NoError(t, err)
	assert.Equal(t, ledger.RenderQueued, job.Status)
	require.NotNil(t, published)
	assert.Equal(t, "job-1", published.JobID)

	require.NoError(t, svc.ProcessJob(ctx, published))

	done, err := svc.GetRender(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.RenderDone, done.Status)
	assert.Contains(t, done.HTML, "Acme")
	require.NotNil(t, done.CompletedAt)
	assert.Len(t, done.Warnings, 1)

	// redelivery of a finished job is a no-op
	require.NoError(t, svc.ProcessJob(ctx, published))
}

func TestRenderService_EnqueueErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestRenderService(seededStore(t), nil).EnqueueRender(ctx, "INV-1", "classic")
	assert.ErrorIs(t, err, ErrRenderQueueDisabled)

	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	store := seededStore(t)
	svc := newTestRenderService(store, pub)

	_, err = svc.EnqueueRender(ctx, "INV-404", "classic")
	assert.ErrorIs(t, err, core.ErrNotFound)

	pub.EXPECT().PublishRenderJob(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))
	job, err := svc.EnqueueRender(ctx, "INV-1", "classic")
	require.Error(t, err)
	assert.Equal(t, ledger.RenderFailed, job.Status)

	stored, err := store.GetRender(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.RenderFailed, stored.Status)
}

func TestRenderService_ProcessJobPermanentFailure(t *testing.T) {
	store := seededStore(t)
	svc := newTestRenderService(store, nil)
	ctx := context.Background()

	err := svc.ProcessJob(ctx, amqp.NewRenderJobMessage("job-9", "INV-404", "classic"))
	require.Error(t, err)
	assert.True(t, amqp.IsPermanent(err))
	assert.ErrorIs(t, err, core.ErrNotFound)

	job, err := store.GetRender(ctx, "job-9")
	require.NoError(t, err)
	assert.Equal(t, ledger.RenderFailed, job.Status)
	assert.Contains(t, job.Error, "INV-404")
}

func TestRenderService_ProcessJobTransientFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	invoices := mocks.NewMockInvoiceLister(ctrl)
	renders := mocks.NewMockRenderStore(ctrl)
	store := seededStore(t)
	svc := NewRenderService(RenderStores{Invoices: invoices, Templates: store, Renders: renders}, nil,
		render.BusinessProfile{}, render.Pricing{}, nil)

	renders.EXPECT().GetRender(gomock.Any(), "job-1").Return(ledger.RenderJob{}, core.ErrNotFound)
	invoices.EXPECT().GetInvoice(gomock.Any(), "INV-1").Return(core.InvoiceRecord{}, errors.New("database is locked"))
	renders.EXPECT().SaveRender(gomock.Any(), gomock.Any()).Times(0)

	err := svc.ProcessJob(context.Background(), amqp.NewRenderJobMessage("job-1", "INV-1", "classic"))
	require.Error(t, err)
	assert.False(t, amqp.IsPermanent(err))
}
