package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/render"
)

// Invalidator is implemented by caches of derived figures.
type Invalidator interface {
	Invalidate()
}

// LedgerService validates and stores ledger records and templates.
type LedgerService struct {
	store     ledger.Ledger
	dashboard Invalidator
	publisher Publisher
	newID     func() string
	logger    *log.Logger
}

// NewLedgerService wires the store. dashboard and publisher may be nil.
func NewLedgerService(store ledger.Ledger, dashboard Invalidator, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		store:     store,
		dashboard: dashboard,
		publisher: publisher,
		newID:     uuid.NewString,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

func (s *LedgerService) ListInvoices(ctx context.Context) ([]core.InvoiceRecord, error) {
	return s.store.ListInvoices(ctx)
}

func (s *LedgerService) GetInvoice(ctx context.Context, id string) (core.InvoiceRecord, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *LedgerService) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	return s.store.ListExpenses(ctx)
}

// CreateInvoice validates rec, assigns an ID when it has none and stores
// it. Validation failures are returned as *core.RecordValidationError.
func (s *LedgerService) CreateInvoice(ctx context.Context, rec core.InvoiceRecord) (core.InvoiceRecord, error) {
	rec, err := s.storeInvoice(ctx, rec)
	if err != nil {
		return core.InvoiceRecord{}, err
	}
	s.changed(ctx, amqp.NewLedgerChangedMessage(string(core.KindInvoice), rec.ID))
	return rec, nil
}

func (s *LedgerService) storeInvoice(ctx context.Context, rec core.InvoiceRecord) (core.InvoiceRecord, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	inv, err := rec.Validate()
	if err != nil {
		return core.InvoiceRecord{}, err
	}
	rec.Status = string(inv.Status)
	for i, item := range rec.Items {
		if _, err := item.Total(); err != nil {
			return core.InvoiceRecord{}, &core.RecordValidationError{
				RecordID: rec.ID, Kind: core.KindInvoice,
				Field: fmt.Sprintf("items[%d]", i), Value: string(item.UnitPrice), Err: err,
			}
		}
	}

	if err := s.store.CreateInvoice(ctx, rec); err != nil {
		return core.InvoiceRecord{}, fmt.Errorf("create invoice: %w", err)
	}
	return rec, nil
}

// CreateExpense validates rec, assigns an ID when it has none and stores it.
func (s *LedgerService) CreateExpense(ctx context.Context, rec core.ExpenseRecord) (core.ExpenseRecord, error) {
	rec, err := s.storeExpense(ctx, rec)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	s.changed(ctx, amqp.NewLedgerChangedMessage(string(core.KindExpense), rec.ID))
	return rec, nil
}

func (s *LedgerService) storeExpense(ctx context.Context, rec core.ExpenseRecord) (core.ExpenseRecord, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	exp, err := rec.Validate()
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	rec.Category = exp.Category

	if err := s.store.CreateExpense(ctx, rec); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}
	return rec, nil
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Invoices int                           `json:"invoices"`
	Expenses int                           `json:"expenses"`
	Rejected []*core.RecordValidationError `json:"rejected"`
}

// Import stores every valid record and reports the invalid ones. It stops
// at the first storage error. Whatever was stored is announced with a single
// ledger change, even when the import stops early.
func (s *LedgerService) Import(ctx context.Context, invoices []core.InvoiceRecord, expenses []core.ExpenseRecord) (rep ImportReport, err error) {
	rep = ImportReport{Rejected: []*core.RecordValidationError{}}
	defer func() {
		if n := rep.Invoices + rep.Expenses; n > 0 {
			s.changed(ctx, amqp.NewLedgerImportMessage(n))
		}
	}()
	for _, rec := range invoices {
		_, err := s.storeInvoice(ctx, rec)
		if rve, ok := asRecordError(err); ok {
			rep.Rejected = append(rep.Rejected, rve)
			continue
		}
		if err != nil {
			return rep, err
		}
		rep.Invoices++
	}
	for _, rec := range expenses {
		_, err := s.storeExpense(ctx, rec)
		if rve, ok := asRecordError(err); ok {
			rep.Rejected = append(rep.Rejected, rve)
			continue
		}
		if err != nil {
			return rep, err
		}
		rep.Expenses++
	}
	s.logger.InfoContext(ctx, "Import finished",
		log.FieldOperation, log.OpImport,
		"invoices", rep.Invoices,
		"expenses", rep.Expenses,
		"rejected", len(rep.Rejected))
	return rep, nil
}

func (s *LedgerService) ListTemplates(ctx context.Context) ([]render.Template, error) {
	return s.store.ListTemplates(ctx)
}

func (s *LedgerService) GetTemplate(ctx context.Context, id string) (render.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// SaveTemplate stores tpl, assigning an ID when it has none. Templates
// without any configuration are refused; enum values that would fall back
// to a default are stored as given and reported as warnings.
func (s *LedgerService) SaveTemplate(ctx context.Context, tpl render.Template) (render.Template, []core.ConfigValidationWarning, error) {
	tpl.ID = strings.TrimSpace(tpl.ID)
	if tpl.ID == "" {
		tpl.ID = s.newID()
	}
	if err := tpl.Validate(); err != nil {
		return render.Template{}, nil, err
	}
	_, _, _, warnings := tpl.Normalize()

	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		return render.Template{}, nil, fmt.Errorf("save template: %w", err)
	}
	s.logger.InfoContext(ctx, "Template saved", log.FieldTemplateID, tpl.ID, log.FieldWarnings, len(warnings))
	return tpl, warnings, nil
}

func (s *LedgerService) changed(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	if s.dashboard != nil {
		s.dashboard.Invalidate()
	}
	s.logger.InfoContext(ctx, "Ledger changed", "kind", msg.Kind, log.FieldRecordID, msg.ID, log.FieldCount, msg.Count)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		// the records are stored; the notification is best effort
		s.logger.ErrorContext(ctx, "Failed to publish ledger change", "kind", msg.Kind, log.FieldError, err)
	}
}
