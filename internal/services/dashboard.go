// Package services holds the application use cases behind the HTTP API,
// the worker and the command-line tools.
package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"bizledger/internal/amqp"
	"bizledger/internal/cache"
	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
)

// DashboardOptions tune the dashboard caches and the default window.
type DashboardOptions struct {
	// WindowMonths is the trailing window used when a query names none.
	WindowMonths int
	CacheSize    int
	CacheTTL     time.Duration
}

// MetricsQuery selects the monthly series window. With FromRecords the
// window spans the records; otherwise it is the Months months ending at
// End, and a zero End means the current month.
type MetricsQuery struct {
	End         core.YearMonth
	Months      int
	FromRecords bool
}

// DashboardService computes dashboard figures from a ledger and caches
// them until Invalidate is called or the TTL expires.
type DashboardService struct {
	invoices ledger.InvoiceLister
	expenses ledger.ExpenseLister
	opts     DashboardOptions
	logger   *log.Logger
	now      func() time.Time

	metrics    *cache.Loader[metrics.Result]
	categories *cache.Loader[metrics.Breakdown]
	aging      *cache.Loader[metrics.AgingReport]
}

func NewDashboardService(invoices ledger.InvoiceLister, expenses ledger.ExpenseLister, opts DashboardOptions, logger *log.Logger) *DashboardService {
	if opts.WindowMonths < 1 {
		opts.WindowMonths = 12
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = 128
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		invoices:   invoices,
		expenses:   expenses,
		opts:       opts,
		logger:     logger.WithComponent(log.ComponentMetrics),
		now:        time.Now,
		metrics:    cache.NewLoader(cache.NewLRUCache[metrics.Result](opts.CacheSize, opts.CacheTTL)),
		categories: cache.NewLoader(cache.NewLRUCache[metrics.Breakdown](opts.CacheSize, opts.CacheTTL)),
		aging:      cache.NewLoader(cache.NewLRUCache[metrics.AgingReport](opts.CacheSize, opts.CacheTTL)),
	}
}

// Caches returns the caches for registration with a cache.Manager.
func (s *DashboardService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.metrics.Cache(), s.categories.Cache(), s.aging.Cache()}
}

// Invalidate drops every cached figure.
func (s *DashboardService) Invalidate() {
	s.metrics.Invalidate()
	s.categories.Invalidate()
	s.aging.Invalidate()
}

// HandleLedgerChanged drops cached figures when a ledger change arrives
// from the broker, typically written by another process.
func (s *DashboardService) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	s.Invalidate()
	s.logger.DebugContext(ctx, "Dashboard cache invalidated", "kind", msg.Kind, log.FieldCount, msg.Count)
}

// Window resolves a query into a metrics window and its cache key.
func (s *DashboardService) Window(q MetricsQuery) (metrics.Window, string) {
	if q.FromRecords {
		return metrics.WindowFromRecords(), "records"
	}
	months := q.Months
	if months < 1 {
		months = s.opts.WindowMonths
	}
	end := q.End
	if end.IsZero() {
		end = core.YearMonthOf(dateOf(s.now()))
	}
	return metrics.TrailingMonths(end, months), end.String() + "/" + strconv.Itoa(months)
}

// Metrics returns the summary and monthly series.
func (s *DashboardService) Metrics(ctx context.Context, q MetricsQuery) (metrics.Result, error) {
	window, key := s.Window(q)
	res, hit, err := s.metrics.GetOrLoad(ctx, key, func(ctx context.Context) (metrics.Result, error) {
		invoices, expenses, err := s.load(ctx)
		if err != nil {
			return metrics.Result{}, err
		}
		res := metrics.ComputeFinancialMetrics(invoices, expenses, window)
		s.reportSkipped(ctx, "metrics", res.Skipped)
		return res, nil
	})
	if err != nil {
		return metrics.Result{}, err
	}
	s.logger.DebugContext(ctx, "Metrics served", log.FieldWindow, key, "cache_hit", hit)
	return res, nil
}

// Categories returns the expense breakdown.
func (s *DashboardService) Categories(ctx context.Context) (metrics.Breakdown, error) {
	res, _, err := s.categories.GetOrLoad(ctx, "all", func(ctx context.Context) (metrics.Breakdown, error) {
		expenses, err := s.expenses.ListExpenses(ctx)
		if err != nil {
			return metrics.Breakdown{}, fmt.Errorf("list expenses: %w", err)
		}
		b := metrics.ExpenseBreakdown(expenses)
		s.reportSkipped(ctx, "categories", b.Skipped)
		return b, nil
	})
	return res, err
}

// Aging returns receivables aging as of asOf; a zero asOf means today.
func (s *DashboardService) Aging(ctx context.Context, asOf core.Date) (metrics.AgingReport, error) {
	if asOf.IsEmpty() {
		asOf = dateOf(s.now())
	}
	res, _, err := s.aging.GetOrLoad(ctx, asOf.String(), func(ctx context.Context) (metrics.AgingReport, error) {
		invoices, err := s.invoices.ListInvoices(ctx)
		if err != nil {
			return metrics.AgingReport{}, fmt.Errorf("list invoices: %w", err)
		}
		rep := metrics.ReceivablesAging(invoices, asOf)
		s.reportSkipped(ctx, "aging", rep.Skipped)
		return rep, nil
	})
	return res, err
}

func (s *DashboardService) load(ctx context.Context) ([]core.InvoiceRecord, []core.ExpenseRecord, error) {
	var (
		invoices []core.InvoiceRecord
		expenses []core.ExpenseRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if invoices, err = s.invoices.ListInvoices(gctx); err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if expenses, err = s.expenses.ListExpenses(gctx); err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return invoices, expenses, nil
}

func (s *DashboardService) reportSkipped(ctx context.Context, what string, skipped []*core.RecordValidationError) {
	if len(skipped) == 0 {
		return
	}
	s.logger.WarnContext(ctx, "Records excluded from "+what,
		log.FieldOperation, log.OpAggregate,
		log.FieldSkipped, len(skipped),
		"first", skipped[0].Error())
}

func dateOf(t time.Time) core.Date {
	t = t.UTC()
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}
