// Package metrics aggregates ledger records into dashboard figures.
//
// Every function here is a pure transformation: no I/O, no clock reads, no
// shared state. Records that fail validation are excluded from all sums and
// reported back in the result's Skipped list.
package metrics

import (
	"errors"

	"bizledger/internal/core"
)

// Window selects the calendar months that receive a bucket in the monthly
// series. The zero value is WindowFromRecords.
type Window struct {
	start, end core.YearMonth
	explicit   bool
}

// WindowFromRecords spans from the month of the earliest accepted record to
// the month of the latest one, invoices of any status included. Every record
// date therefore falls into exactly one bucket.
func WindowFromRecords() Window {
	return Window{}
}

// TrailingMonths is the n months ending with end, end included. Values of n
// below one are treated as one.
func TrailingMonths(end core.YearMonth, n int) Window {
	if n < 1 {
		n = 1
	}
	return Window{start: end.AddMonths(-(n - 1)), end: end, explicit: true}
}

// Between covers start through end inclusive. Arguments are swapped when
// given in reverse order.
func Between(start, end core.YearMonth) Window {
	if end.Before(start) {
		start, end = end, start
	}
	return Window{start: start, end: end, explicit: true}
}

// Bounds returns the first and last month of an explicit window.
func (w Window) Bounds() (start, end core.YearMonth, ok bool) {
	return w.start, w.end, w.explicit
}

// Result is the output of ComputeFinancialMetrics.
type Result struct {
	Summary core.FinancialSummary         `json:"summary"`
	Monthly []core.MonthlyDataPoint       `json:"monthly_data"`
	Skipped []*core.RecordValidationError `json:"skipped"`
}

// ComputeFinancialMetrics totals paid revenue, outstanding invoices and
// expenses, and buckets them into a contiguous, chronologically ascending
// monthly series.
//
// Records outside an explicit window still count toward the summary but
// land in no bucket. Identical inputs always give identical results.
func ComputeFinancialMetrics(invoices []core.InvoiceRecord, expenses []core.ExpenseRecord, w Window) Result {
	res := Result{
		Monthly: []core.MonthlyDataPoint{},
		Skipped: []*core.RecordValidationError{},
	}

	validInvoices := make([]core.Invoice, 0, len(invoices))
	for _, rec := range invoices {
		inv, err := rec.Validate()
		if err != nil {
			res.Skipped = append(res.Skipped, asRecordError(err, core.KindInvoice, rec.ID))
			continue
		}
		validInvoices = append(validInvoices, inv)
	}
	validExpenses := make([]core.Expense, 0, len(expenses))
	for _, rec := range expenses {
		exp, err := rec.Validate()
		if err != nil {
			res.Skipped = append(res.Skipped, asRecordError(err, core.KindExpense, rec.ID))
			continue
		}
		validExpenses = append(validExpenses, exp)
	}

	for _, inv := range validInvoices {
		if inv.Status.IsPaid() {
			res.Summary.TotalRevenue = res.Summary.TotalRevenue.Add(inv.Amount)
		} else {
			res.Summary.OutstandingInvoices = res.Summary.OutstandingInvoices.Add(inv.Amount)
		}
	}
	for _, exp := range validExpenses {
		res.Summary.TotalExpenses = res.Summary.TotalExpenses.Add(exp.Amount)
	}
	res.Summary.NetProfit = res.Summary.TotalRevenue.Sub(res.Summary.TotalExpenses)

	start, end, ok := w.Bounds()
	if !ok {
		start, end, ok = recordSpan(validInvoices, validExpenses)
		if !ok {
			return res
		}
	}

	n := start.MonthsUntil(end)
	res.Monthly = make([]core.MonthlyDataPoint, n)
	index := make(map[core.YearMonth]int, n)
	for i, ym := 0, start; i < n; i, ym = i+1, ym.Next() {
		res.Monthly[i] = core.MonthlyDataPoint{Month: ym.Label(), Period: ym}
		index[ym] = i
	}

	for _, inv := range validInvoices {
		if !inv.Status.IsPaid() {
			continue
		}
		if i, ok := index[core.YearMonthOf(inv.Date)]; ok {
			res.Monthly[i].Revenue = res.Monthly[i].Revenue.Add(inv.Amount)
		}
	}
	for _, exp := range validExpenses {
		if i, ok := index[core.YearMonthOf(exp.Date)]; ok {
			res.Monthly[i].Expenses = res.Monthly[i].Expenses.Add(exp.Amount)
		}
	}
	for i := range res.Monthly {
		res.Monthly[i].Profit = res.Monthly[i].Revenue.Sub(res.Monthly[i].Expenses)
	}
	return res
}

func recordSpan(invoices []core.Invoice, expenses []core.Expense) (start, end core.YearMonth, ok bool) {
	see := func(d core.Date) {
		ym := core.YearMonthOf(d)
		if !ok {
			start, end, ok = ym, ym, true
			return
		}
		if ym.Before(start) {
			start = ym
		}
		if end.Before(ym) {
			end = ym
		}
	}
	for _, inv := range invoices {
		see(inv.Date)
	}
	for _, exp := range expenses {
		see(exp.Date)
	}
	return start, end, ok
}

func asRecordError(err error, kind core.RecordKind, id string) *core.RecordValidationError {
	var rve *core.RecordValidationError
	if errors.As(err, &rve) {
		return rve
	}
	return &core.RecordValidationError{RecordID: id, Kind: kind, Err: err}
}
