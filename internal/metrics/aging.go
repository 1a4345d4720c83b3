package metrics

import (
	"math"

	"bizledger/internal/core"
)

// AgingRule decides whether an outstanding invoice belongs to a bucket,
// given how many days past its due date it is on the report date.
type AgingRule interface {
	Label() string
	Contains(daysPastDue int) bool
}

// DayRange is an AgingRule covering Min through Max days past due, inclusive.
type DayRange struct {
	Name     string
	Min, Max int
}

func (r DayRange) Label() string { return r.Name }

func (r DayRange) Contains(days int) bool {
	return days >= r.Min && days <= r.Max
}

// DefaultAgingRules are the usual receivables buckets. Invoices that are not
// yet due, or have no due date, are "current".
func DefaultAgingRules() []AgingRule {
	return []AgingRule{
		DayRange{Name: "current", Min: math.MinInt, Max: 0},
		DayRange{Name: "1-30", Min: 1, Max: 30},
		DayRange{Name: "31-60", Min: 31, Max: 60},
		DayRange{Name: "61-90", Min: 61, Max: 90},
		DayRange{Name: "90+", Min: 91, Max: math.MaxInt},
	}
}

type AgingLine struct {
	Label string     `json:"label"`
	Total core.Money `json:"total"`
	Count int        `json:"count"`
}

type AgingReport struct {
	AsOf    core.Date                     `json:"as_of"`
	Buckets []AgingLine                   `json:"buckets"`
	Total   core.Money                    `json:"total"`
	Skipped []*core.RecordValidationError `json:"skipped"`
}

// ReceivablesAging groups unpaid invoices by days past due as of asOf. The
// first matching rule wins; an invoice matching no rule is counted only in
// the report total. With no rules DefaultAgingRules is used.
func ReceivablesAging(invoices []core.InvoiceRecord, asOf core.Date, rules ...AgingRule) AgingReport {
	if len(rules) == 0 {
		rules = DefaultAgingRules()
	}
	rep := AgingReport{
		AsOf:    asOf,
		Buckets: make([]AgingLine, len(rules)),
		Skipped: []*core.RecordValidationError{},
	}
	for i, r := range rules {
		rep.Buckets[i].Label = r.Label()
	}

	for _, rec := range invoices {
		inv, err := rec.Validate()
		if err != nil {
			rep.Skipped = append(rep.Skipped, asRecordError(err, core.KindInvoice, rec.ID))
			continue
		}
		if inv.Status.IsPaid() {
			continue
		}
		days := 0
		if !inv.DueDate.IsEmpty() {
			days = inv.DueDate.DaysUntil(asOf)
		}
		rep.Total = rep.Total.Add(inv.Amount)
		for i, r := range rules {
			if r.Contains(days) {
				rep.Buckets[i].Total = rep.Buckets[i].Total.Add(inv.Amount)
				rep.Buckets[i].Count++
				break
			}
		}
	}
	return rep
}
