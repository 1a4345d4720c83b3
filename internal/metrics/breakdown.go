package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

// Breakdown is expenses grouped by category.
type Breakdown struct {
	Categories []core.CategoryTotal          `json:"categories"`
	Total      core.Money                    `json:"total"`
	Skipped    []*core.RecordValidationError `json:"skipped"`
}

var hundred = decimal.NewFromInt(100)

// ExpenseBreakdown sums expenses per category. Blank categories are grouped
// under core.DefaultCategory. Groups are ordered by descending total, ties
// by ascending name.
func ExpenseBreakdown(expenses []core.ExpenseRecord) Breakdown {
	out := Breakdown{
		Categories: []core.CategoryTotal{},
		Skipped:    []*core.RecordValidationError{},
	}
	byName := map[string]*core.CategoryTotal{}
	for _, rec := range expenses {
		exp, err := rec.Validate()
		if err != nil {
			out.Skipped = append(out.Skipped, asRecordError(err, core.KindExpense, rec.ID))
			continue
		}
		ct, ok := byName[exp.Category]
		if !ok {
			ct = &core.CategoryTotal{Name: exp.Category}
			byName[exp.Category] = ct
		}
		ct.Total = ct.Total.Add(exp.Amount)
		ct.Count++
		out.Total = out.Total.Add(exp.Amount)
	}

	for _, ct := range byName {
		if !out.Total.IsZero() {
			pct := ct.Total.Decimal().Mul(hundred).Div(out.Total.Decimal()).Round(1)
			ct.Percent = pct.InexactFloat64()
		}
		out.Categories = append(out.Categories, *ct)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
	return out
}
