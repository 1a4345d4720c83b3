package metrics

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core"
)

func money(s string) core.Money { return core.MustParseAmount(s) }

func TestComputeFinancialMetrics_Scenario(t *testing.T) {
	invoices := []core.InvoiceRecord{
		{ID: "i1", Amount: "100", Status: "paid", Date: "2024-01-15"},
		{ID: "i2", Amount: "50", Status: "pending", Date: "2024-02-01"},
	}
	expenses := []core.ExpenseRecord{
		{ID: "e1", Amount: "30", Date: "2024-01-20"},
	}

	res := ComputeFinancialMetrics(invoices, expenses, WindowFromRecords())

	assert.True(t, res.Summary.TotalRevenue.Equal(money("100")))
	assert.True(t, res.Summary.OutstandingInvoices.Equal(money("50")))
	assert.True(t, res.Summary.TotalExpenses.Equal(money("30")))
	assert.True(t, res.Summary.NetProfit.Equal(money("70")))
	assert.Empty(t, res.Skipped)

	require.Len(t, res.Monthly, 2)
	jan, feb := res.Monthly[0], res.Monthly[1]
	assert.Equal(t, "Jan", jan.Month)
	assert.Equal(t, core.YearMonth{Year: 2024, Month: time.January}, jan.Period)
	assert.Equal(t, "100.00", jan.Revenue.String())
	assert.Equal(t, "30.00", jan.Expenses.String())
	assert.Equal(t, "70.00", jan.Profit.String())
	assert.Equal(t, "Feb", feb.Month)
	assert.True(t, feb.Revenue.IsZero())
	assert.True(t, feb.Expenses.IsZero())
	assert.True(t, feb.Profit.IsZero())
}

func TestComputeFinancialMetrics_Empty(t *testing.T) {
	res := ComputeFinancialMetrics(nil, nil, WindowFromRecords())
	assert.True(t, res.Summary.TotalRevenue.IsZero())
	assert.True(t, res.Summary.TotalExpenses.IsZero())
	assert.True(t, res.Summary.NetProfit.IsZero())
	assert.True(t, res.Summary.OutstandingInvoices.IsZero())
	assert.NotNil(t, res.Monthly)
	assert.Empty(t, res.Monthly)
	assert.NotNil(t, res.Skipped)

	trailing := ComputeFinancialMetrics(nil, nil, TrailingMonths(core.YearMonth{Year: 2024, Month: time.June}, 3))
	require.Len(t, trailing.Monthly, 3)
	for _, p := range trailing.Monthly {
		assert.True(t, p.Revenue.IsZero() && p.Expenses.IsZero() && p.Profit.IsZero())
	}
	assert.Equal(t, []string{"Apr", "May", "Jun"}, labels(trailing.Monthly))
}

func TestComputeFinancialMetrics_SkipsMalformedRecords(t *testing.T) {
	invoices := []core.InvoiceRecord{
		{ID: "ok", Amount: "10", Status: "paid", Date: "2024-03-03"},
		{ID: "bad-date", Amount: "10", Status: "paid", Date: "yesterday"},
		{ID: "bad-amount", Amount: "ten", Status: "paid", Date: "2024-03-03"},
		{ID: "bad-status", Amount: "10", Status: "refunded", Date: "2024-03-03"},
	}
	expenses := []core.ExpenseRecord{
		{ID: "neg", Amount: "-5", Date: "2024-03-04"},
		{ID: "fine", Amount: "4", Date: "2024-03-04"},
	}

	res := ComputeFinancialMetrics(invoices, expenses, WindowFromRecords())

	require.Len(t, res.Skipped, 4)
	ids := make([]string, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		ids = append(ids, s.RecordID)
	}
	assert.Equal(t, []string{"bad-date", "bad-amount", "bad-status", "neg"}, ids)
	assert.Equal(t, core.KindExpense, res.Skipped[3].Kind)
	assert.True(t, errors.Is(res.Skipped[3], core.ErrNegativeAmount))

	assert.Equal(t, "10.00", res.Summary.TotalRevenue.String())
	assert.Equal(t, "4.00", res.Summary.TotalExpenses.String())
	require.Len(t, res.Monthly, 1)
	assert.Equal(t, "6.00", res.Monthly[0].Profit.String())
}

func TestComputeFinancialMetrics_GapMonthsAreZeroed(t *testing.T) {
	invoices := []core.InvoiceRecord{
		{ID: "a", Amount: "1", Status: "paid", Date: "2023-11-30"},
		{ID: "b", Amount: "2", Status: "paid", Date: "2024-02-01"},
	}
	res := ComputeFinancialMetrics(invoices, nil, WindowFromRecords())

	assert.Equal(t, []string{"Nov", "Dec", "Jan", "Feb"}, labels(res.Monthly))
	assert.Equal(t, "0.00", res.Monthly[1].Revenue.String())
	assert.Equal(t, "0.00", res.Monthly[2].Revenue.String())
	assert.Equal(t, 2024, res.Monthly[3].Period.Year)
}

func TestComputeFinancialMetrics_PendingInvoiceExtendsWindow(t *testing.T) {
	invoices := []core.InvoiceRecord{
		{ID: "a", Amount: "1", Status: "paid", Date: "2024-01-10"},
		{ID: "b", Amount: "9", Status: "draft", Date: "2024-03-10"},
	}
	res := ComputeFinancialMetrics(invoices, nil, WindowFromRecords())

	require.Len(t, res.Monthly, 3)
	assert.True(t, res.Monthly[2].Revenue.IsZero(), "unpaid invoices never count as revenue")
}

func TestComputeFinancialMetrics_TrailingWindowExcludesOldRecords(t *testing.T) {
	invoices := []core.InvoiceRecord{
		{ID: "old", Amount: "100", Status: "paid", Date: "2023-01-10"},
		{ID: "new", Amount: "5", Status: "paid", Date: "2024-06-10"},
	}
	w := TrailingMonths(core.YearMonth{Year: 2024, Month: time.June}, 12)
	res := ComputeFinancialMetrics(invoices, nil, w)

	require.Len(t, res.Monthly, 12)
	assert.Equal(t, "Jul", res.Monthly[0].Month)
	assert.Equal(t, 2023, res.Monthly[0].Period.Year)
	assert.Equal(t, "5.00", res.Monthly[11].Revenue.String())
	assert.Equal(t, "105.00", res.Summary.TotalRevenue.String(), "summary covers every record")
}

func TestBetween_SwapsReversedBounds(t *testing.T) {
	a := core.YearMonth{Year: 2024, Month: time.May}
	b := core.YearMonth{Year: 2024, Month: time.February}
	start, end, ok := Between(a, b).Bounds()
	require.True(t, ok)
	assert.Equal(t, b, start)
	assert.Equal(t, a, end)
}

func TestComputeFinancialMetrics_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := core.InvoiceStatuses()

	for round := 0; round < 25; round++ {
		t.Run(fmt.Sprintf("round_%d", round), func(t *testing.T) {
			var invoices []core.InvoiceRecord
			var expenses []core.ExpenseRecord
			allInvoices := core.Money{}
			for i := 0; i < rng.Intn(40); i++ {
				amt := fmt.Sprintf("%d.%02d", rng.Intn(5000), rng.Intn(100))
				allInvoices = allInvoices.Add(money(amt))
				invoices = append(invoices, core.InvoiceRecord{
					ID:     fmt.Sprintf("i%d", i),
					Amount: core.RawAmount(amt),
					Status: string(statuses[rng.Intn(len(statuses))]),
					Date:   randomDate(rng),
				})
			}
			for i := 0; i < rng.Intn(40); i++ {
				expenses = append(expenses, core.ExpenseRecord{
					ID:     fmt.Sprintf("e%d", i),
					Amount: core.RawAmount(fmt.Sprintf("%d,%02d", rng.Intn(3000), rng.Intn(100))),
					Date:   randomDate(rng),
				})
			}

			first := ComputeFinancialMetrics(invoices, expenses, WindowFromRecords())
			second := ComputeFinancialMetrics(invoices, expenses, WindowFromRecords())
			assert.Equal(t, first, second, "deterministic")

			s := first.Summary
			assert.True(t, s.NetProfit.Equal(s.TotalRevenue.Sub(s.TotalExpenses)))
			assert.True(t, s.TotalRevenue.Add(s.OutstandingInvoices).Equal(allInvoices))

			var rev, exp core.Money
			for i, p := range first.Monthly {
				rev = rev.Add(p.Revenue)
				exp = exp.Add(p.Expenses)
				assert.True(t, p.Profit.Equal(p.Revenue.Sub(p.Expenses)))
				if i > 0 {
					assert.Equal(t, first.Monthly[i-1].Period.Next(), p.Period, "contiguous")
				}
			}
			assert.True(t, rev.Equal(s.TotalRevenue), "monthly revenue sums to total")
			assert.True(t, exp.Equal(s.TotalExpenses), "monthly expenses sum to total")
		})
	}
}

func randomDate(rng *rand.Rand) string {
	return fmt.Sprintf("%d-%02d-%02d", 2022+rng.Intn(3), 1+rng.Intn(12), 1+rng.Intn(28))
}

func labels(points []core.MonthlyDataPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Month
	}
	return out
}

func TestComputeFinancialMetrics_OutOfRangeYearsDoNotStretchWindow(t *testing.T) {
	invoices := []core.InvoiceRecord{
		{ID: "old", Amount: "10", Status: "paid", Date: "0001-01-01"},
		{ID: "ok", Amount: "100", Status: "paid", Date: "2024-03-10"},
	}
	expenses := []core.ExpenseRecord{
		{ID: "far", Amount: "5", Date: "9999-12-31"},
	}

	res := ComputeFinancialMetrics(invoices, expenses, WindowFromRecords())

	require.Len(t, res.Monthly, 1)
	assert.Equal(t, "Mar", res.Monthly[0].Month)
	require.Len(t, res.Skipped, 2)
	for _, s := range res.Skipped {
		assert.Equal(t, "date", s.Field)
		assert.True(t, errors.Is(s, core.ErrInvalidDate))
	}
	assert.True(t, res.Summary.TotalRevenue.Equal(money("100")))
	assert.True(t, res.Summary.TotalExpenses.IsZero())
}
