package core

// FinancialSummary holds the headline totals of a set of records.
type FinancialSummary struct {
	TotalRevenue        Money `json:"total_revenue"`
	TotalExpenses       Money `json:"total_expenses"`
	NetProfit           Money `json:"net_profit"`
	OutstandingInvoices Money `json:"outstanding_invoices"`
}

// MonthlyDataPoint is one calendar month of the trend series.
type MonthlyDataPoint struct {
	Month    string    `json:"month"` // three-letter label
	Period   YearMonth `json:"period"`
	Revenue  Money     `json:"revenue"`
	Expenses Money     `json:"expenses"`
	Profit   Money     `json:"profit"`
}

// CategoryTotal represents expenses aggregated by category name.
type CategoryTotal struct {
	Name    string  `json:"name"`
	Total   Money   `json:"total"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}
