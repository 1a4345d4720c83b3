package http

import (
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/services"
)

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q, err := ParseMetricsQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.Dashboard.Metrics(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Dashboard.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAging(w http.ResponseWriter, r *http.Request) {
	asOf, err := ParseAsOf(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.Dashboard.Aging(r.Context(), asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", nil); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err, "template", "index.html")
	}
}

// overviewView feeds overview.html.
type overviewView struct {
	Summary    core.FinancialSummary
	Months     []monthRow
	Categories []core.CategoryTotal
	Aging      metrics.AgingReport
	Skipped    int
}

type monthRow struct {
	core.MonthlyDataPoint
	// RevenueWidth and ExpensesWidth are bar widths in percent of the
	// largest monthly figure.
	RevenueWidth  int
	ExpensesWidth int
}

// handleOverview renders the dashboard partial. The three figures are
// fetched concurrently.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	q, err := ParseMetricsQuery(r.URL.Query())
	if err != nil {
		FragmentResponse(http.StatusBadRequest, "error", err.Error()).Write(w)
		return
	}

	var (
		res       metrics.Result
		breakdown metrics.Breakdown
		aging     metrics.AgingReport
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		res, err = s.svc.Dashboard.Metrics(ctx, q)
		return err
	})
	g.Go(func() (err error) {
		breakdown, err = s.svc.Dashboard.Categories(ctx)
		return err
	})
	g.Go(func() (err error) {
		aging, err = s.svc.Dashboard.Aging(ctx, core.Date{})
		return err
	})
	if err := g.Wait(); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Overview error", log.FieldError, err)
		FragmentResponse(http.StatusOK, "placeholder", "Failed to load the overview").Write(w)
		return
	}

	view := buildOverview(res, breakdown, aging)
	if s.templates == nil {
		FragmentResponse(http.StatusOK, "placeholder", "Net profit: "+view.Summary.NetProfit.Format(s.opts.CurrencySymbol)).Write(w)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "overview.html", view); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution error",
			log.FieldError, err, "template", "overview.html")
	}
}

func buildOverview(res metrics.Result, breakdown metrics.Breakdown, aging metrics.AgingReport) overviewView {
	view := overviewView{
		Summary:    res.Summary,
		Categories: breakdown.Categories,
		Aging:      aging,
		Skipped:    len(res.Skipped),
	}
	var peak core.Money
	for _, m := range res.Monthly {
		if m.Revenue.Cmp(peak) > 0 {
			peak = m.Revenue
		}
		if m.Expenses.Cmp(peak) > 0 {
			peak = m.Expenses
		}
	}
	for _, m := range res.Monthly {
		view.Months = append(view.Months, monthRow{
			MonthlyDataPoint: m,
			RevenueWidth:     barWidth(m.Revenue, peak),
			ExpensesWidth:    barWidth(m.Expenses, peak),
		})
	}
	return view
}

var hundred = decimal.NewFromInt(100)

// barWidth is v as a rounded percentage of peak, at least 2 for any
// non-zero value so small figures stay visible.
func barWidth(v, peak core.Money) int {
	if peak.IsZero() || v.IsZero() {
		return 0
	}
	width := int(v.Decimal().Mul(hundred).Div(peak.Decimal()).Round(0).IntPart())
	switch {
	case width < 2:
		return 2
	case width > 100:
		return 100
	default:
		return width
	}
}

var (
	_ DashboardReader = (*services.DashboardService)(nil)
	_ LedgerAPI       = (*services.LedgerService)(nil)
	_ Renderer        = (*services.RenderService)(nil)
)
