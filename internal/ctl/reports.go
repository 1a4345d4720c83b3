package ctl

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
)

const maxWindowMonths = 120

func newMetricsCommand(a *app) *cobra.Command {
	var (
		invoicesPath string
		expensesPath string
		end          string
		months       int
		window       string
	)
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute the financial summary and monthly series",
		Long: `Compute revenue, outstanding invoices, expenses and net profit, plus one
data point per month.

Without --end the monthly series spans the earliest to the latest record
month. With --end it covers the --months months ending at that month;
records outside the window still count in the summary.`,
		Example: `  bizledgerctl metrics --invoices invoices.csv --expenses expenses.json
  bizledgerctl metrics --invoices invoices.json --end 2024-12 --months 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if invoicesPath == "" && expensesPath == "" {
				return errors.New("at least one of --invoices or --expenses is required")
			}
			w, err := metricsWindow(window, end, months)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var invoices []core.InvoiceRecord
			if invoicesPath != "" {
				if invoices, err = a.files.GetInvoices(ctx, invoicesPath); err != nil {
					return err
				}
			}
			var expenses []core.ExpenseRecord
			if expensesPath != "" {
				if expenses, err = a.files.GetExpenses(ctx, expensesPath); err != nil {
					return err
				}
			}

			res := metrics.ComputeFinancialMetrics(invoices, expenses, w)
			a.logSkipped("metrics", res.Skipped)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&invoicesPath, "invoices", "", "Invoice file (.json or .csv)")
	cmd.Flags().StringVar(&expensesPath, "expenses", "", "Expense file (.json or .csv)")
	cmd.Flags().StringVar(&end, "end", "", "Last month of the series (YYYY-MM)")
	cmd.Flags().IntVar(&months, "months", 12, "Number of months ending at --end")
	cmd.Flags().StringVar(&window, "window", "", "Set to 'records' to span the record dates (default without --end)")
	return cmd
}

// metricsWindow resolves the window flags. --window records and --end are
// mutually exclusive.
func metricsWindow(window, end string, months int) (metrics.Window, error) {
	switch window {
	case "", "records":
	default:
		return metrics.Window{}, fmt.Errorf("unknown window %q: only 'records' is supported", window)
	}
	if end == "" {
		return metrics.WindowFromRecords(), nil
	}
	if window == "records" {
		return metrics.Window{}, errors.New("--window records cannot be combined with --end")
	}
	ym, err := core.ParseYearMonth(end)
	if err != nil {
		return metrics.Window{}, fmt.Errorf("invalid --end: %w", err)
	}
	if months < 1 || months > maxWindowMonths {
		return metrics.Window{}, fmt.Errorf("invalid --months %d: must be between 1 and %d", months, maxWindowMonths)
	}
	return metrics.TrailingMonths(ym, months), nil
}

func newCategoriesCommand(a *app) *cobra.Command {
	var expensesPath string
	cmd := &cobra.Command{
		Use:     "categories",
		Short:   "Break expenses down by category",
		Example: `  bizledgerctl categories --expenses expenses.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expenses, err := a.files.GetExpenses(cmd.Context(), expensesPath)
			if err != nil {
				return err
			}
			res := metrics.ExpenseBreakdown(expenses)
			a.logSkipped("categories", res.Skipped)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&expensesPath, "expenses", "", "Expense file (.json or .csv)")
	_ = cmd.MarkFlagRequired("expenses")
	return cmd
}

func newAgingCommand(a *app) *cobra.Command {
	var (
		invoicesPath string
		asOf         string
	)
	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Group unpaid invoices by days past due",
		Example: `  bizledgerctl aging --invoices invoices.json
  bizledgerctl aging --invoices invoices.csv --as-of 2024-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			day := core.NewDate(now.Year(), int(now.Month()), now.Day())
			if asOf != "" {
				d, err := core.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				day = d
			}
			invoices, err := a.files.GetInvoices(cmd.Context(), invoicesPath)
			if err != nil {
				return err
			}
			res := metrics.ReceivablesAging(invoices, day)
			a.logSkipped("aging", res.Skipped)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&invoicesPath, "invoices", "", "Invoice file (.json or .csv)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference day (YYYY-MM-DD, default: today)")
	_ = cmd.MarkFlagRequired("invoices")
	return cmd
}

func (a *app) logSkipped(report string, skipped []*core.RecordValidationError) {
	for _, rve := range skipped {
		a.logger.Warn("Record skipped",
			"report", report,
			log.FieldRecordID, rve.RecordID,
			"field", rve.Field,
			log.FieldError, rve.Err)
	}
}
