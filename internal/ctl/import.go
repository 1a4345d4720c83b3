package ctl

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bizledger/internal/backend"
	"bizledger/internal/cli"
	"bizledger/internal/config"
	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/services"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		invoicesPath string
		expensesPath string
		dataBackend  string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load invoice and expense files into the configured data backend",
		Long: `Validate and store invoices and expenses from JSON or CSV files. Records
without an ID get a fresh one; records that fail validation are listed in the
report and not stored.

The backend is configured through the same environment variables (and .env
file) as the server, e.g. DATA_BACKEND, SQLITE_DB_PATH and DATABASE_URL. When
AMQP_URL is set, one ledger change is published for the whole import so that
running servers refresh their dashboards.`,
		Example: `  DATA_BACKEND=sqlite bizledgerctl import --invoices invoices.csv --expenses expenses.csv
  bizledgerctl import --backend postgres --expenses expenses.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if invoicesPath == "" && expensesPath == "" {
				return errors.New("at least one of --invoices or --expenses is required")
			}
			ctx := cmd.Context()

			var (
				invoices []core.InvoiceRecord
				expenses []core.ExpenseRecord
				err      error
			)
			if invoicesPath != "" {
				if invoices, err = a.files.GetInvoices(ctx, invoicesPath); err != nil {
					return err
				}
			}
			if expensesPath != "" {
				if expenses, err = a.files.GetExpenses(ctx, expensesPath); err != nil {
					return err
				}
			}

			cfg := config.Load()
			if dataBackend != "" {
				cfg.DataBackend = dataBackend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.DataBackend == config.BackendMemory {
				a.logger.Warn("Memory backend keeps imported records only for this run")
			}

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			result, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
			if err != nil {
				return fmt.Errorf("failed to create %s backend: %w", bcfg.Type, err)
			}
			defer func() {
				if err := result.Close(); err != nil {
					a.logger.Error("Failed to close backend", log.FieldError, err)
				}
			}()

			// running servers drop their cached figures when they hear of the import
			broker, err := cli.ConnectBroker(cfg, a.logger)
			if err != nil {
				a.logger.Warn("Broker unavailable; servers keep cached figures until CACHE_TTL expires", log.FieldError, err)
			}
			if broker != nil {
				defer broker.Close()
			}

			svc := services.NewLedgerService(result.Ledger, nil, cli.Publisher(broker), a.logger)
			rep, err := svc.Import(ctx, invoices, expenses)
			if err != nil {
				return fmt.Errorf("import stopped after %d invoices and %d expenses: %w", rep.Invoices, rep.Expenses, err)
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&invoicesPath, "invoices", "", "Invoice file (.json or .csv)")
	cmd.Flags().StringVar(&expensesPath, "expenses", "", "Expense file (.json or .csv)")
	cmd.Flags().StringVar(&dataBackend, "backend", "", "Override DATA_BACKEND (memory, sqlite, postgres)")
	return cmd
}
