package backend

import (
	"context"
	"fmt"

	"bizledger/internal/ledger"
	"bizledger/internal/ledger/google"
	"bizledger/internal/ledger/memory"
	"bizledger/internal/log"
	"bizledger/internal/storage"
	"bizledger/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:  repo,
		Cleanup: repo.Close,
		Ping:    repo.Ping,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	f.logger.Info("Initialized postgres backend")

	return &BackendResult{
		Ledger:  repo,
		Cleanup: repo.Close,
		Ping:    repo.Ping,
	}, nil
}

// createSheetsBackend reads and appends records in the spreadsheet. The
// spreadsheet has no place for templates and render jobs, so those live in
// a memory store seeded from the data directory.
func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		InvoicesSheet:   config.GoogleInvoicesSheet,
		ExpensesSheet:   config.GoogleExpensesSheet,
		CredentialsJSON: []byte(config.GoogleServiceAccountJSON),
		CredentialsFile: config.GoogleServiceAccountFile,
		OAuthClientJSON: []byte(config.GoogleOAuthClientJSON),
		OAuthClientFile: config.GoogleOAuthClientFile,
		OAuthTokenFile:  config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	docs, err := f.memoryStore(config.DataDirectory)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"invoices_sheet", config.GoogleInvoicesSheet,
		"expenses_sheet", config.GoogleExpensesSheet)

	return &BackendResult{
		Ledger: ledger.Composite{
			InvoiceLister: cli,
			ExpenseLister: cli,
			InvoiceWriter: cli,
			ExpenseWriter: cli,
			TemplateStore: docs,
			RenderStore:   docs,
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := f.memoryStore(config.DataDirectory)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{Ledger: store}, nil
}

func (f *DefaultFactory) memoryStore(dir string) (*memory.Store, error) {
	if dir == "" {
		return memory.New(), nil
	}
	store, err := memory.NewFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load data directory %s: %w", dir, err)
	}
	return store, nil
}
