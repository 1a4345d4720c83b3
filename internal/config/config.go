package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bizledger/internal/log"
)

// Backend names accepted in DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	AuthUser           string
	AuthPass           string
	ShutdownTimeout    time.Duration

	// Backend selection
	DataBackend string
	// DataDir holds the JSON seed files for the memory backend.
	DataDir string

	// Database
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP; render jobs are disabled when AMQPURL is empty
	AMQPURL         string
	AMQPExchange    string
	AMQPRenderQueue string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleInvoicesSheet      string
	GoogleExpensesSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// An OAuth client plus a token saved by `bizledgerctl sheets-auth` can
	// stand in for the service account.
	GoogleOAuthClientJSON string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string

	// Logging
	LogLevel  string
	LogFormat string

	// Dashboard
	MetricsWindowMonths int
	CacheTTL            time.Duration
	CacheSize           int

	// Worker
	WorkerConcurrency int

	// Invoice rendering
	BusinessName    string
	BusinessEmail   string
	BusinessAddress string
	TaxRate         string
	CurrencySymbol  string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AuthUser:           getEnv("AUTH_USER", ""),
		AuthPass:           getEnv("AUTH_PASS", ""),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bizledger.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "bizledger"),
		AMQPRenderQueue: getEnv("AMQP_RENDER_QUEUE", "render_invoices"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleInvoicesSheet:      getEnv("GOOGLE_INVOICES_SHEET", "Invoices"),
		GoogleExpensesSheet:      getEnv("GOOGLE_EXPENSES_SHEET", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", log.FormatText),

		MetricsWindowMonths: getEnvInt("METRICS_WINDOW_MONTHS", 12),
		CacheTTL:            getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize:           getEnvInt("CACHE_SIZE", 128),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		BusinessName:    getEnv("BUSINESS_NAME", ""),
		BusinessEmail:   getEnv("BUSINESS_EMAIL", ""),
		BusinessAddress: getEnv("BUSINESS_ADDRESS", ""),
		TaxRate:         getEnv("TAX_RATE", "0"),
		CurrencySymbol:  getEnv("CURRENCY_SYMBOL", "$"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite, BackendPostgres, BackendSheets}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: scheme must be 'postgres' or 'postgresql'")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleInvoicesSheet == "" || c.GoogleExpensesSheet == "" {
			errors = append(errors, "Google invoices and expenses sheet names are required when using sheets backend")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasOAuth := (c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != "") && c.GoogleOAuthTokenFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" && !hasOAuth {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend (or an OAuth client with GOOGLE_OAUTH_TOKEN_FILE)")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if hasOAuth && !hasFile && c.GoogleServiceAccountJSON == "" {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s (run bizledgerctl sheets-auth)", c.GoogleOAuthTokenFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRenderQueue == "" {
			errors = append(errors, "AMQP render queue name cannot be empty when AMQP URL is provided")
		}
		// server and worker must see the same invoices and renders
		if c.DataBackend == BackendMemory || c.DataBackend == BackendSheets {
			errors = append(errors, fmt.Sprintf("AMQP render jobs need a shared store: DATA_BACKEND must be sqlite or postgres when AMQP URL is provided (got %s)", c.DataBackend))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch c.LogFormat {
	case log.FormatText, log.FormatJSON, log.FormatConsole:
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text, json or console", c.LogFormat))
	}

	if c.MetricsWindowMonths < 1 || c.MetricsWindowMonths > 120 {
		errors = append(errors, fmt.Sprintf("invalid metrics window %d: must be between 1 and 120 months", c.MetricsWindowMonths))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if (c.AuthUser == "") != (c.AuthPass == "") {
		errors = append(errors, "AUTH_USER and AUTH_PASS must be set together")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be between 1 and 64", c.WorkerConcurrency))
	}

	if rate, err := decimal.NewFromString(c.TaxRate); err != nil {
		errors = append(errors, fmt.Sprintf("invalid tax rate '%s': must be a decimal fraction", c.TaxRate))
	} else if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		errors = append(errors, fmt.Sprintf("invalid tax rate %s: must be between 0 and 1", c.TaxRate))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// TaxRateDecimal returns the configured tax rate, or zero when it does not
// parse. Call Validate first to surface bad values.
func (c *Config) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
