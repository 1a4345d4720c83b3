// Package google reads and appends invoice and expense rows in a Google
// Sheets spreadsheet. Templates and render jobs are not stored in sheets.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
)

// Column headers expected on the first row of each sheet. Lookup is
// case-insensitive and column order is free.
var (
	invoiceHeaders = []string{"id", "number", "date", "due_date", "amount", "status", "customer", "email", "notes"}
	expenseHeaders = []string{"id", "date", "amount", "category", "vendor", "payment_method", "description"}
)

type Options struct {
	SpreadsheetID string
	InvoicesSheet string
	ExpensesSheet string
	// CredentialsJSON is a service account key. When empty, CredentialsFile
	// is read instead.
	CredentialsJSON []byte
	CredentialsFile string
	// Without service account credentials an OAuth client (JSON or file)
	// and a token saved by SaveToken are used.
	OAuthClientJSON []byte
	OAuthClientFile string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	invoicesSheet string
	expensesSheet string
}

// Ensure interface conformance
var (
	_ ledger.InvoiceLister = (*Client)(nil)
	_ ledger.ExpenseLister = (*Client)(nil)
	_ ledger.InvoiceWriter = (*Client)(nil)
	_ ledger.ExpenseWriter = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account or a
// saved OAuth token.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	auth, method, err := authOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, auth...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", opts.SpreadsheetID,
		"invoices_sheet", opts.InvoicesSheet,
		"expenses_sheet", opts.ExpensesSheet,
		"auth", method)
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		invoicesSheet: opts.InvoicesSheet,
		expensesSheet: opts.ExpensesSheet,
	}, nil
}

// authOptions picks the service account when one is configured and the
// OAuth token otherwise.
func authOptions(ctx context.Context, opts Options) ([]goption.ClientOption, string, error) {
	creds := opts.CredentialsJSON
	if len(creds) == 0 && opts.CredentialsFile != "" {
		var err error
		if creds, err = os.ReadFile(opts.CredentialsFile); err != nil {
			return nil, "", fmt.Errorf("read service account file: %w", err)
		}
	}
	if len(creds) > 0 {
		return []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, "service_account", nil
	}

	if opts.OAuthTokenFile == "" {
		return nil, "", errors.New("missing service account credentials")
	}
	clientJSON := opts.OAuthClientJSON
	if len(clientJSON) == 0 {
		if opts.OAuthClientFile == "" {
			return nil, "", errors.New("missing OAuth client for token " + opts.OAuthTokenFile)
		}
		var err error
		if clientJSON, err = os.ReadFile(opts.OAuthClientFile); err != nil {
			return nil, "", fmt.Errorf("read OAuth client file: %w", err)
		}
	}
	cfg, err := OAuthConfig(clientJSON)
	if err != nil {
		return nil, "", err
	}
	tok, err := LoadToken(opts.OAuthTokenFile)
	if err != nil {
		return nil, "", err
	}
	return []goption.ClientOption{goption.WithTokenSource(cfg.TokenSource(ctx, tok))}, "oauth", nil
}

// OAuthConfig parses an OAuth client definition as downloaded from the
// Google Cloud console, scoped to spreadsheets.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := gauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read OAuth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode OAuth token %s: %w", path, err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("OAuth token %s holds no credentials", path)
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) ListInvoices(ctx context.Context) ([]core.InvoiceRecord, error) {
	values, err := c.readSheet(ctx, c.invoicesSheet)
	if err != nil {
		return nil, err
	}
	return parseInvoices(values)
}

func (c *Client) GetInvoice(ctx context.Context, id string) (core.InvoiceRecord, error) {
	invs, err := c.ListInvoices(ctx)
	if err != nil {
		return core.InvoiceRecord{}, err
	}
	for _, inv := range invs {
		if inv.ID == id {
			return inv, nil
		}
	}
	return core.InvoiceRecord{}, fmt.Errorf("invoice %q: %w", id, core.ErrNotFound)
}

func (c *Client) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	values, err := c.readSheet(ctx, c.expensesSheet)
	if err != nil {
		return nil, err
	}
	return parseExpenses(values)
}

func (c *Client) CreateInvoice(ctx context.Context, inv core.InvoiceRecord) error {
	row := []interface{}{inv.ID, inv.Number, inv.Date, inv.DueDate, string(inv.Amount), inv.Status, inv.Customer, inv.Email, inv.Notes}
	return c.appendRow(ctx, c.invoicesSheet, row)
}

func (c *Client) CreateExpense(ctx context.Context, exp core.ExpenseRecord) error {
	row := []interface{}{exp.ID, exp.Date, string(exp.Amount), exp.Category, exp.Vendor, exp.PaymentMethod, exp.Description}
	return c.appendRow(ctx, c.expensesSheet, row)
}

// appendRow writes row in the canonical header order, so new sheets should
// be created with the headers in that order.
func (c *Client) appendRow(ctx context.Context, sheet string, row []interface{}) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:A", sheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}
