package core

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	StatusPaid    InvoiceStatus = "paid"
	StatusPending InvoiceStatus = "pending"
	StatusOverdue InvoiceStatus = "overdue"
	StatusDraft   InvoiceStatus = "draft"
	StatusUnpaid  InvoiceStatus = "unpaid"
)

const (
	KindInvoice RecordKind = "invoice"
	KindExpense RecordKind = "expense"
)

// DefaultCategory is used for expenses without a category.
const DefaultCategory = "Other"

type (
	InvoiceStatus string

	RecordKind string

	// RawAmount keeps an amount exactly as it arrived from a store. JSON
	// numbers and JSON strings are both accepted.
	RawAmount string

	LineItem struct {
		Description string    `json:"description"`
		Quantity    RawAmount `json:"quantity"`
		UnitPrice   RawAmount `json:"unit_price"`
	}

	// InvoiceRecord is an invoice as read from a ledger backend. Dates and
	// amounts stay unparsed until Validate is called.
	InvoiceRecord struct {
		ID       string     `json:"id"`
		Number   string     `json:"number,omitempty"`
		Date     string     `json:"date"`
		DueDate  string     `json:"due_date,omitempty"`
		Amount   RawAmount  `json:"amount"`
		Status   string     `json:"status"`
		Customer string     `json:"customer,omitempty"`
		Email    string     `json:"email,omitempty"`
		Notes    string     `json:"notes,omitempty"`
		Items    []LineItem `json:"items,omitempty"`
	}

	// ExpenseRecord is an expense as read from a ledger backend.
	ExpenseRecord struct {
		ID            string    `json:"id"`
		Date          string    `json:"date"`
		Amount        RawAmount `json:"amount"`
		Category      string    `json:"category,omitempty"`
		Vendor        string    `json:"vendor,omitempty"`
		PaymentMethod string    `json:"payment_method,omitempty"`
		Description   string    `json:"description,omitempty"`
	}

	// Invoice is a validated invoice.
	Invoice struct {
		ID      string
		Date    Date
		DueDate Date // zero when the record has none
		Amount  Money
		Status  InvoiceStatus
	}

	// Expense is a validated expense.
	Expense struct {
		ID       string
		Date     Date
		Amount   Money
		Category string
	}
)

// InvoiceStatuses lists the closed set of invoice statuses.
func InvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{StatusPaid, StatusPending, StatusOverdue, StatusDraft, StatusUnpaid}
}

// ParseInvoiceStatus is case-insensitive and ignores surrounding blanks.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusOverdue, StatusDraft, StatusUnpaid:
		return true
	default:
		return false
	}
}

// IsPaid reports whether the invoice amount counts as realized revenue.
func (s InvoiceStatus) IsPaid() bool {
	return s == StatusPaid
}

func (a *RawAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
		return nil
	}
	*a = RawAmount(b)
	return nil
}

func (a RawAmount) String() string {
	return string(a)
}

// Total returns quantity times unit price. An empty quantity counts as one.
func (li LineItem) Total() (Money, error) {
	price, err := ParseAmount(string(li.UnitPrice))
	if err != nil {
		return Money{}, err
	}
	if strings.TrimSpace(string(li.Quantity)) == "" {
		return price, nil
	}
	qty, err := ParseAmount(string(li.Quantity))
	if err != nil {
		return Money{}, err
	}
	return price.Mul(qty), nil
}

// Validate parses the raw fields. The returned error is always a
// *RecordValidationError naming the first offending field.
func (r InvoiceRecord) Validate() (Invoice, error) {
	inv := Invoice{ID: r.ID}
	var err error
	if inv.Date, err = ParseDate(r.Date); err != nil {
		return Invoice{}, newRecordError(KindInvoice, r.ID, "date", r.Date, err)
	}
	if strings.TrimSpace(r.DueDate) != "" {
		if inv.DueDate, err = ParseDate(r.DueDate); err != nil {
			return Invoice{}, newRecordError(KindInvoice, r.ID, "due_date", r.DueDate, err)
		}
	}
	if inv.Amount, err = ParseAmount(string(r.Amount)); err != nil {
		return Invoice{}, newRecordError(KindInvoice, r.ID, "amount", string(r.Amount), err)
	}
	if inv.Status, err = ParseInvoiceStatus(r.Status); err != nil {
		return Invoice{}, newRecordError(KindInvoice, r.ID, "status", r.Status, err)
	}
	return inv, nil
}

// Validate parses the raw fields. Missing categories become DefaultCategory.
func (r ExpenseRecord) Validate() (Expense, error) {
	exp := Expense{ID: r.ID, Category: NormalizeCategory(r.Category)}
	var err error
	if exp.Date, err = ParseDate(r.Date); err != nil {
		return Expense{}, newRecordError(KindExpense, r.ID, "date", r.Date, err)
	}
	if exp.Amount, err = ParseAmount(string(r.Amount)); err != nil {
		return Expense{}, newRecordError(KindExpense, r.ID, "amount", string(r.Amount), err)
	}
	return exp, nil
}

// NormalizeCategory trims the label and maps blanks to DefaultCategory.
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return DefaultCategory
	}
	return c
}
