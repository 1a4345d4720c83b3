package render

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

// Recognized substitution tokens.
const (
	TokenInvoiceNumber = "invoice_number"
	TokenIssueDate     = "issue_date"
	TokenDueDate       = "due_date"
	TokenClientName    = "client_name"
	TokenBusinessName  = "business_name"
	TokenSubtotal      = "subtotal"
	TokenTaxAmount     = "tax_amount"
	TokenTotal         = "total"
)

// ItemLine is one row of the item table, already formatted for display.
type ItemLine struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

// Fields are the invoice values a template is rendered with. All values are
// display strings.
type Fields struct {
	InvoiceNumber   string     `json:"invoice_number"`
	IssueDate       string     `json:"issue_date"`
	DueDate         string     `json:"due_date"`
	ClientName      string     `json:"client_name"`
	ClientEmail     string     `json:"client_email"`
	ClientAddress   string     `json:"client_address"`
	BusinessName    string     `json:"business_name"`
	BusinessEmail   string     `json:"business_email"`
	BusinessAddress string     `json:"business_address"`
	Items           []ItemLine `json:"items"`
	Subtotal        string     `json:"subtotal"`
	Discount        string     `json:"discount"`
	TaxAmount       string     `json:"tax_amount"`
	Total           string     `json:"total"`
	Notes           string     `json:"notes"`
	Terms           string     `json:"terms"`
}

// Lookup returns the value for a recognized token name.
func (f Fields) Lookup(token string) (string, bool) {
	switch token {
	case TokenInvoiceNumber:
		return f.InvoiceNumber, true
	case TokenIssueDate:
		return f.IssueDate, true
	case TokenDueDate:
		return f.DueDate, true
	case TokenClientName:
		return f.ClientName, true
	case TokenBusinessName:
		return f.BusinessName, true
	case TokenSubtotal:
		return f.Subtotal, true
	case TokenTaxAmount:
		return f.TaxAmount, true
	case TokenTotal:
		return f.Total, true
	default:
		return "", false
	}
}

// BusinessProfile identifies the issuer printed on invoices.
type BusinessProfile struct {
	Name    string
	Email   string
	Address string
}

// Pricing adjusts the invoice totals.
type Pricing struct {
	// TaxRate is a fraction, e.g. 0.2 for 20%.
	TaxRate  decimal.Decimal
	Discount core.Money
	// Currency is the symbol prefixed to amounts.
	Currency string
}

// FieldsFromInvoice builds display fields for a stored invoice.
//
// With line items the subtotal is their sum; without, it is the invoice
// amount. Tax applies to the subtotal after discount, and
// total = subtotal - discount + tax.
func FieldsFromInvoice(inv core.InvoiceRecord, biz BusinessProfile, p Pricing) (Fields, error) {
	f := Fields{
		InvoiceNumber:   inv.Number,
		ClientName:      inv.Customer,
		ClientEmail:     inv.Email,
		BusinessName:    biz.Name,
		BusinessEmail:   biz.Email,
		BusinessAddress: biz.Address,
		Notes:           inv.Notes,
		Items:           []ItemLine{},
	}
	if f.InvoiceNumber == "" {
		f.InvoiceNumber = inv.ID
	}
	issued, err := core.ParseDate(inv.Date)
	if err != nil {
		return Fields{}, &core.RecordValidationError{RecordID: inv.ID, Kind: core.KindInvoice, Field: "date", Value: inv.Date, Err: err}
	}
	f.IssueDate = issued.String()
	if strings.TrimSpace(inv.DueDate) != "" {
		due, err := core.ParseDate(inv.DueDate)
		if err != nil {
			return Fields{}, &core.RecordValidationError{RecordID: inv.ID, Kind: core.KindInvoice, Field: "due_date", Value: inv.DueDate, Err: err}
		}
		f.DueDate = due.String()
	}

	var subtotal core.Money
	if len(inv.Items) > 0 {
		for i, item := range inv.Items {
			amount, err := item.Total()
			if err != nil {
				return Fields{}, &core.RecordValidationError{
					RecordID: inv.ID, Kind: core.KindInvoice, Field: "items[" + strconv.Itoa(i) + "]", Value: string(item.UnitPrice), Err: err,
				}
			}
			qty := string(item.Quantity)
			if qty == "" {
				qty = "1"
			}
			price, _ := core.ParseAmount(string(item.UnitPrice))
			f.Items = append(f.Items, ItemLine{
				Description: item.Description,
				Quantity:    qty,
				UnitPrice:   price.Format(p.Currency),
				Amount:      amount.Format(p.Currency),
			})
			subtotal = subtotal.Add(amount)
		}
	} else {
		amount, err := core.ParseAmount(string(inv.Amount))
		if err != nil {
			return Fields{}, &core.RecordValidationError{RecordID: inv.ID, Kind: core.KindInvoice, Field: "amount", Value: string(inv.Amount), Err: err}
		}
		subtotal = amount
	}

	taxable := subtotal.Sub(p.Discount)
	tax := taxable.MulRate(p.TaxRate)
	f.Subtotal = subtotal.Format(p.Currency)
	f.Discount = p.Discount.Format(p.Currency)
	f.TaxAmount = tax.Format(p.Currency)
	f.Total = taxable.Add(tax).Format(p.Currency)
	return f, nil
}
