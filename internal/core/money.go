// Package core holds the ledger records, money and calendar types shared by
// the aggregation and rendering packages.
//
// Amounts are decimal values backed by shopspring/decimal so that sums of
// many records never drift the way float64 sums do.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-float monetary amount. The zero value is zero.
type Money struct {
	amount decimal.Decimal
}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d}
}

// MustParseAmount is ParseAmount for constants; it panics on bad input.
func MustParseAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic("core: bad amount " + s + ": " + err.Error())
	}
	return m
}

// ParseAmount converts a user or store supplied string to Money.
//
// Dot and comma are both accepted as decimal separator. When both occur the
// last one is the decimal separator and the others are thousands separators,
// so "1.234,56" and "1,234.56" both parse to 1234.56. Negative values are
// rejected; zero is accepted.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34
//	ParseAmount("12,34")    -> 12.34
//	ParseAmount("1.234,50") -> 1234.50
//	ParseAmount("-1")       -> ErrNegativeAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		return Money{}, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")
	s = normalizeSeparators(s)
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	if strings.Count(s, ".") > 1 || s == "." {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{amount: d}, nil
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	default:
		return s
	}
}

func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }
func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }
func (m Money) Mul(o Money) Money { return Money{amount: m.amount.Mul(o.amount)} }

// MulRate multiplies by a plain rate such as 0.22 and rounds to cents.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(rate).Round(2)}
}

func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }
func (m Money) Equal(o Money) bool { return m.amount.Equal(o.amount) }
func (m Money) IsZero() bool { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }
func (m Money) Decimal() decimal.Decimal { return m.amount }

// String renders the amount with exactly two decimals, e.g. "1234.50".
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// Format renders the amount for display with a currency symbol and
// thousands grouping, e.g. Format("$") of 1234.5 is "$1,234.50".
func (m Money) Format(symbol string) string {
	neg := m.amount.IsNegative()
	s := m.amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := symbol + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// MarshalJSON writes the amount as a bare JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return ErrInvalidAmount
	}
	m.amount = d
	return nil
}

// SumMoney adds all amounts.
func SumMoney(ms ...Money) Money {
	var total Money
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}
