package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{"0", "0.00", nil},
		{"1", "1.00", nil},
		{"1.2", "1.20", nil},
		{"1,2", "1.20", nil},
		{"12.34", "12.34", nil},
		{"12,34", "12.34", nil},
		{" 7.50 ", "7.50", nil},
		{"+3", "3.00", nil},
		{"1.234,56", "1234.56", nil},
		{"1,234.56", "1234.56", nil},
		{"1,234,567", "1234567.00", nil},
		{"1.234.567", "1234567.00", nil},
		{"", "", ErrInvalidAmount},
		{"abc", "", ErrInvalidAmount},
		{"12a", "", ErrInvalidAmount},
		{"1e3", "", ErrInvalidAmount},
		{"-1", "", ErrNegativeAmount},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		if c.err != nil {
			if !errors.Is(err, c.err) {
				t.Fatalf("ParseAmount(%q) err = %v, want %v", c.in, err, c.err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q) unexpected err: %v", c.in, err)
		}
		if got.String() != c.want {
			t.Fatalf("ParseAmount(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestMoney_Format(t *testing.T) {
	cases := []struct {
		in   Money
		want string
	}{
		{MustParseAmount("0"), "$0.00"},
		{MustParseAmount("12.3"), "$12.30"},
		{MustParseAmount("1234.5"), "$1,234.50"},
		{MustParseAmount("1234567.891"), "$1,234,567.89"},
		{MustParseAmount("10").Sub(MustParseAmount("25")), "-$15.00"},
	}
	for _, c := range cases {
		if got := c.in.Format("$"); got != c.want {
			t.Errorf("Format(%s) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMoney_JSON(t *testing.T) {
	m := MustParseAmount("99.9")
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "99.90" {
		t.Fatalf("MarshalJSON = %s, want 99.90", b)
	}

	var fromString Money
	if err := fromString.UnmarshalJSON([]byte(`"12.5"`)); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if !fromString.Equal(MustParseAmount("12.5")) {
		t.Fatalf("unmarshal string = %s", fromString)
	}
	if err := fromString.UnmarshalJSON([]byte(`"x"`)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestLineItem_Total(t *testing.T) {
	li := LineItem{Quantity: "3", UnitPrice: "2.50"}
	got, err := li.Total()
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if got.String() != "7.50" {
		t.Fatalf("Total = %s, want 7.50", got)
	}

	single := LineItem{UnitPrice: "4"}
	got, err = single.Total()
	if err != nil || got.String() != "4.00" {
		t.Fatalf("Total without quantity = %s, %v", got, err)
	}

	if _, err := (LineItem{UnitPrice: "x"}).Total(); err == nil {
		t.Fatal("expected error for bad unit price")
	}
}
