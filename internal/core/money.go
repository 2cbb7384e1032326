// Package core provides money parsing and formatting utilities.
//
// Amounts are whole Chilean pesos. The ERP sends decimals; they are rounded
// half away from zero on the way in and never carried as floats.
package core

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNegativeAmount is returned by ParseAmount for values below zero.
var ErrNegativeAmount = errors.New("negative amount")

// FromDecimal rounds a decimal amount to whole pesos.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Amount: d.Round(0).IntPart()}
}

// Decimal returns the amount as a decimal for wire encoding.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// String formats the amount as currency.
func (m Money) String() string {
	return FormatCurrency(m)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Amount, 10)), nil
}

// UnmarshalJSON accepts JSON numbers (with or without decimals) and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.Amount = 0
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return ErrInvalidAmount
	}
	*m = FromDecimal(d)
	return nil
}

// ParseAmount converts user input into Money.
//
// It accepts Chilean notation ("1.234.567", "$ 1.234.567", "1.234,5") as
// well as plain numbers ("1234567", "1234.5"). A single dot followed by
// exactly three digits is read as a thousands separator. Fractions are
// rounded half away from zero.
//
// Examples:
//
//	ParseAmount("1.234.567") -> 1234567
//	ParseAmount("$12.500")   -> 12500
//	ParseAmount("99,5")      -> 100
//	ParseAmount("1234.4")    -> 1234
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		return Money{}, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	switch {
	case strings.Contains(s, ","):
		// Decimal comma: every dot is a thousands separator.
		if strings.Count(s, ",") > 1 {
			return Money{}, ErrInvalidAmount
		}
		whole, frac, _ := strings.Cut(s, ",")
		if !thousandsGrouped(whole) {
			return Money{}, ErrInvalidAmount
		}
		s = strings.ReplaceAll(whole, ".", "") + "." + frac
	case strings.Count(s, ".") > 1:
		if !thousandsGrouped(s) {
			return Money{}, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ".", "")
	case strings.Contains(s, "."):
		if idx := strings.Index(s, "."); len(s)-idx-1 == 3 {
			s = strings.Replace(s, ".", "", 1)
		}
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d), nil
}

// thousandsGrouped reports whether every dot-separated group after the first
// has exactly three digits.
func thousandsGrouped(s string) bool {
	groups := strings.Split(s, ".")
	if groups[0] == "" {
		return len(groups) == 1
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// FormatNumber renders an integer with dots as thousands separators and no
// decimals: 1234567 -> "1.234.567".
func FormatNumber(n int64) string {
	neg := n < 0
	var digits string
	if neg {
		// Avoid overflow on math.MinInt64 by formatting the unsigned value.
		digits = strconv.FormatUint(uint64(-(n+1))+1, 10)
	} else {
		digits = strconv.FormatInt(n, 10)
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatCurrency renders an amount as Chilean pesos: "$1.234.567", "-$500".
func FormatCurrency(m Money) string {
	if m.Amount < 0 {
		return "-$" + FormatNumber(m.Amount)[1:]
	}
	return "$" + FormatNumber(m.Amount)
}
