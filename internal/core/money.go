// Package core holds the reconciliation domain: categories, pending
// transactions, the per-user queue, the conversation state and the monthly
// budget ledger. Money is always a shopspring decimal rounded to cents.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a non-negative decimal such as "12", "12.5" or "$12.50".
// A third fractional digit is rounded half-up into cents. Signs, exponents and
// thousands separators are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return decimal.Zero, ErrInvalidAmount
	}
	if intPart == "" && (!hasDot || fracPart == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if len(intPart) > 12 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// Owed normalizes a provider's signed amount to the non-negative magnitude the
// user is asked to confirm.
func Owed(raw decimal.Decimal) decimal.Decimal {
	return raw.Abs().Round(2)
}

// FormatMoney renders d as "$1234.50".
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Percent returns part/whole as a whole-number percentage, or zero when whole
// is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(0)
}
