// Package money converts between major currency units and stored cents.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ToCents converts an amount in major units to integer cents, rounding half
// away from zero to the nearest cent. amount must be in range; see Cents.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// Cents is ToCents for unchecked input. ok is false when the rounded amount
// does not fit in int64 cents.
func Cents(amount decimal.Decimal) (cents int64, ok bool) {
	c := amount.Mul(hundred).Round(0)
	if c.GreaterThan(maxCents) || c.LessThan(minCents) {
		return 0, false
	}
	return c.IntPart(), true
}

// FromCents converts stored cents to major units.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatCurrency renders cents as US dollars, e.g. 123456 -> "$1,234.56".
func FormatCurrency(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := FromCents(cents).StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatMajor renders cents in major units without a currency symbol, as the
// edit form expects ("49.99", "120").
func FormatMajor(cents int64) string {
	return FromCents(cents).String()
}
