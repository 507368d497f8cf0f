// Package money holds the decimal helpers shared by the invoice, payment and
// GST calculators. Amounts are shopspring decimals in the invoice currency.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on every monetary output.
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// Round rounds half-up to two decimal places.
// decimal.Round rounds half away from zero, which is half-up for the
// non-negative aggregates produced by the calculators.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns base * pct / 100 without rounding.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// Parse reads a decimal amount from user input.
func Parse(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return d, nil
}

// NormalizeCurrency uppercases an ISO currency tag.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
