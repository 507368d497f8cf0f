// Package calc reduces invoice line items, additional charges and a discount
// into the invoice totals. It performs no I/O and never logs.
package calc

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/money"
)

// CalculationType selects how an additional charge amount is interpreted.
type CalculationType string

const (
	CalculationFixed      CalculationType = "fixed"
	CalculationPercentage CalculationType = "percentage"
)

var (
	ErrNegativeQuantity       = errors.New("negative_quantity")
	ErrNegativeRate           = errors.New("negative_rate")
	ErrNegativeTaxRate        = errors.New("negative_tax_rate")
	ErrNegativeDiscount       = errors.New("negative_discount")
	ErrNegativeChargeAmount   = errors.New("negative_charge_amount")
	ErrPercentageOutOfRange   = errors.New("percentage_out_of_range")
	ErrInvalidCalculationType = errors.New("invalid_calculation_type")
)

var maxPercentage = decimal.NewFromInt(100)

type LineItem struct {
	Description    string
	Quantity       decimal.Decimal
	Rate           decimal.Decimal
	TaxRatePercent *decimal.Decimal
}

// LineTotal is quantity * rate, unrounded.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Quantity.Mul(l.Rate)
}

// Tax is the line's pre-discount amount taxed at its own rate, unrounded.
func (l LineItem) Tax() decimal.Decimal {
	if l.TaxRatePercent == nil {
		return decimal.Zero
	}
	return money.Percent(l.LineTotal(), *l.TaxRatePercent)
}

// Charge is an additional charge. Amount is currency units for fixed charges
// and percentage points (0-100) for percentage charges.
type Charge struct {
	ID              string
	Type            string
	Label           string
	CalculationType CalculationType
	Amount          decimal.Decimal
	IsActive        bool
}

// ChargeLine pairs a charge with what it contributed to the total.
// Inactive charges are listed with a zero contribution.
type ChargeLine struct {
	Charge
	Contribution decimal.Decimal
}

type Totals struct {
	Currency               string
	Subtotal               decimal.Decimal
	Discount               decimal.Decimal
	TaxAmount              decimal.Decimal
	AdditionalChargesTotal decimal.Decimal
	Total                  decimal.Decimal
	Charges                []ChargeLine
}

// ComputeTotals derives subtotal, tax, additional charges and total.
// Tax is taken per line. Percentage charges apply to the pre-discount,
// pre-tax subtotal and never compound. Each aggregate is rounded half-up to
// two places once; the total is built from the rounded aggregates and
// clamped at zero. Any invalid record rejects the whole call.
func ComputeTotals(items []LineItem, charges []Charge, discount decimal.Decimal, currency string) (Totals, error) {
	if err := Validate(items, charges, discount); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		tax = tax.Add(item.Tax())
	}

	chargesTotal := decimal.Zero
	lines := make([]ChargeLine, 0, len(charges))
	for _, charge := range charges {
		contribution := chargeContribution(charge, subtotal)
		chargesTotal = chargesTotal.Add(contribution)
		lines = append(lines, ChargeLine{Charge: charge, Contribution: money.Round(contribution)})
	}

	out := Totals{
		Currency:               money.NormalizeCurrency(currency),
		Subtotal:               money.Round(subtotal),
		Discount:               money.Round(discount),
		TaxAmount:              money.Round(tax),
		AdditionalChargesTotal: money.Round(chargesTotal),
		Charges:                lines,
	}
	out.Total = money.Round(money.ClampZero(
		out.Subtotal.Sub(out.Discount).Add(out.TaxAmount).Add(out.AdditionalChargesTotal),
	))
	return out, nil
}

func chargeContribution(charge Charge, subtotal decimal.Decimal) decimal.Decimal {
	if !charge.IsActive {
		return decimal.Zero
	}
	if charge.CalculationType == CalculationPercentage {
		return money.Percent(subtotal, charge.Amount)
	}
	return charge.Amount
}

// Validate checks every record before any arithmetic happens.
func Validate(items []LineItem, charges []Charge, discount decimal.Decimal) error {
	for i, item := range items {
		if item.Quantity.IsNegative() {
			return money.NewFieldError("items", i, "quantity", ErrNegativeQuantity)
		}
		if item.Rate.IsNegative() {
			return money.NewFieldError("items", i, "rate", ErrNegativeRate)
		}
		if item.TaxRatePercent != nil && item.TaxRatePercent.IsNegative() {
			return money.NewFieldError("items", i, "tax_rate_percent", ErrNegativeTaxRate)
		}
	}
	for i, charge := range charges {
		switch charge.CalculationType {
		case CalculationFixed:
		case CalculationPercentage:
			if charge.Amount.GreaterThan(maxPercentage) {
				return money.NewFieldError("additional_charges", i, "amount", ErrPercentageOutOfRange)
			}
		default:
			return money.NewFieldError("additional_charges", i, "calculation_type", ErrInvalidCalculationType)
		}
		if charge.Amount.IsNegative() {
			return money.NewFieldError("additional_charges", i, "amount", ErrNegativeChargeAmount)
		}
	}
	if discount.IsNegative() {
		return money.NewFieldError("invoice", -1, "discount", ErrNegativeDiscount)
	}
	return nil
}

// ToggleCharge returns a copy of charges with the matching charge's active
// flag set. The charge stays in the list either way.
func ToggleCharge(charges []Charge, id string, active bool) ([]Charge, bool) {
	out := make([]Charge, len(charges))
	copy(out, charges)
	for i := range out {
		if out[i].ID == id {
			out[i].IsActive = active
			return out, true
		}
	}
	return out, false
}
