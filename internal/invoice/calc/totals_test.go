package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func rate(v string) *decimal.Decimal {
	r := d(v)
	return &r
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "want %s got %s", want, got)
}

func TestComputeTotals_SingleTaxedLine(t *testing.T) {
	items := []LineItem{{Description: "Widget", Quantity: d("2"), Rate: d("50"), TaxRatePercent: rate("10")}}

	totals, err := ComputeTotals(items, nil, decimal.Zero, "nzd")
	require.NoError(t, err)
	assertDec(t, "100", totals.Subtotal)
	assertDec(t, "10", totals.TaxAmount)
	assertDec(t, "0", totals.AdditionalChargesTotal)
	assertDec(t, "110", totals.Total)
	assert.Equal(t, "NZD", totals.Currency)
}

func TestComputeTotals_FixedShippingCharge(t *testing.T) {
	items := []LineItem{{Quantity: d("2"), Rate: d("50"), TaxRatePercent: rate("10")}}
	charges := []Charge{{ID: "c1", Type: "shipping", CalculationType: CalculationFixed, Amount: d("15"), IsActive: true}}

	totals, err := ComputeTotals(items, charges, decimal.Zero, "NZD")
	require.NoError(t, err)
	assertDec(t, "15", totals.AdditionalChargesTotal)
	assertDec(t, "125", totals.Total)
}

func TestComputeTotals_NoItems(t *testing.T) {
	totals, err := ComputeTotals(nil, nil, decimal.Zero, "NZD")
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.TaxAmount.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestComputeTotals_PerLineTax(t *testing.T) {
	items := []LineItem{
		{Quantity: d("1"), Rate: d("100"), TaxRatePercent: rate("15")},
		{Quantity: d("1"), Rate: d("100")},
		{Quantity: d("3"), Rate: d("10"), TaxRatePercent: rate("0")},
	}
	totals, err := ComputeTotals(items, nil, decimal.Zero, "NZD")
	require.NoError(t, err)
	assertDec(t, "230", totals.Subtotal)
	assertDec(t, "15", totals.TaxAmount)
	assertDec(t, "245", totals.Total)
}

func TestComputeTotals_PercentageChargeUsesPreDiscountSubtotal(t *testing.T) {
	items := []LineItem{{Quantity: d("1"), Rate: d("200"), TaxRatePercent: rate("10")}}
	charges := []Charge{
		{ID: "a", CalculationType: CalculationPercentage, Amount: d("5"), IsActive: true},
		{ID: "b", CalculationType: CalculationPercentage, Amount: d("10"), IsActive: true},
	}

	totals, err := ComputeTotals(items, charges, d("50"), "NZD")
	require.NoError(t, err)
	// 5% and 10% of 200, no compounding with each other or tax.
	assertDec(t, "30", totals.AdditionalChargesTotal)
	// 200 - 50 + 20 + 30
	assertDec(t, "200", totals.Total)
	require.Len(t, totals.Charges, 2)
	assertDec(t, "10", totals.Charges[0].Contribution)
	assertDec(t, "20", totals.Charges[1].Contribution)
}

func TestComputeTotals_InactiveChargeKeptButExcluded(t *testing.T) {
	items := []LineItem{{Quantity: d("4"), Rate: d("25")}}
	charges := []Charge{
		{ID: "ship", CalculationType: CalculationFixed, Amount: d("15"), IsActive: true},
		{ID: "handling", CalculationType: CalculationPercentage, Amount: d("10"), IsActive: true},
	}
	before, err := ComputeTotals(items, charges, decimal.Zero, "NZD")
	require.NoError(t, err)

	toggled, ok := ToggleCharge(charges, "handling", false)
	require.True(t, ok)
	assert.True(t, charges[1].IsActive, "input slice must not be mutated")

	after, err := ComputeTotals(items, toggled, decimal.Zero, "NZD")
	require.NoError(t, err)

	require.Len(t, after.Charges, 2)
	assert.False(t, after.Charges[1].IsActive)
	assert.True(t, after.Charges[1].Contribution.IsZero())
	assertDec(t, "10", before.AdditionalChargesTotal.Sub(after.AdditionalChargesTotal))
	assert.True(t, before.Subtotal.Equal(after.Subtotal))
	assert.True(t, before.TaxAmount.Equal(after.TaxAmount))
	assertDec(t, "10", before.Total.Sub(after.Total))
}

func TestComputeTotals_TotalClampedAtZero(t *testing.T) {
	items := []LineItem{{Quantity: d("1"), Rate: d("20")}}
	totals, err := ComputeTotals(items, nil, d("50"), "NZD")
	require.NoError(t, err)
	assert.True(t, totals.Total.IsZero())
}

func TestComputeTotals_RoundsOncePerAggregate(t *testing.T) {
	// Per-line rounding would give 3 * 0.01 = 0.03; a single round gives 0.02.
	items := []LineItem{
		{Quantity: d("1"), Rate: d("0.005")},
		{Quantity: d("1"), Rate: d("0.005")},
		{Quantity: d("1"), Rate: d("0.005")},
	}
	totals, err := ComputeTotals(items, nil, decimal.Zero, "NZD")
	require.NoError(t, err)
	assertDec(t, "0.02", totals.Subtotal)
}

func TestComputeTotals_HalfUp(t *testing.T) {
	items := []LineItem{{Quantity: d("1"), Rate: d("10.005")}}
	totals, err := ComputeTotals(items, nil, decimal.Zero, "NZD")
	require.NoError(t, err)
	assertDec(t, "10.01", totals.Subtotal)
}

func TestComputeTotals_TotalInvariant(t *testing.T) {
	items := []LineItem{
		{Quantity: d("3"), Rate: d("19.99"), TaxRatePercent: rate("15")},
		{Quantity: d("0.5"), Rate: d("7.33"), TaxRatePercent: rate("12.5")},
	}
	charges := []Charge{
		{ID: "s", CalculationType: CalculationFixed, Amount: d("4.10"), IsActive: true},
		{ID: "p", CalculationType: CalculationPercentage, Amount: d("2.5"), IsActive: true},
	}
	for _, discount := range []string{"0", "3.33", "80", "1000"} {
		totals, err := ComputeTotals(items, charges, d(discount), "NZD")
		require.NoError(t, err)
		want := money.Round(money.ClampZero(totals.Subtotal.Sub(totals.Discount).Add(totals.TaxAmount).Add(totals.AdditionalChargesTotal)))
		assert.True(t, want.Equal(totals.Total), "discount %s", discount)
	}
}

func TestComputeTotals_RejectsInvalidRecords(t *testing.T) {
	cases := []struct {
		name    string
		items   []LineItem
		charges []Charge
		disc    decimal.Decimal
		want    error
		path    string
	}{
		{
			name:  "negative quantity",
			items: []LineItem{{Quantity: d("1"), Rate: d("1")}, {Quantity: d("-1"), Rate: d("1")}},
			want:  ErrNegativeQuantity,
			path:  "items[1].quantity",
		},
		{
			name:  "negative rate",
			items: []LineItem{{Quantity: d("1"), Rate: d("-0.01")}},
			want:  ErrNegativeRate,
			path:  "items[0].rate",
		},
		{
			name:  "negative tax rate",
			items: []LineItem{{Quantity: d("1"), Rate: d("1"), TaxRatePercent: rate("-5")}},
			want:  ErrNegativeTaxRate,
			path:  "items[0].tax_rate_percent",
		},
		{
			name:    "percentage over 100",
			charges: []Charge{{CalculationType: CalculationPercentage, Amount: d("101")}},
			want:    ErrPercentageOutOfRange,
			path:    "additional_charges[0].amount",
		},
		{
			name:    "unknown calculation type",
			charges: []Charge{{CalculationType: "tiered", Amount: d("1")}},
			want:    ErrInvalidCalculationType,
			path:    "additional_charges[0].calculation_type",
		},
		{
			name:    "negative charge",
			charges: []Charge{{CalculationType: CalculationFixed, Amount: d("-1"), IsActive: false}},
			want:    ErrNegativeChargeAmount,
			path:    "additional_charges[0].amount",
		},
		{
			name: "negative discount",
			disc: d("-1"),
			want: ErrNegativeDiscount,
			path: "invoice.discount",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTotals(tc.items, tc.charges, tc.disc, "NZD")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var fieldErr *money.FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tc.path, fieldErr.Path())
		})
	}
}

func TestToggleChargeUnknownID(t *testing.T) {
	charges := []Charge{{ID: "a", IsActive: true}}
	out, ok := ToggleCharge(charges, "missing", false)
	assert.False(t, ok)
	assert.Equal(t, charges, out)
}
