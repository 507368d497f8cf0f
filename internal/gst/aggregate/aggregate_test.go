package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func TestPeriodFor(t *testing.T) {
	cases := []struct {
		q          Quarter
		year       int
		start, end time.Time
		due        time.Time
	}{
		{Q1, 2024, day(2024, 1, 1), day(2024, 3, 31), day(2024, 4, 28)},
		{Q2, 2024, day(2024, 4, 1), day(2024, 6, 30), day(2024, 7, 28)},
		{Q3, 2023, day(2023, 7, 1), day(2023, 9, 30), day(2023, 10, 28)},
		{Q4, 2024, day(2024, 10, 1), day(2024, 12, 31), day(2025, 1, 28)},
	}
	for _, tc := range cases {
		t.Run(string(tc.q), func(t *testing.T) {
			p, err := PeriodFor(tc.q, tc.year)
			require.NoError(t, err)
			assert.Equal(t, tc.start, p.StartDate)
			assert.Equal(t, tc.end, p.EndDate)
			assert.Equal(t, tc.due, p.DueDate)
		})
	}
}

func TestPeriodForIsDeterministic(t *testing.T) {
	first, err := PeriodFor(Q2, 2024)
	require.NoError(t, err)
	_, _ = PeriodFor(Q4, 1999)
	second, err := PeriodFor(Q2, 2024)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPeriodForRejectsInvalidInput(t *testing.T) {
	_, err := PeriodFor("Q5", 2024)
	assert.ErrorIs(t, err, ErrInvalidQuarter)
	_, err = PeriodFor(Q1, 0)
	assert.ErrorIs(t, err, ErrInvalidYear)
}

func TestParseQuarter(t *testing.T) {
	q, err := ParseQuarter("q3")
	require.NoError(t, err)
	assert.Equal(t, Q3, q)

	q, err = ParseQuarter("4")
	require.NoError(t, err)
	assert.Equal(t, Q4, q)

	_, err = ParseQuarter("Q0")
	assert.ErrorIs(t, err, ErrInvalidQuarter)
}

func TestQuarterOf(t *testing.T) {
	q, y := QuarterOf(day(2024, 11, 5))
	assert.Equal(t, Q4, q)
	assert.Equal(t, 2024, y)
	q, _ = QuarterOf(day(2024, 3, 31))
	assert.Equal(t, Q1, q)
}

func TestPeriodContainsIsInclusive(t *testing.T) {
	p, err := PeriodFor(Q2, 2024)
	require.NoError(t, err)
	assert.True(t, p.Contains(day(2024, 4, 1)))
	assert.True(t, p.Contains(time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(day(2024, 3, 31)))
	assert.False(t, p.Contains(day(2024, 7, 1)))
	assert.False(t, p.Contains(time.Time{}))
	assert.Equal(t, day(2024, 7, 1), p.EndExclusive())
}

func TestAggregateQuarter_NetPayable(t *testing.T) {
	invoices := []Invoice{
		{ID: "i1", Date: day(2024, 1, 10), Total: d("4600"), TaxAmount: d("600")},
		{ID: "i2", Date: day(2024, 3, 31), Total: d("3066.67"), TaxAmount: d("400")},
		{ID: "out", Date: day(2024, 4, 1), Total: d("999"), TaxAmount: d("99")},
	}
	expenses := []Expense{
		{ID: "e1", ExpenseDate: day(2024, 2, 1), Amount: d("2300"), GSTAmount: d("300"), IsGSTClaimable: true},
		{ID: "e2", ExpenseDate: day(2024, 2, 2), Amount: d("766.67"), GSTAmount: d("100"), IsGSTClaimable: true},
	}

	res, err := AggregateQuarter(Q1, 2024, invoices, expenses, Adjustments{})
	require.NoError(t, err)
	assert.True(t, res.GSTOnSales.Equal(d("1000")))
	assert.True(t, res.GSTOnPurchases.Equal(d("400")))
	assert.True(t, res.NetGST.Equal(d("600")))
	assert.True(t, res.PaymentDue.Equal(d("600")))
	assert.True(t, res.RefundDue.IsZero())
	assert.True(t, res.TotalSales.Equal(d("7666.67")))
	assert.Equal(t, []string{"i1", "i2"}, res.InvoiceIDs)
}

func TestAggregateQuarter_CapitalAndNonClaimable(t *testing.T) {
	expenses := []Expense{
		{ID: "stock", ExpenseDate: day(2024, 5, 1), Amount: d("115"), GSTAmount: d("15"), IsGSTClaimable: true},
		{ID: "van", ExpenseDate: day(2024, 5, 2), Amount: d("23000"), GSTAmount: d("3000"), IsGSTClaimable: true, IsCapitalExpense: true},
		{ID: "lunch", ExpenseDate: day(2024, 5, 3), Amount: d("50"), GSTAmount: d("6.52")},
	}
	invoices := []Invoice{{ID: "i", Date: day(2024, 6, 1), Total: d("1150"), TaxAmount: d("150")}}

	res, err := AggregateQuarter(Q2, 2024, invoices, expenses, Adjustments{})
	require.NoError(t, err)
	assert.True(t, res.TotalPurchases.Equal(d("23165")))
	assert.True(t, res.GSTOnPurchases.Equal(d("15")))
	assert.True(t, res.CapitalGoods.Equal(d("23000")))
	assert.True(t, res.GSTOnCapitalGoods.Equal(d("3000")))
	// 150 - 15 - 3000
	assert.True(t, res.NetGST.Equal(d("-2865")))
	assert.True(t, res.PaymentDue.IsZero())
	assert.True(t, res.RefundDue.Equal(d("2865")))
	assert.Equal(t, []string{"stock", "van", "lunch"}, res.ExpenseIDs)
}

func TestAggregateQuarter_NonClaimableCapitalEarnsNoCredit(t *testing.T) {
	expenses := []Expense{
		{ID: "car", ExpenseDate: day(2024, 11, 4), Amount: d("11500"), GSTAmount: d("1500"), IsCapitalExpense: true},
		{ID: "fuel", ExpenseDate: day(2024, 11, 5), Amount: d("92"), GSTAmount: d("12"), IsGSTClaimable: true},
		{ID: "late", ExpenseDate: day(2025, 1, 1), Amount: d("46"), GSTAmount: d("6"), IsGSTClaimable: true},
	}

	res, err := AggregateQuarter(Q4, 2024, nil, expenses, Adjustments{})
	require.NoError(t, err)
	assert.True(t, res.TotalPurchases.Equal(d("11592")))
	assert.True(t, res.CapitalGoods.Equal(d("11500")))
	assert.True(t, res.GSTOnCapitalGoods.IsZero())
	assert.True(t, res.GSTOnPurchases.Equal(d("12")))
	assert.True(t, res.RefundDue.Equal(d("12")))
	assert.Equal(t, []string{"car", "fuel"}, res.ExpenseIDs)
}

func TestAggregateQuarter_AdjustmentsAndWash(t *testing.T) {
	invoices := []Invoice{{ID: "i", Date: day(2024, 8, 1), Total: d("1150"), TaxAmount: d("150")}}

	res, err := AggregateQuarter(Q3, 2024, invoices, nil, Adjustments{BadDebt: d("20"), CreditNote: d("30")})
	require.NoError(t, err)
	assert.True(t, res.TotalAdjustments.Equal(d("50")))
	assert.True(t, res.NetGST.Equal(d("100")))

	wash, err := res.WithAdjustments(Adjustments{Other: d("150")})
	require.NoError(t, err)
	assert.True(t, wash.NetGST.IsZero())
	assert.True(t, wash.PaymentDue.IsZero())
	assert.True(t, wash.RefundDue.IsZero())
	assert.True(t, res.NetGST.Equal(d("100")), "original result must be unchanged")
}

func TestAggregateQuarter_NeverBothDue(t *testing.T) {
	for _, adj := range []string{"0", "50", "149.99", "150", "150.01", "1000"} {
		res, err := AggregateQuarter(Q3, 2024,
			[]Invoice{{ID: "i", Date: day(2024, 8, 1), Total: d("1150"), TaxAmount: d("150")}},
			nil, Adjustments{Other: d(adj)})
		require.NoError(t, err)
		assert.False(t, res.PaymentDue.IsPositive() && res.RefundDue.IsPositive(), "adjustment %s", adj)
	}
}

func TestAggregateQuarter_RejectsInvalidRecords(t *testing.T) {
	_, err := AggregateQuarter(Q1, 2024, nil,
		[]Expense{{ID: "e", ExpenseDate: day(2024, 1, 2), Amount: d("10"), GSTAmount: d("11")}}, Adjustments{})
	assert.ErrorIs(t, err, ErrGSTExceedsAmount)

	_, err = AggregateQuarter(Q1, 2024, []Invoice{{Total: d("-1")}}, nil, Adjustments{})
	var fieldErr *money.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "invoices[0].total", fieldErr.Path())

	_, err = AggregateQuarter(Q1, 2024, nil, nil, Adjustments{Other: d("-1")})
	assert.ErrorIs(t, err, money.ErrNegativeAmount)
}
