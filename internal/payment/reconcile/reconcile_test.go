package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var (
	due = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	now = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
)

func TestReconcile_PendingExcluded(t *testing.T) {
	res, err := Reconcile(Input{
		Total:   d("125"),
		DueDate: due,
		Now:     now,
		Payments: []Payment{
			{ID: "p1", Amount: d("50"), State: PaymentCompleted},
			{ID: "p2", Amount: d("30"), State: PaymentPending},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.TotalPaid.Equal(d("50")))
	assert.True(t, res.BalanceDue.Equal(d("75")))
	assert.Equal(t, StatusPartiallyPaid, res.Status)
	assert.Equal(t, 1, res.PendingCount)
	assert.True(t, res.PendingAmount.Equal(d("30")))
}

func TestReconcile_RemainingPaid(t *testing.T) {
	res, err := Reconcile(Input{
		Total:   d("125"),
		DueDate: due,
		Now:     now,
		Payments: []Payment{
			{ID: "p1", Amount: d("50"), State: PaymentCompleted},
			{ID: "p2", Amount: d("30"), State: PaymentPending},
			{ID: "p3", Amount: d("75"), State: PaymentCompleted},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.BalanceDue.IsZero())
	assert.Equal(t, StatusPaid, res.Status)
	assert.False(t, res.Overpaid)
}

func TestReconcile_OverdueWithoutPayments(t *testing.T) {
	res, err := Reconcile(Input{Total: d("100"), DueDate: due, Now: now})
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, res.Status)
	assert.True(t, res.BalanceDue.Equal(d("100")))
}

func TestReconcile_UnpaidBeforeAndOnDueDate(t *testing.T) {
	res, err := Reconcile(Input{Total: d("100"), DueDate: due, Now: due.Add(23 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, StatusUnpaid, res.Status)

	res, err = Reconcile(Input{Total: d("100"), DueDate: due, Now: due.AddDate(0, 0, -3)})
	require.NoError(t, err)
	assert.Equal(t, StatusUnpaid, res.Status)
}

func TestReconcile_FailedPaymentsIgnored(t *testing.T) {
	res, err := Reconcile(Input{
		Total:    d("100"),
		DueDate:  due,
		Now:      now,
		Payments: []Payment{{ID: "p1", Amount: d("100"), State: PaymentFailed}},
	})
	require.NoError(t, err)
	assert.True(t, res.TotalPaid.IsZero())
	assert.Equal(t, StatusOverdue, res.Status)
}

func TestReconcile_Overpayment(t *testing.T) {
	res, err := Reconcile(Input{
		Total:    d("100"),
		DueDate:  due,
		Now:      now,
		Payments: []Payment{{ID: "p1", Amount: d("110"), State: PaymentCompleted}},
	})
	require.NoError(t, err)
	assert.True(t, res.BalanceDue.IsZero())
	assert.True(t, res.Overpaid)
	assert.True(t, res.Overpayment.Equal(d("10")))
	assert.Equal(t, StatusPaid, res.Status)
}

func TestReconcile_CancelledWins(t *testing.T) {
	res, err := Reconcile(Input{
		Total:     d("100"),
		DueDate:   due,
		Now:       now,
		Cancelled: true,
		Payments:  []Payment{{ID: "p1", Amount: d("150"), State: PaymentCompleted}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.True(t, res.TotalPaid.Equal(d("150")))
}

func TestReconcile_PaidEvenWhenPastDue(t *testing.T) {
	res, err := Reconcile(Input{
		Total:    d("80"),
		DueDate:  due,
		Now:      now.AddDate(1, 0, 0),
		Payments: []Payment{{ID: "p1", Amount: d("80"), State: PaymentCompleted}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, res.Status)
}

func TestReconcile_IdempotentAndOrderIndependent(t *testing.T) {
	payments := []Payment{
		{ID: "a", Amount: d("10.10"), State: PaymentCompleted},
		{ID: "b", Amount: d("20.20"), State: PaymentCompleted},
		{ID: "c", Amount: d("5"), State: PaymentPending},
		{ID: "e", Amount: d("33.33"), State: PaymentCompleted},
	}
	in := Input{Total: d("100"), DueDate: due, Now: now, Payments: payments}

	first, err := Reconcile(in)
	require.NoError(t, err)
	second, err := Reconcile(in)
	require.NoError(t, err)
	assert.True(t, first.TotalPaid.Equal(second.TotalPaid))
	assert.True(t, first.BalanceDue.Equal(second.BalanceDue))
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.PendingCount, second.PendingCount)

	reversed := make([]Payment, len(payments))
	for i, p := range payments {
		reversed[len(payments)-1-i] = p
	}
	third, err := Reconcile(Input{Total: d("100"), DueDate: due, Now: now, Payments: reversed})
	require.NoError(t, err)
	assert.True(t, first.TotalPaid.Equal(third.TotalPaid))
	assert.Equal(t, first.Status, third.Status)
}

func TestReconcile_RejectsInvalidPayments(t *testing.T) {
	_, err := Reconcile(Input{
		Total:    d("100"),
		Payments: []Payment{{Amount: d("10"), State: PaymentCompleted}, {Amount: d("0"), State: PaymentPending}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, money.ErrNonPositiveAmount)
	var fieldErr *money.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "payments[1].amount", fieldErr.Path())

	_, err = Reconcile(Input{Total: d("100"), Payments: []Payment{{Amount: d("10"), State: "refunded"}}})
	assert.ErrorIs(t, err, ErrInvalidPaymentState)

	_, err = Reconcile(Input{Total: d("-1")})
	assert.ErrorIs(t, err, ErrNegativeTotal)
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(d("0.01")))
	assert.ErrorIs(t, ValidateAmount(d("0")), money.ErrNonPositiveAmount)
	assert.ErrorIs(t, ValidateAmount(d("-5")), money.ErrNonPositiveAmount)
}

func TestEvaluatePrecedence(t *testing.T) {
	cases := []struct {
		name  string
		facts Facts
		want  Status
	}{
		{"cancelled beats paid", Facts{Cancelled: true, TotalPaid: d("10"), BalanceDue: d("0")}, StatusCancelled},
		{"paid", Facts{TotalPaid: d("10"), BalanceDue: d("0"), DueDate: due, Now: now}, StatusPaid},
		{"partial beats overdue", Facts{TotalPaid: d("1"), BalanceDue: d("9"), DueDate: due, Now: now}, StatusPartiallyPaid},
		{"overdue", Facts{TotalPaid: d("0"), BalanceDue: d("9"), DueDate: due, Now: now}, StatusOverdue},
		{"unpaid without due date", Facts{TotalPaid: d("0"), BalanceDue: d("9"), Now: now}, StatusUnpaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.facts))
		})
	}
}
