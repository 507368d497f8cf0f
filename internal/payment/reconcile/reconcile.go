// Package reconcile reduces an invoice total and its full payment history to
// the amount paid, the balance due and a payment status.
package reconcile

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/money"
)

// PaymentState is the lifecycle state of a single payment.
type PaymentState string

const (
	PaymentPending   PaymentState = "pending"
	PaymentCompleted PaymentState = "completed"
	PaymentFailed    PaymentState = "failed"
)

func (s PaymentState) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidPaymentState = errors.New("invalid_payment_state")
	ErrNegativeTotal       = errors.New("negative_total")
)

type Payment struct {
	ID     string
	Amount decimal.Decimal
	State  PaymentState
}

type Input struct {
	Total     decimal.Decimal
	DueDate   time.Time
	Payments  []Payment
	Now       time.Time
	Cancelled bool
}

type Result struct {
	TotalPaid  decimal.Decimal
	BalanceDue decimal.Decimal
	// Overpayment is how far completed payments exceed the total.
	Overpayment   decimal.Decimal
	Overpaid      bool
	PendingCount  int
	PendingAmount decimal.Decimal
	Status        Status
}

// ValidateAmount rejects a payment amount that is zero or negative.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return money.ErrNonPositiveAmount
	}
	return nil
}

// Reconcile re-sums the whole payment list on every call. Only completed
// payments count towards TotalPaid; pending ones are reported separately and
// failed ones are ignored.
func Reconcile(in Input) (Result, error) {
	if in.Total.IsNegative() {
		return Result{}, money.NewFieldError("invoice", -1, "total", ErrNegativeTotal)
	}

	paid := decimal.Zero
	pending := decimal.Zero
	pendingCount := 0
	for i, p := range in.Payments {
		if err := ValidateAmount(p.Amount); err != nil {
			return Result{}, money.NewFieldError("payments", i, "amount", err)
		}
		switch p.State {
		case PaymentCompleted:
			paid = paid.Add(p.Amount)
		case PaymentPending:
			pending = pending.Add(p.Amount)
			pendingCount++
		case PaymentFailed:
		default:
			return Result{}, money.NewFieldError("payments", i, "status", ErrInvalidPaymentState)
		}
	}

	total := money.Round(in.Total)
	paid = money.Round(paid)
	diff := total.Sub(paid)

	res := Result{
		TotalPaid:     paid,
		BalanceDue:    money.ClampZero(diff),
		Overpayment:   money.ClampZero(diff.Neg()),
		PendingCount:  pendingCount,
		PendingAmount: money.Round(pending),
	}
	res.Overpaid = res.Overpayment.IsPositive()
	res.Status = Evaluate(Facts{
		Cancelled:  in.Cancelled,
		TotalPaid:  res.TotalPaid,
		BalanceDue: res.BalanceDue,
		DueDate:    in.DueDate,
		Now:        in.Now,
	})
	return res, nil
}
