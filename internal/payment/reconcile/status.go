package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the derived collection state of an invoice.
type Status string

const (
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
	StatusCancelled     Status = "cancelled"
)

// Facts are the inputs the status rules look at.
type Facts struct {
	Cancelled  bool
	TotalPaid  decimal.Decimal
	BalanceDue decimal.Decimal
	DueDate    time.Time
	Now        time.Time
}

type rule struct {
	status Status
	match  func(Facts) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{StatusCancelled, func(f Facts) bool { return f.Cancelled }},
	{StatusPaid, func(f Facts) bool { return f.BalanceDue.IsZero() && f.TotalPaid.IsPositive() }},
	{StatusPartiallyPaid, func(f Facts) bool { return f.TotalPaid.IsPositive() && f.BalanceDue.IsPositive() }},
	{StatusOverdue, func(f Facts) bool { return f.TotalPaid.IsZero() && IsPastDue(f.DueDate, f.Now) }},
}

// Evaluate classifies an invoice. It always resolves to exactly one status.
func Evaluate(f Facts) Status {
	for _, r := range rules {
		if r.match(f) {
			return r.status
		}
	}
	return StatusUnpaid
}

// IsPastDue reports whether the calendar day of now (UTC) is after the due
// day. An invoice is not overdue on its due date. A zero due date never is.
func IsPastDue(dueDate, now time.Time) bool {
	if dueDate.IsZero() {
		return false
	}
	return startOfDay(now).After(startOfDay(dueDate))
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
