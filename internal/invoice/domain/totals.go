package domain

import (
	"time"

	"github.com/smallbiznis/ledgercraft/internal/invoice/calc"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
)

// CalcInputs converts the stored lines into calculator inputs.
func (inv *Invoice) CalcInputs() ([]calc.LineItem, []calc.Charge) {
	items := make([]calc.LineItem, 0, len(inv.Items))
	for _, item := range inv.Items {
		line := calc.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		}
		if item.TaxRatePercent.Valid {
			r := item.TaxRatePercent.Decimal
			line.TaxRatePercent = &r
		}
		items = append(items, line)
	}

	charges := make([]calc.Charge, 0, len(inv.Charges))
	for _, charge := range inv.Charges {
		charges = append(charges, calc.Charge{
			ID:              charge.ID.String(),
			Type:            charge.Type,
			Label:           charge.Label,
			CalculationType: charge.CalculationType,
			Amount:          charge.Amount,
			IsActive:        charge.IsActive,
		})
	}
	return items, charges
}

// RecomputeTotals rebuilds the cached totals from items, charges and discount.
func (inv *Invoice) RecomputeTotals() (calc.Totals, error) {
	items, charges := inv.CalcInputs()
	totals, err := calc.ComputeTotals(items, charges, inv.Discount, inv.Currency)
	if err != nil {
		return calc.Totals{}, err
	}
	inv.Subtotal = totals.Subtotal
	inv.Discount = totals.Discount
	inv.TaxAmount = totals.TaxAmount
	inv.AdditionalChargesTotal = totals.AdditionalChargesTotal
	inv.Total = totals.Total
	return totals, nil
}

// ReconcileInput builds the reconciler input from the invoice and its full
// payment history.
func (inv *Invoice) ReconcileInput(payments []reconcile.Payment, now time.Time) reconcile.Input {
	return reconcile.Input{
		Total:     inv.Total,
		DueDate:   inv.DueDate,
		Payments:  payments,
		Now:       now,
		Cancelled: inv.Status == InvoiceStatusCancelled,
	}
}

// ApplyReconciliation stores a reconciliation result on the invoice and moves
// the lifecycle status to match it. Draft invoices stay draft unless paid or
// cancelled.
func (inv *Invoice) ApplyReconciliation(res reconcile.Result, now time.Time) {
	inv.PaymentStatus = res.Status
	inv.AmountPaid = res.TotalPaid
	inv.BalanceDue = res.BalanceDue

	switch res.Status {
	case reconcile.StatusCancelled:
		inv.Status = InvoiceStatusCancelled
	case reconcile.StatusPaid:
		inv.Status = InvoiceStatusPaid
		if inv.PaidAt == nil {
			paidAt := now
			inv.PaidAt = &paidAt
		}
	case reconcile.StatusOverdue:
		if inv.Status != InvoiceStatusDraft {
			inv.Status = InvoiceStatusOverdue
		}
		inv.PaidAt = nil
	default:
		if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusOverdue {
			inv.Status = InvoiceStatusSent
		}
		inv.PaidAt = nil
	}
}
