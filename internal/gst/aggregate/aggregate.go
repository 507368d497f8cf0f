// Package aggregate reduces the invoices and expenses dated within a quarter
// into a net GST position.
package aggregate

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/money"
)

var (
	ErrGSTExceedsAmount = errors.New("gst_exceeds_amount")
)

type Invoice struct {
	ID        string
	Date      time.Time
	Total     decimal.Decimal
	TaxAmount decimal.Decimal
}

type Expense struct {
	ID               string
	ExpenseDate      time.Time
	Amount           decimal.Decimal
	GSTAmount        decimal.Decimal
	IsGSTClaimable   bool
	IsCapitalExpense bool
}

type Adjustments struct {
	BadDebt    decimal.Decimal `json:"bad_debt_adjustments"`
	CreditNote decimal.Decimal `json:"credit_note_adjustments"`
	Other      decimal.Decimal `json:"other_adjustments"`
}

func (a Adjustments) Total() decimal.Decimal {
	return a.BadDebt.Add(a.CreditNote).Add(a.Other)
}

// ReturnData holds the figures of one GST return.
type ReturnData struct {
	Period Period `json:"period"`

	TotalSales        decimal.Decimal `json:"total_sales"`
	GSTOnSales        decimal.Decimal `json:"gst_on_sales"`
	TotalPurchases    decimal.Decimal `json:"total_purchases"`
	GSTOnPurchases    decimal.Decimal `json:"gst_on_purchases"`
	CapitalGoods      decimal.Decimal `json:"capital_goods"`
	GSTOnCapitalGoods decimal.Decimal `json:"gst_on_capital_goods"`

	Adjustments      Adjustments     `json:"adjustments"`
	TotalAdjustments decimal.Decimal `json:"total_adjustments"`
	NetGST           decimal.Decimal `json:"net_gst"`
	PaymentDue       decimal.Decimal `json:"payment_due"`
	RefundDue        decimal.Decimal `json:"refund_due"`

	InvoiceIDs []string `json:"invoice_ids"`
	ExpenseIDs []string `json:"expense_ids"`
}

// AggregateQuarter filters invoices and expenses to the quarter and reduces
// them to the return figures. Inputs are never mutated.
func AggregateQuarter(q Quarter, year int, invoices []Invoice, expenses []Expense, adj Adjustments) (ReturnData, error) {
	period, err := PeriodFor(q, year)
	if err != nil {
		return ReturnData{}, err
	}
	if err := validate(invoices, expenses, adj); err != nil {
		return ReturnData{}, err
	}

	sales, gstSales := decimal.Zero, decimal.Zero
	invoiceIDs := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		if !period.Contains(inv.Date) {
			continue
		}
		sales = sales.Add(inv.Total)
		gstSales = gstSales.Add(inv.TaxAmount)
		invoiceIDs = append(invoiceIDs, inv.ID)
	}

	purchases, gstPurchases := decimal.Zero, decimal.Zero
	capital, gstCapital := decimal.Zero, decimal.Zero
	expenseIDs := make([]string, 0, len(expenses))
	// Every expense in the period is a purchase and capital items are also
	// reported as capital goods. Only claimable GST is credited.
	for _, exp := range expenses {
		if !period.Contains(exp.ExpenseDate) {
			continue
		}
		purchases = purchases.Add(exp.Amount)
		if exp.IsCapitalExpense {
			capital = capital.Add(exp.Amount)
		}
		if exp.IsGSTClaimable {
			if exp.IsCapitalExpense {
				gstCapital = gstCapital.Add(exp.GSTAmount)
			} else {
				gstPurchases = gstPurchases.Add(exp.GSTAmount)
			}
		}
		expenseIDs = append(expenseIDs, exp.ID)
	}

	out := ReturnData{
		Period:            period,
		TotalSales:        money.Round(sales),
		GSTOnSales:        money.Round(gstSales),
		TotalPurchases:    money.Round(purchases),
		GSTOnPurchases:    money.Round(gstPurchases),
		CapitalGoods:      money.Round(capital),
		GSTOnCapitalGoods: money.Round(gstCapital),
		InvoiceIDs:        invoiceIDs,
		ExpenseIDs:        expenseIDs,
	}
	return out.WithAdjustments(adj)
}

// WithAdjustments recomputes the net position for new adjustments without
// re-filtering the source records.
func (r ReturnData) WithAdjustments(adj Adjustments) (ReturnData, error) {
	if err := validateAdjustments(adj); err != nil {
		return ReturnData{}, err
	}
	r.Adjustments = Adjustments{
		BadDebt:    money.Round(adj.BadDebt),
		CreditNote: money.Round(adj.CreditNote),
		Other:      money.Round(adj.Other),
	}
	r.TotalAdjustments = r.Adjustments.Total()
	r.NetGST = r.GSTOnSales.Sub(r.GSTOnPurchases).Sub(r.GSTOnCapitalGoods).Sub(r.TotalAdjustments)
	r.PaymentDue = money.ClampZero(r.NetGST)
	r.RefundDue = money.ClampZero(r.NetGST.Neg())
	return r, nil
}

func validate(invoices []Invoice, expenses []Expense, adj Adjustments) error {
	for i, inv := range invoices {
		if inv.Total.IsNegative() {
			return money.NewFieldError("invoices", i, "total", money.ErrNegativeAmount)
		}
		if inv.TaxAmount.IsNegative() {
			return money.NewFieldError("invoices", i, "tax_amount", money.ErrNegativeAmount)
		}
	}
	for i, exp := range expenses {
		if err := ValidateExpense(exp, i); err != nil {
			return err
		}
	}
	return validateAdjustments(adj)
}

// ValidateExpense checks one expense's amounts. index is its position in the
// surrounding list, or -1 when it stands alone.
func ValidateExpense(exp Expense, index int) error {
	if exp.Amount.IsNegative() {
		return money.NewFieldError("expenses", index, "amount", money.ErrNegativeAmount)
	}
	if exp.GSTAmount.IsNegative() {
		return money.NewFieldError("expenses", index, "gst_amount", money.ErrNegativeAmount)
	}
	if exp.GSTAmount.GreaterThan(exp.Amount) {
		return money.NewFieldError("expenses", index, "gst_amount", ErrGSTExceedsAmount)
	}
	return nil
}

func validateAdjustments(adj Adjustments) error {
	if adj.BadDebt.IsNegative() {
		return money.NewFieldError("adjustments", -1, "bad_debt_adjustments", money.ErrNegativeAmount)
	}
	if adj.CreditNote.IsNegative() {
		return money.NewFieldError("adjustments", -1, "credit_note_adjustments", money.ErrNegativeAmount)
	}
	if adj.Other.IsNegative() {
		return money.NewFieldError("adjustments", -1, "other_adjustments", money.ErrNegativeAmount)
	}
	return nil
}
