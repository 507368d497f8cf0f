package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	"gorm.io/datatypes"
)

type ReturnStatus string

const (
	ReturnStatusDraft ReturnStatus = "draft"
	ReturnStatusFiled ReturnStatus = "filed"
)

// GSTReturn is a saved quarterly return. One row exists per org and quarter;
// re-saving a draft overwrites it and a filed return never changes.
type GSTReturn struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;uniqueIndex:ux_gst_return_period,priority:1" json:"organization_id"`
	Quarter     string       `gorm:"type:text;not null;uniqueIndex:ux_gst_return_period,priority:2" json:"quarter"`
	Year        int          `gorm:"not null;uniqueIndex:ux_gst_return_period,priority:3" json:"year"`
	PeriodStart time.Time    `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time    `gorm:"not null" json:"period_end"`
	DueDate     time.Time    `gorm:"not null" json:"due_date"`
	Status      ReturnStatus `gorm:"type:text;not null" json:"status"`

	TotalSales            decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_sales"`
	GSTOnSales            decimal.Decimal `gorm:"column:gst_on_sales;type:numeric(18,2);not null" json:"gst_on_sales"`
	TotalPurchases        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_purchases"`
	GSTOnPurchases        decimal.Decimal `gorm:"column:gst_on_purchases;type:numeric(18,2);not null" json:"gst_on_purchases"`
	CapitalGoods          decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"capital_goods"`
	GSTOnCapitalGoods     decimal.Decimal `gorm:"column:gst_on_capital_goods;type:numeric(18,2);not null" json:"gst_on_capital_goods"`
	BadDebtAdjustments    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"bad_debt_adjustments"`
	CreditNoteAdjustments decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"credit_note_adjustments"`
	OtherAdjustments      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"other_adjustments"`
	NetGST                decimal.Decimal `gorm:"column:net_gst;type:numeric(18,2);not null" json:"net_gst"`
	PaymentDue            decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"payment_due"`
	RefundDue             decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"refund_due"`

	InvoiceIDs datatypes.JSONSlice[string]        `gorm:"type:jsonb" json:"invoice_ids"`
	ExpenseIDs datatypes.JSONSlice[string]        `gorm:"type:jsonb" json:"expense_ids"`
	Invoices   datatypes.JSONSlice[ReturnInvoice] `gorm:"column:invoice_rows;type:jsonb" json:"invoices"`
	Expenses   datatypes.JSONSlice[ReturnExpense] `gorm:"column:expense_rows;type:jsonb" json:"expenses"`
	Notes      string                             `gorm:"type:text" json:"notes,omitempty"`

	FiledAt   *time.Time `json:"filed_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (GSTReturn) TableName() string { return "gst_returns" }

// ReturnInvoice is a counted invoice as it stood when the return was saved.
type ReturnInvoice struct {
	ID        string          `json:"id"`
	Number    string          `json:"number"`
	IssueDate time.Time       `json:"issue_date"`
	Total     decimal.Decimal `json:"total"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// ReturnExpense is a counted expense as it stood when the return was saved.
type ReturnExpense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Vendor      string          `json:"vendor,omitempty"`
	ExpenseDate time.Time       `json:"expense_date"`
	Amount      decimal.Decimal `json:"amount"`
	GSTAmount   decimal.Decimal `json:"gst_amount"`
	Claimable   bool            `json:"is_gst_claimable"`
	Capital     bool            `json:"is_capital_expense"`
}

// ApplyData copies aggregated figures onto the stored return.
func (r *GSTReturn) ApplyData(data aggregate.ReturnData) {
	r.Quarter = string(data.Period.Quarter)
	r.Year = data.Period.Year
	r.PeriodStart = data.Period.StartDate
	r.PeriodEnd = data.Period.EndDate
	r.DueDate = data.Period.DueDate
	r.TotalSales = data.TotalSales
	r.GSTOnSales = data.GSTOnSales
	r.TotalPurchases = data.TotalPurchases
	r.GSTOnPurchases = data.GSTOnPurchases
	r.CapitalGoods = data.CapitalGoods
	r.GSTOnCapitalGoods = data.GSTOnCapitalGoods
	r.BadDebtAdjustments = data.Adjustments.BadDebt
	r.CreditNoteAdjustments = data.Adjustments.CreditNote
	r.OtherAdjustments = data.Adjustments.Other
	r.NetGST = data.NetGST
	r.PaymentDue = data.PaymentDue
	r.RefundDue = data.RefundDue
	r.InvoiceIDs = datatypes.NewJSONSlice(data.InvoiceIDs)
	r.ExpenseIDs = datatypes.NewJSONSlice(data.ExpenseIDs)
}

// SetRecords replaces the stored invoice and expense rows.
func (r *GSTReturn) SetRecords(invoices []ReturnInvoice, expenses []ReturnExpense) {
	r.Invoices = datatypes.NewJSONSlice(invoices)
	r.Expenses = datatypes.NewJSONSlice(expenses)
}

func (r GSTReturn) Adjustments() aggregate.Adjustments {
	return aggregate.Adjustments{
		BadDebt:    r.BadDebtAdjustments,
		CreditNote: r.CreditNoteAdjustments,
		Other:      r.OtherAdjustments,
	}
}

// Data rebuilds the aggregated figures from the stored columns.
func (r GSTReturn) Data() aggregate.ReturnData {
	adj := r.Adjustments()
	return aggregate.ReturnData{
		Period: aggregate.Period{
			Quarter:   aggregate.Quarter(r.Quarter),
			Year:      r.Year,
			StartDate: r.PeriodStart,
			EndDate:   r.PeriodEnd,
			DueDate:   r.DueDate,
		},
		TotalSales:        r.TotalSales,
		GSTOnSales:        r.GSTOnSales,
		TotalPurchases:    r.TotalPurchases,
		GSTOnPurchases:    r.GSTOnPurchases,
		CapitalGoods:      r.CapitalGoods,
		GSTOnCapitalGoods: r.GSTOnCapitalGoods,
		Adjustments:       adj,
		TotalAdjustments:  adj.Total(),
		NetGST:            r.NetGST,
		PaymentDue:        r.PaymentDue,
		RefundDue:         r.RefundDue,
		InvoiceIDs:        []string(r.InvoiceIDs),
		ExpenseIDs:        []string(r.ExpenseIDs),
	}
}
