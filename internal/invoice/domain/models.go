// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/invoice/calc"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Editable reports whether items, charges and dates may still change.
func (s InvoiceStatus) Editable() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusOverdue:
		return true
	default:
		return false
	}
}

// Invoice represents an issued or draft invoice. Subtotal, TaxAmount,
// AdditionalChargesTotal and Total are a cache of calc.ComputeTotals over
// Items, Charges and Discount and are rebuilt whenever the invoice is loaded.
type Invoice struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_invoice_number,priority:1" json:"organization_id"`
	CustomerID    snowflake.ID     `gorm:"not null;index" json:"customer_id"`
	InvoiceNumber string           `gorm:"type:text;not null;uniqueIndex:ux_invoice_number,priority:2" json:"invoice_number"`
	Status        InvoiceStatus    `gorm:"type:text;not null;default:'draft'" json:"status"`
	PaymentStatus reconcile.Status `gorm:"type:text;not null;default:'unpaid'" json:"payment_status"`
	Currency      string           `gorm:"type:text;not null" json:"currency"`
	IssueDate     time.Time        `gorm:"not null;index" json:"issue_date"`
	DueDate       time.Time        `gorm:"not null;index" json:"due_date"`

	Discount               decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"discount"`
	Subtotal               decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"subtotal"`
	TaxAmount              decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"tax_amount"`
	AdditionalChargesTotal decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"additional_charges_total"`
	Total                  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"total"`
	AmountPaid             decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount_paid"`
	BalanceDue             decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance_due"`

	Notes    string            `gorm:"type:text" json:"notes,omitempty"`
	Terms    string            `gorm:"type:text" json:"terms,omitempty"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items   []InvoiceItem      `gorm:"-" json:"items"`
	Charges []AdditionalCharge `gorm:"-" json:"additional_charges"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem represents a line on an invoice.
type InvoiceItem struct {
	ID             snowflake.ID        `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID        `gorm:"not null;index" json:"-"`
	InvoiceID      snowflake.ID        `gorm:"not null;index" json:"invoice_id"`
	Position       int                 `gorm:"not null" json:"position"`
	Description    string              `gorm:"type:text" json:"description"`
	Quantity       decimal.Decimal     `gorm:"type:numeric(18,4);not null" json:"quantity"`
	Rate           decimal.Decimal     `gorm:"type:numeric(18,4);not null" json:"rate"`
	TaxRatePercent decimal.NullDecimal `gorm:"type:numeric(7,4)" json:"tax_rate_percent"`
	CreatedAt      time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// LineTotal is quantity * rate rounded for display.
func (i InvoiceItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.Rate).Round(2)
}

// AdditionalCharge is a fixed or percentage add-on. Inactive charges stay
// attached to the invoice.
type AdditionalCharge struct {
	ID              snowflake.ID         `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID         `gorm:"not null;index" json:"-"`
	InvoiceID       snowflake.ID         `gorm:"not null;index" json:"invoice_id"`
	Position        int                  `gorm:"not null" json:"position"`
	Type            string               `gorm:"type:text;not null" json:"type"`
	Label           string               `gorm:"type:text" json:"label"`
	CalculationType calc.CalculationType `gorm:"type:text;not null" json:"calculation_type"`
	Amount          decimal.Decimal      `gorm:"type:numeric(18,4);not null" json:"amount"`
	IsActive        bool                 `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (AdditionalCharge) TableName() string { return "invoice_additional_charges" }

// InvoiceSequence holds the last issued invoice number sequence per org.
type InvoiceSequence struct {
	OrgID     snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64        `gorm:"not null;default:0"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
