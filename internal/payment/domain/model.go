package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
	MethodUPI          Method = "upi"
	MethodCheque       Method = "cheque"
	MethodOther        Method = "other"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCard, MethodUPI, MethodCheque, MethodOther:
		return true
	default:
		return false
	}
}

// Payment is money received against one invoice. Completed payments are
// never edited; corrections are recorded as new payments.
type Payment struct {
	ID          snowflake.ID           `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID           `json:"organization_id" gorm:"not null;index"`
	InvoiceID   snowflake.ID           `json:"invoice_id" gorm:"not null;index"`
	Amount      decimal.Decimal        `json:"amount" gorm:"type:numeric(18,2);not null"`
	Currency    string                 `json:"currency" gorm:"type:text;not null"`
	Method      Method                 `json:"payment_method" gorm:"type:text;not null"`
	Status      reconcile.PaymentState `json:"status" gorm:"type:text;not null"`
	PaymentDate time.Time              `json:"payment_date" gorm:"not null"`
	Reference   string                 `json:"reference" gorm:"type:text;not null"`
	Notes       string                 `json:"notes,omitempty" gorm:"type:text"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	FailedAt    *time.Time             `json:"failed_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time              `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }

// ToReconcile converts the payment into reconciler input.
func (p Payment) ToReconcile() reconcile.Payment {
	return reconcile.Payment{ID: p.ID.String(), Amount: p.Amount, State: p.Status}
}
