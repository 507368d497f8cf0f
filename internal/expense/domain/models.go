package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Expense is a business purchase that may carry claimable GST.
type Expense struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	Description      string            `gorm:"type:text;not null" json:"description"`
	Category         string            `gorm:"type:text" json:"category,omitempty"`
	Vendor           string            `gorm:"type:text" json:"vendor,omitempty"`
	Amount           decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"amount"`
	GSTAmount        decimal.Decimal   `gorm:"column:gst_amount;type:numeric(18,2);not null" json:"gst_amount"`
	ExpenseDate      time.Time         `gorm:"not null;index" json:"expense_date"`
	IsGSTClaimable   bool              `gorm:"column:is_gst_claimable;not null" json:"is_gst_claimable"`
	IsCapitalExpense bool              `gorm:"column:is_capital_expense;not null" json:"is_capital_expense"`
	PaymentMethod    string            `gorm:"type:text" json:"payment_method,omitempty"`
	ReceiptURL       string            `gorm:"type:text" json:"receipt_url,omitempty"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Expense) TableName() string { return "expenses" }
