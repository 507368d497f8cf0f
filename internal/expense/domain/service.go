package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
)

type CreateExpenseRequest struct {
	Description      string
	Category         string
	Vendor           string
	Amount           decimal.Decimal
	GSTAmount        decimal.Decimal
	ExpenseDate      *time.Time
	IsGSTClaimable   bool
	IsCapitalExpense bool
	PaymentMethod    string
	ReceiptURL       string
	Metadata         map[string]any
}

type ListExpenseRequest struct {
	PageToken string
	PageSize  int32
	Category  string
	From      *time.Time
	To        *time.Time
}

type ListExpenseResponse struct {
	pagination.PageInfo
	Expenses []Expense `json:"expenses"`
}

type Service interface {
	Create(context.Context, CreateExpenseRequest) (Expense, error)
	GetByID(ctx context.Context, id string) (Expense, error)
	List(context.Context, ListExpenseRequest) (ListExpenseResponse, error)
	Delete(ctx context.Context, id string) error
	// ListBetween returns every expense dated within [from, to] inclusive.
	ListBetween(ctx context.Context, from, to time.Time) ([]Expense, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidDescription  = errors.New("invalid_description")
	ErrNotFound            = errors.New("expense_not_found")
)
