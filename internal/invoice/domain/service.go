package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/invoice/calc"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
)

type LineItemInput struct {
	Description    string           `json:"description"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Rate           decimal.Decimal  `json:"rate"`
	TaxRatePercent *decimal.Decimal `json:"tax_rate_percent,omitempty"`
}

type ChargeInput struct {
	Type            string               `json:"type"`
	Label           string               `json:"label"`
	CalculationType calc.CalculationType `json:"calculation_type"`
	Amount          decimal.Decimal      `json:"amount"`
	IsActive        *bool                `json:"is_active,omitempty"`
}

type PreviewTotalsRequest struct {
	Items    []LineItemInput
	Charges  []ChargeInput
	Discount decimal.Decimal
	Currency string
}

type CreateInvoiceRequest struct {
	CustomerID string
	Currency   string
	IssueDate  *time.Time
	DueDate    *time.Time
	Items      []LineItemInput
	Charges    []ChargeInput
	Discount   decimal.Decimal
	Notes      string
	Terms      string
	Metadata   map[string]any
}

// UpdateInvoiceRequest replaces items or charges when they are non-nil.
type UpdateInvoiceRequest struct {
	ID        string
	IssueDate *time.Time
	DueDate   *time.Time
	Items     []LineItemInput
	Charges   []ChargeInput
	Discount  *decimal.Decimal
	Notes     *string
	Terms     *string
}

type ToggleChargeRequest struct {
	InvoiceID string
	ChargeID  string
	IsActive  bool
}

type ListInvoiceRequest struct {
	PageToken     string
	PageSize      int32
	Status        *InvoiceStatus
	CustomerID    string
	InvoiceNumber string
	IssuedFrom    *time.Time
	IssuedTo      *time.Time
	SortBy        string
	OrderBy       string
}

type ListInvoiceFilter struct {
	Status        *InvoiceStatus
	CustomerID    *int64
	InvoiceNumber string
	IssuedFrom    *time.Time
	IssuedTo      *time.Time
	SortBy        string
	OrderBy       string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Document is a rendered invoice file.
type Document struct {
	FileName    string
	ContentType string
	Body        []byte
}

type PublishedDocument struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	PreviewTotals(context.Context, PreviewTotalsRequest) (calc.Totals, error)
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	Update(context.Context, UpdateInvoiceRequest) (Invoice, error)
	ToggleCharge(context.Context, ToggleChargeRequest) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Send(ctx context.Context, id string) (Invoice, error)
	Cancel(ctx context.Context, id string) (Invoice, error)
	RenderPDF(ctx context.Context, id string) (Document, error)
	PublishPDF(ctx context.Context, id string) (PublishedDocument, error)
}

// RenderData is everything a renderer needs to lay out one invoice.
type RenderData struct {
	Invoice         Invoice
	Totals          calc.Totals
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	CustomerGST     string
}

type Renderer interface {
	RenderInvoice(ctx context.Context, data RenderData) ([]byte, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrCustomerNotFound    = errors.New("customer_not_found")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("invoice_not_found")
	ErrChargeNotFound      = errors.New("charge_not_found")
	ErrNotEditable         = errors.New("invoice_not_editable")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrStorageDisabled     = errors.New("storage_disabled")
	ErrRendererDisabled    = errors.New("renderer_disabled")
)
