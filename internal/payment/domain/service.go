package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
)

type RecordPaymentRequest struct {
	InvoiceID   string
	Amount      decimal.Decimal
	Method      Method
	PaymentDate *time.Time
	Status      reconcile.PaymentState
	Reference   string
	Notes       string
}

type UpdatePaymentStatusRequest struct {
	ID     string
	Status reconcile.PaymentState
}

// Reconciliation summarises an invoice's collection state.
type Reconciliation struct {
	InvoiceID     string                      `json:"invoice_id"`
	InvoiceNumber string                      `json:"invoice_number"`
	InvoiceStatus invoicedomain.InvoiceStatus `json:"invoice_status"`
	Currency      string                      `json:"currency"`
	Total         decimal.Decimal             `json:"total"`
	TotalPaid     decimal.Decimal             `json:"total_paid"`
	BalanceDue    decimal.Decimal             `json:"balance_due"`
	Overpayment   decimal.Decimal             `json:"overpayment"`
	Overpaid      bool                        `json:"overpaid"`
	PendingCount  int                         `json:"pending_count"`
	PendingAmount decimal.Decimal             `json:"pending_amount"`
	PaymentStatus reconcile.Status            `json:"payment_status"`
}

type PaymentResult struct {
	Payment        Payment        `json:"payment"`
	Reconciliation Reconciliation `json:"reconciliation"`
}

type Document struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ReceiptData is what a renderer needs to lay out a payment receipt.
type ReceiptData struct {
	Payment       Payment
	InvoiceNumber string
	CustomerName  string
	BalanceDue    decimal.Decimal
}

type ReceiptRenderer interface {
	RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

type Service interface {
	Record(context.Context, RecordPaymentRequest) (PaymentResult, error)
	UpdateStatus(context.Context, UpdatePaymentStatusRequest) (PaymentResult, error)
	GetByID(ctx context.Context, id string) (Payment, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]Payment, error)
	Reconcile(ctx context.Context, invoiceID string) (Reconciliation, error)
	// SweepInvoice re-reconciles one invoice outside a request, e.g. when its
	// due date passes. It returns the resulting payment status.
	SweepInvoice(ctx context.Context, invoice invoicedomain.Invoice) (reconcile.Status, error)
	RenderReceipt(ctx context.Context, id string) (Document, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidInvoice      = errors.New("invalid_invoice")
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrInvoiceCancelled    = errors.New("invoice_cancelled")
	ErrInvalidMethod       = errors.New("invalid_payment_method")
	ErrInvalidStatus       = errors.New("invalid_payment_status")
	ErrExceedsTolerance    = errors.New("payment_exceeds_balance_tolerance")
	ErrNotFound            = errors.New("payment_not_found")
	ErrPaymentImmutable    = errors.New("payment_immutable")
	ErrRendererDisabled    = errors.New("renderer_disabled")
)
