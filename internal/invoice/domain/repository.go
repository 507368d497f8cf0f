package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	NextSequence(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// ReplaceLines swaps the stored items and charges for invoice.Items and invoice.Charges.
	ReplaceLines(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	SetChargeActive(ctx context.Context, db *gorm.DB, orgID, invoiceID, chargeID snowflake.ID, active bool) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, forUpdate bool) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	// ListIssuedBetween returns non-draft, non-cancelled invoices issued in [from, to).
	ListIssuedBetween(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) ([]*Invoice, error)
	// ListPastDue returns sent, unpaid invoices due before the given day across all orgs.
	ListPastDue(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*Invoice, error)
	ListPayments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]reconcile.Payment, error)
}
