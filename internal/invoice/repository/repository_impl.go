package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
	"github.com/smallbiznis/ledgercraft/pkg/db/option"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sortableColumns = map[string]bool{
	"created_at": true,
	"issue_date": true,
	"due_date":   true,
	"total":      true,
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoice_sequences SET last_value = last_value + 1 WHERE org_id = ?`,
		orgID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_sequences (org_id, last_value) VALUES (?, 1)`,
			orgID,
		).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	var seq int64
	if err := db.WithContext(ctx).Raw(
		`SELECT last_value FROM invoice_sequences WHERE org_id = ?`,
		orgID,
	).Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if err := db.WithContext(ctx).Create(invoice).Error; err != nil {
		return err
	}
	return r.insertLines(ctx, db, invoice)
}

func (r *repo) ReplaceLines(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_items WHERE org_id = ? AND invoice_id = ?`,
		invoice.OrgID, invoice.ID,
	).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_additional_charges WHERE org_id = ? AND invoice_id = ?`,
		invoice.OrgID, invoice.ID,
	).Error; err != nil {
		return err
	}
	return r.insertLines(ctx, db, invoice)
}

func (r *repo) insertLines(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if len(invoice.Items) > 0 {
		if err := db.WithContext(ctx).Create(&invoice.Items).Error; err != nil {
			return fmt.Errorf("insert invoice items: %w", err)
		}
	}
	if len(invoice.Charges) > 0 {
		if err := db.WithContext(ctx).Create(&invoice.Charges).Error; err != nil {
			return fmt.Errorf("insert invoice charges: %w", err)
		}
	}
	return nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, payment_status = ?, issue_date = ?, due_date = ?,
		     discount = ?, subtotal = ?, tax_amount = ?, additional_charges_total = ?, total = ?,
		     amount_paid = ?, balance_due = ?, notes = ?, terms = ?,
		     sent_at = ?, paid_at = ?, cancelled_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		invoice.Status,
		invoice.PaymentStatus,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Discount,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.AdditionalChargesTotal,
		invoice.Total,
		invoice.AmountPaid,
		invoice.BalanceDue,
		invoice.Notes,
		invoice.Terms,
		invoice.SentAt,
		invoice.PaidAt,
		invoice.CancelledAt,
		invoice.UpdatedAt,
		invoice.OrgID,
		invoice.ID,
	).Error
}

func (r *repo) SetChargeActive(ctx context.Context, db *gorm.DB, orgID, invoiceID, chargeID snowflake.ID, active bool) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoice_additional_charges SET is_active = ? WHERE org_id = ? AND invoice_id = ? AND id = ?`,
		active, orgID, invoiceID, chargeID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, forUpdate bool) (*domain.Invoice, error) {
	stmt := db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id)
	if forUpdate {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoices []*domain.Invoice
	if err := stmt.Limit(1).Find(&invoices).Error; err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	if err := r.loadLines(ctx, db, invoices); err != nil {
		return nil, err
	}
	return invoices[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ?", orgID)
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.InvoiceNumber != "" {
		stmt = stmt.Where("invoice_number = ?", filter.InvoiceNumber)
	}
	if filter.IssuedFrom != nil {
		stmt = option.ApplyOperator(option.Condition{Field: "issue_date", Operator: option.GTE, Value: *filter.IssuedFrom}).Apply(stmt)
	}
	if filter.IssuedTo != nil {
		stmt = option.ApplyOperator(option.Condition{Field: "issue_date", Operator: option.LTE, Value: *filter.IssuedTo}).Apply(stmt)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, sortableColumns)).Apply(stmt)

	var invoices []*domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, db, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListIssuedBetween(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).
		Where("org_id = ? AND issue_date >= ? AND issue_date < ?", orgID, from, to).
		Where("status NOT IN ?", []domain.InvoiceStatus{domain.InvoiceStatusDraft, domain.InvoiceStatusCancelled}).
		Order("issue_date asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, db, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListPastDue(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*domain.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).
		Where("status = ? AND payment_status = ? AND due_date < ?",
			domain.InvoiceStatusSent, reconcile.StatusUnpaid, before).
		Order("due_date asc, id asc").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

type paymentRow struct {
	ID     snowflake.ID
	Amount decimal.Decimal
	Status string
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]reconcile.Payment, error) {
	var rows []paymentRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, amount, status FROM payments WHERE org_id = ? AND invoice_id = ?`,
		orgID, invoiceID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	payments := make([]reconcile.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, reconcile.Payment{
			ID:     row.ID.String(),
			Amount: row.Amount,
			State:  reconcile.PaymentState(row.Status),
		})
	}
	return payments, nil
}

// loadLines attaches items and charges, keeping their stored order.
func (r *repo) loadLines(ctx context.Context, db *gorm.DB, invoices []*domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(invoices))
	byID := make(map[snowflake.ID]*domain.Invoice, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
		byID[inv.ID] = inv
		inv.Items = []domain.InvoiceItem{}
		inv.Charges = []domain.AdditionalCharge{}
	}

	var items []domain.InvoiceItem
	if err := db.WithContext(ctx).
		Where("invoice_id IN ?", ids).
		Order("invoice_id, position asc").
		Find(&items).Error; err != nil {
		return fmt.Errorf("load invoice items: %w", err)
	}
	for _, item := range items {
		if inv, ok := byID[item.InvoiceID]; ok {
			inv.Items = append(inv.Items, item)
		}
	}

	var charges []domain.AdditionalCharge
	if err := db.WithContext(ctx).
		Where("invoice_id IN ?", ids).
		Order("invoice_id, position asc").
		Find(&charges).Error; err != nil {
		return fmt.Errorf("load invoice charges: %w", err)
	}
	for _, charge := range charges {
		if inv, ok := byID[charge.InvoiceID]; ok {
			inv.Charges = append(inv.Charges, charge)
		}
	}
	return nil
}
