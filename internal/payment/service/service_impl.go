package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/clock"
	"github.com/smallbiznis/ledgercraft/internal/config"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/internal/money"
	obsmetrics "github.com/smallbiznis/ledgercraft/internal/observability/metrics"
	"github.com/smallbiznis/ledgercraft/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/ledgercraft/internal/payment/domain"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        paymentdomain.Repository
	InvoiceRepo invoicedomain.Repository
	Clock       clock.Clock
	Finance     *config.FinanceConfigHolder
	ObsMetrics  *obsmetrics.Metrics            `optional:"true"`
	Renderer    paymentdomain.ReceiptRenderer `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        paymentdomain.Repository
	invoiceRepo invoicedomain.Repository
	clock       clock.Clock
	finance     *config.FinanceConfigHolder
	obsMetrics  *obsmetrics.Metrics
	renderer    paymentdomain.ReceiptRenderer
}

func NewService(p Params) paymentdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		clock:       clk,
		finance:     p.Finance,
		obsMetrics:  p.ObsMetrics,
		renderer:    p.Renderer,
	}
}

// Record stores a payment against an invoice and re-reconciles the invoice
// in the same transaction.
func (s *Service) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return paymentdomain.PaymentResult{}, paymentdomain.ErrInvalidOrganization
	}
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	if err != nil || invoiceID == 0 {
		return paymentdomain.PaymentResult{}, paymentdomain.ErrInvalidInvoice
	}
	if err := reconcile.ValidateAmount(req.Amount); err != nil {
		return paymentdomain.PaymentResult{}, money.NewFieldError("payment", -1, "amount", err)
	}

	method := paymentdomain.Method(strings.ToLower(strings.TrimSpace(string(req.Method))))
	if !method.Valid() {
		return paymentdomain.PaymentResult{}, paymentdomain.ErrInvalidMethod
	}
	status := req.Status
	if status == "" {
		status = reconcile.PaymentCompleted
	}
	if status != reconcile.PaymentCompleted && status != reconcile.PaymentPending {
		return paymentdomain.PaymentResult{}, paymentdomain.ErrInvalidStatus
	}

	now := s.clock.Now()
	paymentDate := now
	if req.PaymentDate != nil {
		paymentDate = req.PaymentDate.UTC()
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = ulid.Make().String()
	}

	var out paymentdomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == invoicedomain.InvoiceStatusCancelled {
			return paymentdomain.ErrInvoiceCancelled
		}

		history, err := s.repo.ListByInvoice(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		before, err := reconcile.Reconcile(inv.ReconcileInput(toReconcile(history), now))
		if err != nil {
			return err
		}
		if err := s.checkTolerance(req.Amount, before); err != nil {
			return err
		}

		payment := paymentdomain.Payment{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			InvoiceID:   invoiceID,
			Amount:      money.Round(req.Amount),
			Currency:    inv.Currency,
			Method:      method,
			Status:      status,
			PaymentDate: paymentDate,
			Reference:   reference,
			Notes:       strings.TrimSpace(req.Notes),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if status == reconcile.PaymentCompleted {
			payment.CompletedAt = &now
		}
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}

		summary, err := s.applyReconciliation(ctx, tx, inv, append(history, &payment), now)
		if err != nil {
			return err
		}
		out = paymentdomain.PaymentResult{Payment: payment, Reconciliation: summary}
		return nil
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}

	s.obsMetrics.RecordPayment(ctx, string(method), string(status))
	s.obsMetrics.RecordReconciliation(ctx, string(out.Reconciliation.PaymentStatus))
	s.log.Info("payment recorded",
		zap.String("org_id", orgID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_id", out.Payment.ID.String()),
		zap.String("status", string(status)),
		zap.String("payment_status", string(out.Reconciliation.PaymentStatus)),
	)
	return out, nil
}

// UpdateStatus settles a pending payment. Completed and failed payments are
// final.
func (s *Service) UpdateStatus(ctx context.Context, req paymentdomain.UpdatePaymentStatusRequest) (paymentdomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return paymentdomain.PaymentResult{}, paymentdomain.ErrInvalidOrganization
	}
	id, err := parseID(req.ID)
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}
	if req.Status != reconcile.PaymentCompleted && req.Status != reconcile.PaymentFailed {
		return paymentdomain.PaymentResult{}, paymentdomain.ErrInvalidStatus
	}

	now := s.clock.Now()
	var out paymentdomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, orgID, id, true)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrNotFound
		}
		if payment.Status != reconcile.PaymentPending {
			return paymentdomain.ErrPaymentImmutable
		}

		inv, err := s.lockInvoice(ctx, tx, orgID, payment.InvoiceID)
		if err != nil {
			return err
		}

		payment.Status = req.Status
		payment.UpdatedAt = now
		switch req.Status {
		case reconcile.PaymentCompleted:
			payment.CompletedAt = &now
		case reconcile.PaymentFailed:
			payment.FailedAt = &now
		}
		if err := s.repo.UpdateStatus(ctx, tx, payment); err != nil {
			return err
		}

		history, err := s.repo.ListByInvoice(ctx, tx, orgID, payment.InvoiceID)
		if err != nil {
			return err
		}
		summary, err := s.applyReconciliation(ctx, tx, inv, history, now)
		if err != nil {
			return err
		}
		out = paymentdomain.PaymentResult{Payment: *payment, Reconciliation: summary}
		return nil
	})
	if err != nil {
		return paymentdomain.PaymentResult{}, err
	}

	s.obsMetrics.RecordPayment(ctx, string(out.Payment.Method), string(out.Payment.Status))
	s.obsMetrics.RecordReconciliation(ctx, string(out.Reconciliation.PaymentStatus))
	s.log.Info("payment status updated",
		zap.String("org_id", orgID.String()),
		zap.String("payment_id", out.Payment.ID.String()),
		zap.String("status", string(out.Payment.Status)),
	)
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (paymentdomain.Payment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidOrganization
	}
	paymentID, err := parseID(id)
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, paymentID, false)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if item == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID string) ([]paymentdomain.Payment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, paymentdomain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil || id == 0 {
		return nil, paymentdomain.ErrInvalidInvoice
	}

	items, err := s.repo.ListByInvoice(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	out := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

// Reconcile reports the invoice's collection state without persisting it.
func (s *Service) Reconcile(ctx context.Context, invoiceID string) (paymentdomain.Reconciliation, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return paymentdomain.Reconciliation{}, paymentdomain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil || id == 0 {
		return paymentdomain.Reconciliation{}, paymentdomain.ErrInvalidInvoice
	}

	inv, err := s.invoiceRepo.FindByID(ctx, s.db, orgID, id, false)
	if err != nil {
		return paymentdomain.Reconciliation{}, err
	}
	if inv == nil {
		return paymentdomain.Reconciliation{}, paymentdomain.ErrInvoiceNotFound
	}
	if _, err := inv.RecomputeTotals(); err != nil {
		return paymentdomain.Reconciliation{}, err
	}
	history, err := s.repo.ListByInvoice(ctx, s.db, orgID, id)
	if err != nil {
		return paymentdomain.Reconciliation{}, err
	}

	now := s.clock.Now()
	res, err := reconcile.Reconcile(inv.ReconcileInput(toReconcile(history), now))
	if err != nil {
		return paymentdomain.Reconciliation{}, err
	}
	inv.ApplyReconciliation(res, now)
	return summarize(inv, res), nil
}

// SweepInvoice re-reconciles and persists one invoice. The caller supplies a
// row picked up outside any org scope, so the org comes from the invoice.
func (s *Service) SweepInvoice(ctx context.Context, candidate invoicedomain.Invoice) (reconcile.Status, error) {
	var status reconcile.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(ctx, tx, candidate.OrgID, candidate.ID)
		if err != nil {
			return err
		}
		history, err := s.repo.ListByInvoice(ctx, tx, inv.OrgID, inv.ID)
		if err != nil {
			return err
		}
		summary, err := s.applyReconciliation(ctx, tx, inv, history, s.clock.Now())
		if err != nil {
			return err
		}
		status = summary.PaymentStatus
		return nil
	})
	if err != nil {
		return "", err
	}
	s.obsMetrics.RecordReconciliation(ctx, string(status))
	return status, nil
}

func (s *Service) RenderReceipt(ctx context.Context, id string) (paymentdomain.Document, error) {
	if s.renderer == nil {
		return paymentdomain.Document{}, paymentdomain.ErrRendererDisabled
	}
	payment, err := s.GetByID(ctx, id)
	if err != nil {
		return paymentdomain.Document{}, err
	}

	inv, err := s.invoiceRepo.FindByID(ctx, s.db, payment.OrgID, payment.InvoiceID, false)
	if err != nil {
		return paymentdomain.Document{}, err
	}
	if inv == nil {
		return paymentdomain.Document{}, paymentdomain.ErrInvoiceNotFound
	}

	var customer struct{ Name string }
	if err := s.db.WithContext(ctx).Raw(
		`SELECT name FROM customers WHERE org_id = ? AND id = ?`,
		inv.OrgID, inv.CustomerID,
	).Scan(&customer).Error; err != nil {
		return paymentdomain.Document{}, err
	}

	body, err := s.renderer.RenderReceipt(ctx, paymentdomain.ReceiptData{
		Payment:       payment,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  customer.Name,
		BalanceDue:    inv.BalanceDue,
	})
	if err != nil {
		return paymentdomain.Document{}, err
	}
	return paymentdomain.Document{
		FileName:    fmt.Sprintf("receipt-%s.pdf", payment.Reference),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

func (s *Service) lockInvoice(ctx context.Context, tx *gorm.DB, orgID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, tx, orgID, invoiceID, true)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, paymentdomain.ErrInvoiceNotFound
	}
	if _, err := inv.RecomputeTotals(); err != nil {
		return nil, err
	}
	return inv, nil
}

// checkTolerance rejects a payment that, together with payments still
// pending, exceeds the balance due by more than the configured tolerance.
func (s *Service) checkTolerance(amount decimal.Decimal, before reconcile.Result) error {
	tolerance := config.DefaultFinanceConfig().Payments.OverpaymentTolerancePercent
	if s.finance != nil {
		tolerance = s.finance.Get().Payments.OverpaymentTolerancePercent
	}
	limit := money.Percent(before.BalanceDue, decimal.NewFromFloat(tolerance))
	if amount.Add(before.PendingAmount).GreaterThan(limit) {
		return paymentdomain.ErrExceedsTolerance
	}
	return nil
}

func (s *Service) applyReconciliation(ctx context.Context, tx *gorm.DB, inv *invoicedomain.Invoice, history []*paymentdomain.Payment, now time.Time) (paymentdomain.Reconciliation, error) {
	res, err := reconcile.Reconcile(inv.ReconcileInput(toReconcile(history), now))
	if err != nil {
		return paymentdomain.Reconciliation{}, err
	}
	inv.ApplyReconciliation(res, now)
	inv.UpdatedAt = now
	if err := s.invoiceRepo.Update(ctx, tx, inv); err != nil {
		return paymentdomain.Reconciliation{}, err
	}
	return summarize(inv, res), nil
}

func summarize(inv *invoicedomain.Invoice, res reconcile.Result) paymentdomain.Reconciliation {
	return paymentdomain.Reconciliation{
		InvoiceID:     inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceStatus: inv.Status,
		Currency:      inv.Currency,
		Total:         inv.Total,
		TotalPaid:     res.TotalPaid,
		BalanceDue:    res.BalanceDue,
		Overpayment:   res.Overpayment,
		Overpaid:      res.Overpaid,
		PendingCount:  res.PendingCount,
		PendingAmount: res.PendingAmount,
		PaymentStatus: res.Status,
	}
}

func toReconcile(items []*paymentdomain.Payment) []reconcile.Payment {
	out := make([]reconcile.Payment, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, item.ToReconcile())
		}
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, paymentdomain.ErrInvalidID
	}
	return id, nil
}
