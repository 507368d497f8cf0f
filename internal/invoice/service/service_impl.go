package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/clock"
	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/smallbiznis/ledgercraft/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/internal/invoice/format"
	"github.com/smallbiznis/ledgercraft/internal/money"
	"github.com/smallbiznis/ledgercraft/internal/observability/metrics"
	"github.com/smallbiznis/ledgercraft/internal/orgcontext"
	"github.com/smallbiznis/ledgercraft/internal/payment/reconcile"
	"github.com/smallbiznis/ledgercraft/internal/storage"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     invoicedomain.Repository
	Clock    clock.Clock
	Finance  *config.FinanceConfigHolder
	Config   config.Config
	Metrics  *metrics.Metrics       `optional:"true"`
	Renderer invoicedomain.Renderer `optional:"true"`
	Storage  storage.ObjectStorage  `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	repo     invoicedomain.Repository
	clock    clock.Clock
	finance  *config.FinanceConfigHolder
	cfg      config.Config
	metrics  *metrics.Metrics
	renderer invoicedomain.Renderer
	storage  storage.ObjectStorage
}

func NewService(p ServiceParam) invoicedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		repo:     p.Repo,
		clock:    clk,
		finance:  p.Finance,
		cfg:      p.Config,
		metrics:  p.Metrics,
		renderer: p.Renderer,
		storage:  p.Storage,
	}
}

func (s *Service) PreviewTotals(ctx context.Context, req invoicedomain.PreviewTotalsRequest) (calc.Totals, error) {
	inv := invoicedomain.Invoice{
		Currency: money.NormalizeCurrency(req.Currency),
		Discount: req.Discount,
		Items:    buildItems(nil, 0, 0, req.Items),
		Charges:  buildCharges(nil, 0, 0, req.Charges),
	}
	totals, err := inv.RecomputeTotals()
	if err != nil {
		return calc.Totals{}, err
	}
	s.metrics.RecordTotalsComputed(ctx, inv.Currency)
	return totals, nil
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidOrganization
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidCustomer
	}

	customer, err := s.loadCustomer(ctx, s.db, orgID, customerID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	currency := money.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = money.NormalizeCurrency(customer.Currency)
	}
	if len(currency) != 3 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidCurrency
	}

	settings := s.finance.Get().Invoices
	now := s.clock.Now()
	issueDate := dateOnly(now)
	if req.IssueDate != nil {
		issueDate = dateOnly(*req.IssueDate)
	}
	dueDate := issueDate.AddDate(0, 0, settings.PaymentTermsDays)
	if req.DueDate != nil {
		dueDate = dateOnly(*req.DueDate)
	}
	if dueDate.Before(issueDate) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDueDate
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	invoiceID := s.genID.Generate()
	inv := invoicedomain.Invoice{
		ID:            invoiceID,
		OrgID:         orgID,
		CustomerID:    customerID,
		Status:        invoicedomain.InvoiceStatusDraft,
		PaymentStatus: reconcile.StatusUnpaid,
		Currency:      currency,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Discount:      req.Discount,
		Notes:         strings.TrimSpace(req.Notes),
		Terms:         strings.TrimSpace(req.Terms),
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         buildItems(s.genID, orgID, invoiceID, req.Items),
		Charges:       buildCharges(s.genID, orgID, invoiceID, req.Charges),
	}
	if _, err := inv.RecomputeTotals(); err != nil {
		return invoicedomain.Invoice{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.repo.NextSequence(ctx, tx, orgID)
		if err != nil {
			return err
		}
		number, err := format.FormatInvoiceNumber(settings.NumberTemplate, issueDate, seq)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		res, err := reconcile.Reconcile(inv.ReconcileInput(nil, now))
		if err != nil {
			return err
		}
		inv.ApplyReconciliation(res, now)

		return s.repo.Insert(ctx, tx, &inv)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceEvent(ctx, "created")
	s.metrics.RecordTotalsComputed(ctx, inv.Currency)
	s.log.Info("invoice created",
		zap.String("org_id", orgID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
	)
	return inv, nil
}

func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, req.ID, "updated", func(tx *gorm.DB, inv *invoicedomain.Invoice) error {
		if !inv.Status.Editable() {
			return invoicedomain.ErrNotEditable
		}

		if req.IssueDate != nil {
			inv.IssueDate = dateOnly(*req.IssueDate)
		}
		if req.DueDate != nil {
			inv.DueDate = dateOnly(*req.DueDate)
		}
		if inv.DueDate.Before(inv.IssueDate) {
			return invoicedomain.ErrInvalidDueDate
		}
		if req.Discount != nil {
			inv.Discount = *req.Discount
		}
		if req.Notes != nil {
			inv.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.Terms != nil {
			inv.Terms = strings.TrimSpace(*req.Terms)
		}

		linesChanged := false
		if req.Items != nil {
			inv.Items = buildItems(s.genID, inv.OrgID, inv.ID, req.Items)
			linesChanged = true
		}
		if req.Charges != nil {
			inv.Charges = buildCharges(s.genID, inv.OrgID, inv.ID, req.Charges)
			linesChanged = true
		}
		if _, err := inv.RecomputeTotals(); err != nil {
			return err
		}
		if linesChanged {
			return s.repo.ReplaceLines(ctx, tx, inv)
		}
		return nil
	})
}

func (s *Service) ToggleCharge(ctx context.Context, req invoicedomain.ToggleChargeRequest) (invoicedomain.Invoice, error) {
	chargeID, err := snowflake.ParseString(strings.TrimSpace(req.ChargeID))
	if err != nil || chargeID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrChargeNotFound
	}

	return s.mutate(ctx, req.InvoiceID, "charge_toggled", func(tx *gorm.DB, inv *invoicedomain.Invoice) error {
		if !inv.Status.Editable() {
			return invoicedomain.ErrNotEditable
		}

		found := false
		for i := range inv.Charges {
			if inv.Charges[i].ID == chargeID {
				inv.Charges[i].IsActive = req.IsActive
				found = true
			}
		}
		if !found {
			return invoicedomain.ErrChargeNotFound
		}
		if _, err := s.repo.SetChargeActive(ctx, tx, inv.OrgID, inv.ID, chargeID, req.IsActive); err != nil {
			return err
		}
		_, err := inv.RecomputeTotals()
		return err
	})
}

func (s *Service) Send(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, id, "sent", func(_ *gorm.DB, inv *invoicedomain.Invoice) error {
		if inv.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrInvalidTransition
		}
		sentAt := s.clock.Now()
		inv.Status = invoicedomain.InvoiceStatusSent
		inv.SentAt = &sentAt
		return nil
	})
}

// Cancel is a terminal manual override; payments already recorded stay.
func (s *Service) Cancel(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, id, "cancelled", func(_ *gorm.DB, inv *invoicedomain.Invoice) error {
		if inv.Status == invoicedomain.InvoiceStatusCancelled {
			return invoicedomain.ErrInvalidTransition
		}
		cancelledAt := s.clock.Now()
		inv.Status = invoicedomain.InvoiceStatusCancelled
		inv.CancelledAt = &cancelledAt
		return nil
	})
}

// mutate loads the invoice under a row lock, applies fn, re-reconciles it
// against its full payment history and persists it in one transaction.
func (s *Service) mutate(ctx context.Context, rawID, action string, fn func(tx *gorm.DB, inv *invoicedomain.Invoice) error) (invoicedomain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidOrganization
	}
	id, err := parseID(rawID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var out invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindByID(ctx, tx, orgID, id, true)
		if err != nil {
			return err
		}
		if inv == nil {
			return invoicedomain.ErrNotFound
		}
		if _, err := inv.RecomputeTotals(); err != nil {
			return err
		}

		if err := fn(tx, inv); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.reconcile(ctx, tx, inv, now); err != nil {
			return err
		}
		inv.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceEvent(ctx, action)
	s.log.Info("invoice "+action,
		zap.String("org_id", orgID.String()),
		zap.String("invoice_id", out.ID.String()),
		zap.String("status", string(out.Status)),
		zap.String("payment_status", string(out.PaymentStatus)),
	)
	return out, nil
}

func (s *Service) reconcile(ctx context.Context, db *gorm.DB, inv *invoicedomain.Invoice, now time.Time) error {
	payments, err := s.repo.ListPayments(ctx, db, inv.OrgID, inv.ID)
	if err != nil {
		return err
	}
	res, err := reconcile.Reconcile(inv.ReconcileInput(payments, now))
	if err != nil {
		return err
	}
	inv.ApplyReconciliation(res, now)
	return nil
}

// GetByID rebuilds totals and payment status from the stored inputs.
func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidOrganization
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, invoiceID, false)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	if _, err := item.RecomputeTotals(); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := s.reconcile(ctx, s.db, item, s.clock.Now()); err != nil {
		return invoicedomain.Invoice{}, err
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidOrganization
	}

	filter := invoicedomain.ListInvoiceFilter{
		Status:        req.Status,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		IssuedFrom:    req.IssuedFrom,
		IssuedTo:      req.IssuedTo,
		SortBy:        req.SortBy,
		OrderBy:       req.OrderBy,
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := snowflake.ParseString(raw)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidCustomer
		}
		value := customerID.Int64()
		filter.CustomerID = &value
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(inv *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if _, err := item.RecomputeTotals(); err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		invoices = append(invoices, *item)
	}

	resp := invoicedomain.ListInvoiceResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

type customerRow struct {
	ID        snowflake.ID
	Name      string
	Email     string
	Address   string
	GSTNumber string
	Currency  string
}

func (s *Service) loadCustomer(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID) (*customerRow, error) {
	var row customerRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, address, gst_number, currency
		 FROM customers WHERE org_id = ? AND id = ?`,
		orgID, customerID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, invoicedomain.ErrCustomerNotFound
	}
	return &row, nil
}

func buildItems(genID *snowflake.Node, orgID, invoiceID snowflake.ID, inputs []invoicedomain.LineItemInput) []invoicedomain.InvoiceItem {
	items := make([]invoicedomain.InvoiceItem, 0, len(inputs))
	for i, in := range inputs {
		item := invoicedomain.InvoiceItem{
			OrgID:       orgID,
			InvoiceID:   invoiceID,
			Position:    i,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			Rate:        in.Rate,
		}
		if genID != nil {
			item.ID = genID.Generate()
		}
		if in.TaxRatePercent != nil {
			item.TaxRatePercent = decimal.NewNullDecimal(*in.TaxRatePercent)
		}
		items = append(items, item)
	}
	return items
}

func buildCharges(genID *snowflake.Node, orgID, invoiceID snowflake.ID, inputs []invoicedomain.ChargeInput) []invoicedomain.AdditionalCharge {
	charges := make([]invoicedomain.AdditionalCharge, 0, len(inputs))
	for i, in := range inputs {
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		charge := invoicedomain.AdditionalCharge{
			OrgID:           orgID,
			InvoiceID:       invoiceID,
			Position:        i,
			Type:            strings.TrimSpace(in.Type),
			Label:           strings.TrimSpace(in.Label),
			CalculationType: calc.CalculationType(strings.ToLower(strings.TrimSpace(string(in.CalculationType)))),
			Amount:          in.Amount,
			IsActive:        active,
		}
		if genID != nil {
			charge.ID = genID.Generate()
		} else {
			charge.ID = snowflake.ID(i + 1)
		}
		charges = append(charges, charge)
	}
	return charges
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
