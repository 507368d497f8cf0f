package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgercraft/internal/clock"
	"github.com/smallbiznis/ledgercraft/internal/config"
	expensedomain "github.com/smallbiznis/ledgercraft/internal/expense/domain"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	"github.com/smallbiznis/ledgercraft/internal/gst/domain"
	"github.com/smallbiznis/ledgercraft/internal/gst/export"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/ledgercraft/internal/observability/metrics"
	"github.com/smallbiznis/ledgercraft/internal/orgcontext"
	"github.com/smallbiznis/ledgercraft/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPresignExpiry = 15 * time.Minute

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
	ExpenseSvc  expensedomain.Service
	ObsMetrics  *obsmetrics.Metrics   `optional:"true"`
	Storage     storage.ObjectStorage `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
	expenseSvc  expensedomain.Service
	obsMetrics  *obsmetrics.Metrics
	storage     storage.ObjectStorage
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("gst.service"),
		genID:       p.GenID,
		clock:       clk,
		cfg:         p.Config,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		expenseSvc:  p.ExpenseSvc,
		obsMetrics:  p.ObsMetrics,
		storage:     p.Storage,
	}
}

func (s *Service) Period(quarter string, year int) (aggregate.Period, error) {
	q, err := aggregate.ParseQuarter(quarter)
	if err != nil {
		return aggregate.Period{}, err
	}
	return aggregate.PeriodFor(q, year)
}

// Prepare aggregates the period's issued invoices and expenses without saving.
func (s *Service) Prepare(ctx context.Context, req domain.PrepareReturnRequest) (aggregate.ReturnData, error) {
	data, _, _, err := s.prepare(ctx, req)
	if err != nil {
		return aggregate.ReturnData{}, err
	}
	s.obsMetrics.RecordGSTReturn(ctx, "prepared")
	return data, nil
}

func (s *Service) prepare(ctx context.Context, req domain.PrepareReturnRequest) (aggregate.ReturnData, []domain.ReturnInvoice, []domain.ReturnExpense, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return aggregate.ReturnData{}, nil, nil, domain.ErrInvalidOrganization
	}
	period, err := s.Period(req.Quarter, req.Year)
	if err != nil {
		return aggregate.ReturnData{}, nil, nil, err
	}

	invoices, expenses, err := s.source(ctx, orgID, period)
	if err != nil {
		return aggregate.ReturnData{}, nil, nil, err
	}

	data, err := aggregate.AggregateQuarter(period.Quarter, period.Year, toAggregateInvoices(invoices), toAggregateExpenses(expenses), req.Adjustments)
	if err != nil {
		return aggregate.ReturnData{}, nil, nil, err
	}
	invoiceRows, expenseRows := countedRecords(data, invoices, expenses)
	return data, invoiceRows, expenseRows, nil
}

// Save stores the prepared figures, and the records behind them, as the draft
// return for the quarter.
func (s *Service) Save(ctx context.Context, req domain.SaveReturnRequest) (domain.GSTReturn, error) {
	data, invoiceRows, expenseRows, err := s.prepare(ctx, req.PrepareReturnRequest)
	if err != nil {
		return domain.GSTReturn{}, err
	}
	orgID, _ := orgcontext.OrgIDFromContext(ctx)

	var out domain.GSTReturn
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByPeriod(ctx, tx, orgID, string(data.Period.Quarter), data.Period.Year)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if existing != nil {
			if existing.Status == domain.ReturnStatusFiled {
				return domain.ErrAlreadyFiled
			}
			existing.ApplyData(data)
			existing.SetRecords(invoiceRows, expenseRows)
			existing.Notes = strings.TrimSpace(req.Notes)
			existing.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, existing); err != nil {
				return err
			}
			out = *existing
			return nil
		}

		ret := domain.GSTReturn{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			Status:    domain.ReturnStatusDraft,
			Notes:     strings.TrimSpace(req.Notes),
			CreatedAt: now,
			UpdatedAt: now,
		}
		ret.ApplyData(data)
		ret.SetRecords(invoiceRows, expenseRows)
		if err := s.repo.Insert(ctx, tx, &ret); err != nil {
			return err
		}
		out = ret
		return nil
	})
	if err != nil {
		return domain.GSTReturn{}, err
	}

	s.obsMetrics.RecordGSTReturn(ctx, "saved")
	s.log.Info("gst return saved",
		zap.String("org_id", orgID.String()),
		zap.String("return_id", out.ID.String()),
		zap.String("quarter", out.Quarter),
		zap.Int("year", out.Year),
	)
	return out, nil
}

// File marks a draft return as filed. Filed returns are immutable.
func (s *Service) File(ctx context.Context, id string) (domain.GSTReturn, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.GSTReturn{}, domain.ErrInvalidOrganization
	}
	returnID, err := parseID(id)
	if err != nil {
		return domain.GSTReturn{}, err
	}

	var out domain.GSTReturn
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ret, err := s.repo.FindByID(ctx, tx, orgID, returnID)
		if err != nil {
			return err
		}
		if ret == nil {
			return domain.ErrNotFound
		}
		if ret.Status == domain.ReturnStatusFiled {
			return domain.ErrAlreadyFiled
		}
		now := s.clock.Now()
		ret.Status = domain.ReturnStatusFiled
		ret.FiledAt = &now
		ret.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, ret); err != nil {
			return err
		}
		out = *ret
		return nil
	})
	if err != nil {
		return domain.GSTReturn{}, err
	}

	s.obsMetrics.RecordGSTReturn(ctx, "filed")
	s.log.Info("gst return filed",
		zap.String("org_id", orgID.String()),
		zap.String("return_id", out.ID.String()),
	)
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.GSTReturn, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.GSTReturn{}, domain.ErrInvalidOrganization
	}
	returnID, err := parseID(id)
	if err != nil {
		return domain.GSTReturn{}, err
	}

	ret, err := s.repo.FindByID(ctx, s.db, orgID, returnID)
	if err != nil {
		return domain.GSTReturn{}, err
	}
	if ret == nil {
		return domain.GSTReturn{}, domain.ErrNotFound
	}
	return *ret, nil
}

func (s *Service) List(ctx context.Context, year int) ([]domain.GSTReturn, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.List(ctx, s.db, orgID, year)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GSTReturn, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

// Export renders a saved return from the records stored with it, so later
// edits or cancellations of the source invoices do not alter the workbook.
func (s *Service) Export(ctx context.Context, id string) (domain.Export, error) {
	ret, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Export{}, err
	}
	data := ret.Data()

	wb := export.Workbook{OrgName: ret.OrgID.String(), Data: data}
	for _, inv := range ret.Invoices {
		wb.Invoices = append(wb.Invoices, export.InvoiceRow{
			Number:    inv.Number,
			IssueDate: inv.IssueDate,
			Total:     inv.Total,
			TaxAmount: inv.TaxAmount,
		})
	}
	for _, exp := range ret.Expenses {
		wb.Expenses = append(wb.Expenses, export.ExpenseRow{
			Description: exp.Description,
			Vendor:      exp.Vendor,
			ExpenseDate: exp.ExpenseDate,
			Amount:      exp.Amount,
			GSTAmount:   exp.GSTAmount,
			Capital:     exp.Capital,
		})
	}

	body, err := export.Build(wb)
	if err != nil {
		return domain.Export{}, err
	}
	s.obsMetrics.RecordGSTReturn(ctx, "exported")
	return domain.Export{
		FileName:    export.FileName(wb.OrgName, data.Period),
		ContentType: export.ContentType,
		Body:        body,
	}, nil
}

// PublishExport uploads the workbook and returns a time-limited link.
func (s *Service) PublishExport(ctx context.Context, id string) (domain.PublishedExport, error) {
	if s.storage == nil {
		return domain.PublishedExport{}, domain.ErrStorageDisabled
	}
	doc, err := s.Export(ctx, id)
	if err != nil {
		return domain.PublishedExport{}, err
	}
	orgID, _ := orgcontext.OrgIDFromContext(ctx)

	key := fmt.Sprintf("gst/%s/%s", orgID.String(), doc.FileName)
	if _, err := s.storage.Upload(ctx, storage.UploadInput{
		Key:         key,
		ContentType: doc.ContentType,
		Body:        bytes.NewReader(doc.Body),
	}); err != nil {
		return domain.PublishedExport{}, err
	}

	expiry := defaultPresignExpiry
	if seconds := s.cfg.Storage.PresignExpirySeconds; seconds > 0 {
		expiry = time.Duration(seconds) * time.Second
	}
	url, err := s.storage.GetPresignedURL(ctx, key, expiry)
	if err != nil {
		return domain.PublishedExport{}, err
	}
	return domain.PublishedExport{Key: key, URL: url, ExpiresAt: s.clock.Now().Add(expiry)}, nil
}

func (s *Service) source(ctx context.Context, orgID snowflake.ID, period aggregate.Period) ([]*invoicedomain.Invoice, []expensedomain.Expense, error) {
	invoices, err := s.invoiceRepo.ListIssuedBetween(ctx, s.db, orgID, period.StartDate, period.EndExclusive())
	if err != nil {
		return nil, nil, fmt.Errorf("load invoices: %w", err)
	}
	for _, inv := range invoices {
		if _, err := inv.RecomputeTotals(); err != nil {
			return nil, nil, err
		}
	}
	expenses, err := s.expenseSvc.ListBetween(orgcontext.WithOrgID(ctx, int64(orgID)), period.StartDate, period.EndDate)
	if err != nil {
		return nil, nil, fmt.Errorf("load expenses: %w", err)
	}
	return invoices, expenses, nil
}

func toAggregateInvoices(items []*invoicedomain.Invoice) []aggregate.Invoice {
	out := make([]aggregate.Invoice, 0, len(items))
	for _, inv := range items {
		out = append(out, aggregate.Invoice{
			ID:        inv.ID.String(),
			Date:      inv.IssueDate,
			Total:     inv.Total,
			TaxAmount: inv.TaxAmount,
		})
	}
	return out
}

func toAggregateExpenses(items []expensedomain.Expense) []aggregate.Expense {
	out := make([]aggregate.Expense, 0, len(items))
	for _, exp := range items {
		out = append(out, aggregate.Expense{
			ID:               exp.ID.String(),
			ExpenseDate:      exp.ExpenseDate,
			Amount:           exp.Amount,
			GSTAmount:        exp.GSTAmount,
			IsGSTClaimable:   exp.IsGSTClaimable,
			IsCapitalExpense: exp.IsCapitalExpense,
		})
	}
	return out
}

// countedRecords keeps the invoices and expenses the aggregate counted.
func countedRecords(data aggregate.ReturnData, invoices []*invoicedomain.Invoice, expenses []expensedomain.Expense) ([]domain.ReturnInvoice, []domain.ReturnExpense) {
	counted := toSet(data.InvoiceIDs)
	invoiceRows := make([]domain.ReturnInvoice, 0, len(data.InvoiceIDs))
	for _, inv := range invoices {
		if _, ok := counted[inv.ID.String()]; !ok {
			continue
		}
		invoiceRows = append(invoiceRows, domain.ReturnInvoice{
			ID:        inv.ID.String(),
			Number:    inv.InvoiceNumber,
			IssueDate: inv.IssueDate,
			Total:     inv.Total,
			TaxAmount: inv.TaxAmount,
		})
	}

	counted = toSet(data.ExpenseIDs)
	expenseRows := make([]domain.ReturnExpense, 0, len(data.ExpenseIDs))
	for _, exp := range expenses {
		if _, ok := counted[exp.ID.String()]; !ok {
			continue
		}
		expenseRows = append(expenseRows, domain.ReturnExpense{
			ID:          exp.ID.String(),
			Description: exp.Description,
			Vendor:      exp.Vendor,
			ExpenseDate: exp.ExpenseDate,
			Amount:      exp.Amount,
			GSTAmount:   exp.GSTAmount,
			Claimable:   exp.IsGSTClaimable,
			Capital:     exp.IsCapitalExpense,
		})
	}
	return invoiceRows, expenseRows
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
