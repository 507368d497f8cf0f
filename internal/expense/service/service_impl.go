package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgercraft/internal/clock"
	"github.com/smallbiznis/ledgercraft/internal/expense/domain"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	"github.com/smallbiznis/ledgercraft/internal/money"
	"github.com/smallbiznis/ledgercraft/internal/orgcontext"
	"github.com/smallbiznis/ledgercraft/pkg/db/option"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
	"github.com/smallbiznis/ledgercraft/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	expenserepo repository.Repository[domain.Expense]
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("expense.service"),
		genID: p.GenID,
		clock: clk,

		expenserepo: repository.ProvideStore[domain.Expense](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateExpenseRequest) (domain.Expense, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Expense{}, domain.ErrInvalidOrganization
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.Expense{}, domain.ErrInvalidDescription
	}

	now := s.clock.Now()
	expenseDate := now
	if req.ExpenseDate != nil {
		expenseDate = *req.ExpenseDate
	}
	expenseDate = time.Date(expenseDate.Year(), expenseDate.Month(), expenseDate.Day(), 0, 0, 0, 0, time.UTC)

	if err := aggregate.ValidateExpense(aggregate.Expense{
		Amount:    req.Amount,
		GSTAmount: req.GSTAmount,
	}, -1); err != nil {
		return domain.Expense{}, err
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	expense := domain.Expense{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		Description:      description,
		Category:         strings.ToLower(strings.TrimSpace(req.Category)),
		Vendor:           strings.TrimSpace(req.Vendor),
		Amount:           money.Round(req.Amount),
		GSTAmount:        money.Round(req.GSTAmount),
		ExpenseDate:      expenseDate,
		IsGSTClaimable:   req.IsGSTClaimable,
		IsCapitalExpense: req.IsCapitalExpense,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		ReceiptURL:       strings.TrimSpace(req.ReceiptURL),
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.expenserepo.Create(ctx, &expense); err != nil {
		return domain.Expense{}, err
	}

	s.log.Info("expense created",
		zap.String("org_id", orgID.String()),
		zap.String("expense_id", expense.ID.String()),
	)
	return expense, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Expense, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Expense{}, domain.ErrInvalidOrganization
	}
	expenseID, err := parseID(id)
	if err != nil {
		return domain.Expense{}, err
	}

	item, err := s.expenserepo.FindOne(ctx, &domain.Expense{ID: expenseID, OrgID: orgID})
	if err != nil {
		return domain.Expense{}, err
	}
	if item == nil {
		return domain.Expense{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListExpenseRequest) (domain.ListExpenseResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListExpenseResponse{}, domain.ErrInvalidOrganization
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	opts := []option.QueryOption{
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: int(pageSize)}),
		option.WithSortBy(option.WithQuerySortBy("created_at", "desc", map[string]bool{"created_at": true})),
	}
	if req.From != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "expense_date", Operator: option.GTE, Value: *req.From}))
	}
	if req.To != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "expense_date", Operator: option.LTE, Value: *req.To}))
	}

	items, err := s.expenserepo.Find(ctx, &domain.Expense{
		OrgID:    orgID,
		Category: strings.ToLower(strings.TrimSpace(req.Category)),
	}, opts...)
	if err != nil {
		return domain.ListExpenseResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(e *domain.Expense) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	expenses := make([]domain.Expense, 0, len(items))
	for _, item := range items {
		if item != nil {
			expenses = append(expenses, *item)
		}
	}

	resp := domain.ListExpenseResponse{Expenses: expenses}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	expense, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.expenserepo.Delete(ctx, expense.ID); err != nil {
		return err
	}
	s.log.Info("expense deleted", zap.String("expense_id", expense.ID.String()))
	return nil
}

func (s *Service) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Expense, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var items []domain.Expense
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND expense_date >= ? AND expense_date < ?", orgID, from, to.AddDate(0, 0, 1)).
		Order("expense_date asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
