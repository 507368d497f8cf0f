package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/clock"
	"github.com/smallbiznis/ledgercraft/internal/config"
	customerdomain "github.com/smallbiznis/ledgercraft/internal/customer/domain"
	expensedomain "github.com/smallbiznis/ledgercraft/internal/expense/domain"
	expenseservice "github.com/smallbiznis/ledgercraft/internal/expense/service"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	"github.com/smallbiznis/ledgercraft/internal/gst/domain"
	"github.com/smallbiznis/ledgercraft/internal/gst/repository"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/ledgercraft/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/ledgercraft/internal/invoice/service"
	"github.com/smallbiznis/ledgercraft/internal/orgcontext"
	"github.com/smallbiznis/ledgercraft/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	invoices invoicedomain.Service
	expenses expensedomain.Service
	storage  *storage.MemoryStorage
	ctx      context.Context
	customer snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.AdditionalCharge{},
		&invoicedomain.InvoiceSequence{},
		&expensedomain.Expense{},
		&domain.GSTReturn{},
	))
	// Invoices reconcile against the payments table on every write.
	require.NoError(t, db.Exec(`CREATE TABLE payments (id INTEGER PRIMARY KEY, org_id INTEGER, invoice_id INTEGER, amount NUMERIC, status TEXT)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	orgID := node.Generate()
	customer := customerdomain.Customer{ID: node.Generate(), OrgID: orgID, Name: "Kea Builders", Email: "kea@example.com", Currency: "NZD"}
	require.NoError(t, db.Create(&customer).Error)

	clk := clock.NewFakeClock(time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC))
	invRepo := invoicerepo.Provide()
	invoices := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    invRepo,
		Clock:   clk,
		Finance: config.NewStaticFinanceConfigHolder(config.DefaultFinanceConfig()),
	})
	expenses := expenseservice.NewService(expenseservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk})
	store := storage.NewMemoryStorage()

	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        repository.Provide(),
		InvoiceRepo: invRepo,
		ExpenseSvc:  expenses,
		Storage:     store,
	})

	return &fixture{
		svc:      svc,
		invoices: invoices,
		expenses: expenses,
		storage:  store,
		ctx:      orgcontext.WithOrgID(context.Background(), int64(orgID)),
		customer: customer.ID,
	}
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(y int, m time.Month, dd int) *time.Time {
	t := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	return &t
}

// seed creates one sent invoice (1150.00 incl. 150.00 GST), one draft that
// must be ignored, and three expenses in Q2 2024 plus one in Q3.
func (f *fixture) seed(t *testing.T) invoicedomain.Invoice {
	t.Helper()
	rate := d("15")
	inv, err := f.invoices.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.String(),
		Items:      []invoicedomain.LineItemInput{{Description: "Framing", Quantity: d("10"), Rate: d("100"), TaxRatePercent: &rate}},
	})
	require.NoError(t, err)
	inv, err = f.invoices.Send(f.ctx, inv.ID.String())
	require.NoError(t, err)

	_, err = f.invoices.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.String(),
		Items:      []invoicedomain.LineItemInput{{Quantity: d("1"), Rate: d("999"), TaxRatePercent: &rate}},
	})
	require.NoError(t, err)

	for _, req := range []expensedomain.CreateExpenseRequest{
		{Description: "Timber", Amount: d("230"), GSTAmount: d("30"), IsGSTClaimable: true, ExpenseDate: day(2024, 4, 1)},
		{Description: "Nail gun", Amount: d("575"), GSTAmount: d("75"), IsGSTClaimable: true, IsCapitalExpense: true, ExpenseDate: day(2024, 6, 30)},
		{Description: "Lunch", Amount: d("115"), GSTAmount: d("15"), ExpenseDate: day(2024, 5, 3)},
		{Description: "Ladder", Amount: d("46"), GSTAmount: d("6"), IsGSTClaimable: true, ExpenseDate: day(2024, 7, 1)},
	} {
		_, err := f.expenses.Create(f.ctx, req)
		require.NoError(t, err)
	}
	return inv
}

func TestPeriod(t *testing.T) {
	f := setup(t)
	p, err := f.svc.Period("q2", 2024)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), p.StartDate)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), p.EndDate)
	assert.Equal(t, time.Date(2024, 7, 28, 0, 0, 0, 0, time.UTC), p.DueDate)

	_, err = f.svc.Period("Q5", 2024)
	assert.ErrorIs(t, err, aggregate.ErrInvalidQuarter)
}

func TestPrepareReturn(t *testing.T) {
	f := setup(t)
	inv := f.seed(t)

	data, err := f.svc.Prepare(f.ctx, domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024})
	require.NoError(t, err)
	assert.True(t, data.TotalSales.Equal(d("1150")), data.TotalSales.String())
	assert.True(t, data.GSTOnSales.Equal(d("150")))
	assert.True(t, data.GSTOnPurchases.Equal(d("30")))
	assert.True(t, data.TotalPurchases.Equal(d("920")))
	assert.True(t, data.CapitalGoods.Equal(d("575")))
	assert.True(t, data.GSTOnCapitalGoods.Equal(d("75")))
	assert.True(t, data.NetGST.Equal(d("45")))
	assert.True(t, data.PaymentDue.Equal(d("45")))
	assert.True(t, data.RefundDue.IsZero())
	assert.Equal(t, []string{inv.ID.String()}, data.InvoiceIDs)
	assert.Len(t, data.ExpenseIDs, 3)

	adjusted, err := f.svc.Prepare(f.ctx, domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024, Adjustments: aggregate.Adjustments{BadDebt: d("60")}})
	require.NoError(t, err)
	assert.True(t, adjusted.NetGST.Equal(d("-15")))
	assert.True(t, adjusted.RefundDue.Equal(d("15")))
	assert.True(t, adjusted.PaymentDue.IsZero())
}

func TestSaveAndFileReturn(t *testing.T) {
	f := setup(t)
	f.seed(t)

	draft, err := f.svc.Save(f.ctx, domain.SaveReturnRequest{PrepareReturnRequest: domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024}})
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusDraft, draft.Status)

	resaved, err := f.svc.Save(f.ctx, domain.SaveReturnRequest{
		PrepareReturnRequest: domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024, Adjustments: aggregate.Adjustments{Other: d("5")}},
		Notes:                "other adj",
	})
	require.NoError(t, err)
	assert.Equal(t, draft.ID, resaved.ID)
	assert.True(t, resaved.NetGST.Equal(d("40")))

	list, err := f.svc.List(f.ctx, 2024)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "other adj", list[0].Notes)

	filed, err := f.svc.File(f.ctx, draft.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusFiled, filed.Status)
	require.NotNil(t, filed.FiledAt)

	_, err = f.svc.File(f.ctx, draft.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyFiled)

	_, err = f.svc.Save(f.ctx, domain.SaveReturnRequest{PrepareReturnRequest: domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024}})
	assert.ErrorIs(t, err, domain.ErrAlreadyFiled)

	got, err := f.svc.GetByID(f.ctx, draft.ID.String())
	require.NoError(t, err)
	assert.True(t, got.OtherAdjustments.Equal(d("5")))
	assert.Len(t, got.ExpenseIDs, 3)
}

func TestExportReturn(t *testing.T) {
	f := setup(t)
	f.seed(t)

	saved, err := f.svc.Save(f.ctx, domain.SaveReturnRequest{PrepareReturnRequest: domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024}})
	require.NoError(t, err)

	doc, err := f.svc.Export(f.ctx, saved.ID.String())
	require.NoError(t, err)
	assert.Contains(t, doc.FileName, "2024-q2.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(doc.Body))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Expenses")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rows, err = wb.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "INV-202405-0001", rows[1][0])

	published, err := f.svc.PublishExport(f.ctx, saved.ID.String())
	require.NoError(t, err)
	body, err := f.storage.Download(f.ctx, published.Key)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestExportFiledReturnIgnoresLaterChanges(t *testing.T) {
	f := setup(t)
	inv := f.seed(t)

	saved, err := f.svc.Save(f.ctx, domain.SaveReturnRequest{PrepareReturnRequest: domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024}})
	require.NoError(t, err)
	require.Len(t, saved.Invoices, 1)
	require.Len(t, saved.Expenses, 3)
	_, err = f.svc.File(f.ctx, saved.ID.String())
	require.NoError(t, err)

	_, err = f.invoices.Cancel(f.ctx, inv.ID.String())
	require.NoError(t, err)
	require.NoError(t, f.expenses.Delete(f.ctx, saved.Expenses[0].ID))

	doc, err := f.svc.Export(f.ctx, saved.ID.String())
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(doc.Body))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, inv.InvoiceNumber, rows[1][0])
	assert.Equal(t, "150", rows[1][3])

	rows, err = wb.GetRows("Expenses")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rows, err = wb.GetRows("Summary")
	require.NoError(t, err)
	assert.Contains(t, rows, []string{"GST on sales", "150"})

	// A fresh preparation no longer sees the cancelled invoice.
	current, err := f.svc.Prepare(f.ctx, domain.PrepareReturnRequest{Quarter: "Q2", Year: 2024})
	require.NoError(t, err)
	assert.Empty(t, current.InvoiceIDs)
}
