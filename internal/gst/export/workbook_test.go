package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFileName(t *testing.T) {
	p, err := aggregate.PeriodFor(aggregate.Q2, 2024)
	require.NoError(t, err)
	assert.Equal(t, "gst-return-acme-ltd-2024-q2.xlsx", FileName("Acme Ltd.", p))
	assert.Equal(t, "gst-return-2024-q2.xlsx", FileName("", p))
}

func TestBuildWorkbook(t *testing.T) {
	data, err := aggregate.AggregateQuarter(aggregate.Q2, 2024,
		[]aggregate.Invoice{{ID: "1", Date: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), Total: decimal.NewFromInt(1150), TaxAmount: decimal.NewFromInt(150)}},
		[]aggregate.Expense{{ID: "2", ExpenseDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(230), GSTAmount: decimal.NewFromInt(30), IsGSTClaimable: true}},
		aggregate.Adjustments{},
	)
	require.NoError(t, err)

	body, err := Build(Workbook{
		OrgName:  "Acme Ltd",
		Data:     data,
		Invoices: []InvoiceRow{{Number: "INV-202404-0001", IssueDate: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), Total: decimal.NewFromInt(1150), TaxAmount: decimal.NewFromInt(150)}},
		Expenses: []ExpenseRow{{Description: "Printer ink", ExpenseDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(230), GSTAmount: decimal.NewFromInt(30)}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Invoices", "Expenses"}, f.GetSheetList())

	period, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Q2 2024", period)

	due, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-28", due)

	net, err := f.GetCellValue("Summary", "B16")
	require.NoError(t, err)
	assert.Equal(t, "120", net)

	number, err := f.GetCellValue("Invoices", "A2")
	require.NoError(t, err)
	assert.Equal(t, "INV-202404-0001", number)

	desc, err := f.GetCellValue("Expenses", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Printer ink", desc)
}
