// Package export writes GST returns as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	"github.com/xuri/excelize/v2"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	summarySheet  = "Summary"
	invoicesSheet = "Invoices"
	expensesSheet = "Expenses"

	dateLayout = "2006-01-02"
)

type InvoiceRow struct {
	Number    string
	IssueDate time.Time
	Total     decimal.Decimal
	TaxAmount decimal.Decimal
}

type ExpenseRow struct {
	Description string
	Vendor      string
	ExpenseDate time.Time
	Amount      decimal.Decimal
	GSTAmount   decimal.Decimal
	Capital     bool
}

// Workbook is the content of one export.
type Workbook struct {
	OrgName  string
	Data     aggregate.ReturnData
	Invoices []InvoiceRow
	Expenses []ExpenseRow
}

// FileName is e.g. "gst-return-acme-ltd-2024-q2.xlsx".
func FileName(orgName string, p aggregate.Period) string {
	base := "gst-return"
	if s := slug.Make(orgName); s != "" {
		base += "-" + s
	}
	return fmt.Sprintf("%s-%s.xlsx", base, slug.Make(fmt.Sprintf("%d %s", p.Year, p.Quarter)))
}

// Build renders the workbook into xlsx bytes.
func Build(wb Workbook) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, wb); err != nil {
		return nil, err
	}
	if err := writeInvoices(f, wb.Invoices); err != nil {
		return nil, err
	}
	if err := writeExpenses(f, wb.Expenses); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, wb Workbook) error {
	d := wb.Data
	rows := [][]any{
		{"GST Return", fmt.Sprintf("%s %d", d.Period.Quarter, d.Period.Year)},
		{"Organisation", wb.OrgName},
		{"Period start", d.Period.StartDate.Format(dateLayout)},
		{"Period end", d.Period.EndDate.Format(dateLayout)},
		{"Due date", d.Period.DueDate.Format(dateLayout)},
		{},
		{"Total sales", amount(d.TotalSales)},
		{"GST on sales", amount(d.GSTOnSales)},
		{"Total purchases", amount(d.TotalPurchases)},
		{"GST on purchases", amount(d.GSTOnPurchases)},
		{"Capital goods", amount(d.CapitalGoods)},
		{"GST on capital goods", amount(d.GSTOnCapitalGoods)},
		{"Bad debt adjustments", amount(d.Adjustments.BadDebt)},
		{"Credit note adjustments", amount(d.Adjustments.CreditNote)},
		{"Other adjustments", amount(d.Adjustments.Other)},
		{"Net GST", amount(d.NetGST)},
		{"Payment due", amount(d.PaymentDue)},
		{"Refund due", amount(d.RefundDue)},
	}
	return writeRows(f, summarySheet, rows)
}

func writeInvoices(f *excelize.File, invoices []InvoiceRow) error {
	if _, err := f.NewSheet(invoicesSheet); err != nil {
		return fmt.Errorf("add sheet %s: %w", invoicesSheet, err)
	}
	rows := [][]any{{"Invoice", "Issue date", "Total", "GST"}}
	for _, inv := range invoices {
		rows = append(rows, []any{inv.Number, inv.IssueDate.Format(dateLayout), amount(inv.Total), amount(inv.TaxAmount)})
	}
	return writeRows(f, invoicesSheet, rows)
}

func writeExpenses(f *excelize.File, expenses []ExpenseRow) error {
	if _, err := f.NewSheet(expensesSheet); err != nil {
		return fmt.Errorf("add sheet %s: %w", expensesSheet, err)
	}
	rows := [][]any{{"Description", "Vendor", "Date", "Amount", "GST", "Capital"}}
	for _, exp := range expenses {
		capital := "no"
		if exp.Capital {
			capital = "yes"
		}
		rows = append(rows, []any{exp.Description, exp.Vendor, exp.ExpenseDate.Format(dateLayout), amount(exp.Amount), amount(exp.GSTAmount), capital})
	}
	return writeRows(f, expensesSheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func amount(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}
