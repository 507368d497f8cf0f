// Package pdf lays out invoices and payment receipts with maroto.
package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	appconfig "github.com/smallbiznis/ledgercraft/internal/config"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
)

const dateLayout = "02 Jan 2006"

// Renderer produces invoice and receipt PDFs headed with the business details.
type Renderer struct {
	business appconfig.BusinessConfig
}

func New(cfg appconfig.Config) *Renderer {
	return &Renderer{business: cfg.Business}
}

func (r *Renderer) newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func (r *Renderer) addHeader(m core.Maroto, title string) {
	if r.business.LogoPath != "" {
		m.AddRow(30,
			image.NewFromFileCol(3, r.business.LogoPath, props.Rect{Percent: 80}),
			col.New(9),
		)
	}
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
}

func (r *Renderer) RenderInvoice(_ context.Context, data invoicedomain.RenderData) ([]byte, error) {
	inv := data.Invoice
	cur := inv.Currency
	m := r.newDocument()

	title := "Tax Invoice"
	if inv.Status == invoicedomain.InvoiceStatusDraft {
		title = "Draft Invoice"
	}
	r.addHeader(m, title)

	m.AddRow(18,
		col.New(6).Add(
			text.New("Invoice number: "+inv.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+inv.IssueDate.Format(dateLayout), props.Text{Top: 4}),
			text.New("Date due: "+inv.DueDate.Format(dateLayout), props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(32,
		col.New(6).Add(
			text.New(r.business.Name, props.Text{Style: fontstyle.Bold}),
			text.New(r.business.Address, props.Text{Top: 5}),
			text.New(r.business.Email, props.Text{Top: 15}),
			text.New(gstLine(r.business.GSTNumber), props.Text{Top: 20}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(data.CustomerName, props.Text{Top: 5}),
			text.New(data.CustomerAddress, props.Text{Top: 9}),
			text.New(data.CustomerEmail, props.Text{Top: 19}),
			text.New(gstLine(data.CustomerGST), props.Text{Top: 24}),
		),
	)

	m.AddRow(12,
		text.NewCol(12, fmt.Sprintf("%s due %s", formatAmount(cur, inv.BalanceDue), inv.DueDate.Format(dateLayout)), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)

	m.AddRow(8,
		text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "GST %", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, item := range inv.Items {
		taxRate := "-"
		if item.TaxRatePercent.Valid {
			taxRate = item.TaxRatePercent.Decimal.String()
		}
		m.AddRow(8,
			text.NewCol(5, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity.String(), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Rate.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, taxRate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.LineTotal().StringFixed(2), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := data.Totals
	addTotalRow(m, "Subtotal", formatAmount(cur, totals.Subtotal), false)
	if totals.Discount.IsPositive() {
		addTotalRow(m, "Discount", "-"+formatAmount(cur, totals.Discount), false)
	}
	addTotalRow(m, "GST", formatAmount(cur, totals.TaxAmount), false)
	for _, charge := range totals.Charges {
		if !charge.IsActive {
			continue
		}
		label := charge.Label
		if label == "" {
			label = charge.Type
		}
		addTotalRow(m, label, formatAmount(cur, charge.Contribution), false)
	}
	addTotalRow(m, "Total", formatAmount(cur, totals.Total), false)
	if inv.AmountPaid.IsPositive() {
		addTotalRow(m, "Paid", "-"+formatAmount(cur, inv.AmountPaid), false)
	}
	addTotalRow(m, "Amount due", formatAmount(cur, inv.BalanceDue), true)

	if r.business.BankDetails != "" {
		m.AddRow(20,
			text.NewCol(12, "Payment details: "+r.business.BankDetails, props.Text{Size: 9, Top: 6}),
		)
	}
	if inv.Terms != "" {
		m.AddRow(12, text.NewCol(12, inv.Terms, props.Text{Size: 8, Top: 2}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func addTotalRow(m core.Maroto, label, value string, bold bool) {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	m.AddRow(7,
		col.New(7),
		text.NewCol(3, label, props.Text{Size: 9, Style: style}),
		text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
	)
}

func formatAmount(currency string, v decimal.Decimal) string {
	return currency + " " + v.StringFixed(2)
}

func gstLine(number string) string {
	if number == "" {
		return ""
	}
	return "GST no. " + number
}
