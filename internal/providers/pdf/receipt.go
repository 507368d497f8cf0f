package pdf

import (
	"context"
	"strings"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	paymentdomain "github.com/smallbiznis/ledgercraft/internal/payment/domain"
)

func (r *Renderer) RenderReceipt(_ context.Context, data paymentdomain.ReceiptData) ([]byte, error) {
	p := data.Payment
	m := r.newDocument()
	r.addHeader(m, "Payment Receipt")

	m.AddRow(22,
		col.New(6).Add(
			text.New("Receipt reference: "+p.Reference, props.Text{Top: 0}),
			text.New("Invoice number: "+data.InvoiceNumber, props.Text{Top: 4}),
			text.New("Date paid: "+p.PaymentDate.Format(dateLayout), props.Text{Top: 8}),
			text.New("Method: "+strings.ReplaceAll(string(p.Method), "_", " "), props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New(r.business.Name, props.Text{Style: fontstyle.Bold}),
			text.New(r.business.Address, props.Text{Top: 5}),
		),
	)

	m.AddRow(12,
		text.NewCol(12, "Received from "+data.CustomerName, props.Text{Size: 11, Top: 3}),
	)
	addTotalRow(m, "Amount received", formatAmount(p.Currency, p.Amount), true)
	addTotalRow(m, "Status", string(p.Status), false)
	addTotalRow(m, "Balance remaining", formatAmount(p.Currency, data.BalanceDue), false)

	if p.Notes != "" {
		m.AddRow(12, text.NewCol(12, p.Notes, props.Text{Size: 8, Top: 4}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
