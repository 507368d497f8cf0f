package pdf

import (
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/ledgercraft/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("pdf",
	fx.Provide(New),
	fx.Provide(func(r *Renderer) invoicedomain.Renderer { return r }),
	fx.Provide(func(r *Renderer) paymentdomain.ReceiptRenderer { return r }),
)
