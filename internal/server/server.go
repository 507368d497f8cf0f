package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/smallbiznis/ledgercraft/internal/customer"
	customerdomain "github.com/smallbiznis/ledgercraft/internal/customer/domain"
	"github.com/smallbiznis/ledgercraft/internal/expense"
	expensedomain "github.com/smallbiznis/ledgercraft/internal/expense/domain"
	"github.com/smallbiznis/ledgercraft/internal/gst"
	gstdomain "github.com/smallbiznis/ledgercraft/internal/gst/domain"
	"github.com/smallbiznis/ledgercraft/internal/invoice"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/internal/observability"
	obsmiddleware "github.com/smallbiznis/ledgercraft/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ledgercraft/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ledgercraft/internal/observability/tracing"
	"github.com/smallbiznis/ledgercraft/internal/payment"
	paymentdomain "github.com/smallbiznis/ledgercraft/internal/payment/domain"
	"github.com/smallbiznis/ledgercraft/internal/providers/pdf"
	"github.com/smallbiznis/ledgercraft/internal/ratelimit"
	s3storage "github.com/smallbiznis/ledgercraft/internal/storage/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	s3storage.Module,
	pdf.Module,
	ratelimit.Module,
	customer.Module,
	invoice.Module,
	payment.Module,
	expense.Module,
	gst.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	customerSvc customerdomain.Service
	invoiceSvc  invoicedomain.Service
	paymentSvc  paymentdomain.Service
	expenseSvc  expensedomain.Service
	gstSvc      gstdomain.Service
	orgLimiter  *ratelimit.OrgLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	CustomerSvc customerdomain.Service
	InvoiceSvc  invoicedomain.Service
	PaymentSvc  paymentdomain.Service
	ExpenseSvc  expensedomain.Service
	GSTSvc      gstdomain.Service
	OrgLimiter  *ratelimit.OrgLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics   `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		customerSvc: p.CustomerSvc,
		invoiceSvc:  p.InvoiceSvc,
		paymentSvc:  p.PaymentSvc,
		expenseSvc:  p.ExpenseSvc,
		gstSvc:      p.GSTSvc,
		orgLimiter:  p.OrgLimiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.OrgContext())
	api.Use(s.OrgRateLimit())

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PATCH("/customers/:id", s.UpdateCustomer)

	// -------- Invoices --------
	api.POST("/invoices/preview", s.PreviewInvoiceTotals)
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)
	api.PATCH("/invoices/:id/charges/:chargeId", s.ToggleInvoiceCharge)
	api.GET("/invoices/:id/pdf", s.RenderInvoicePDF)
	api.POST("/invoices/:id/pdf/publish", s.PublishInvoicePDF)
	api.GET("/invoices/:id/payments", s.ListInvoicePayments)
	api.GET("/invoices/:id/reconciliation", s.ReconcileInvoice)

	// -------- Payments --------
	api.POST("/payments", s.RecordPayment)
	api.GET("/payments/:id", s.GetPaymentByID)
	api.PATCH("/payments/:id/status", s.UpdatePaymentStatus)
	api.GET("/payments/:id/receipt", s.RenderPaymentReceipt)

	// -------- Expenses --------
	api.GET("/expenses", s.ListExpenses)
	api.POST("/expenses", s.CreateExpense)
	api.GET("/expenses/:id", s.GetExpenseByID)
	api.DELETE("/expenses/:id", s.DeleteExpense)

	// -------- GST --------
	api.GET("/gst/periods", s.GetGSTPeriod)
	api.POST("/gst/returns/prepare", s.PrepareGSTReturn)
	api.GET("/gst/returns", s.ListGSTReturns)
	api.POST("/gst/returns", s.SaveGSTReturn)
	api.GET("/gst/returns/:id", s.GetGSTReturnByID)
	api.POST("/gst/returns/:id/file", s.FileGSTReturn)
	api.GET("/gst/returns/:id/export", s.ExportGSTReturn)
	api.POST("/gst/returns/:id/export/publish", s.PublishGSTReturnExport)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
