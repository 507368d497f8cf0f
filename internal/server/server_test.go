package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	gstdomain "github.com/smallbiznis/ledgercraft/internal/gst/domain"
	"github.com/smallbiznis/ledgercraft/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/internal/money"
	"github.com/smallbiznis/ledgercraft/internal/observability"
	"github.com/smallbiznis/ledgercraft/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/ledgercraft/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoiceService struct {
	invoicedomain.Service
	preview invoicedomain.PreviewTotalsRequest
}

func (f *fakeInvoiceService) PreviewTotals(ctx context.Context, req invoicedomain.PreviewTotalsRequest) (calc.Totals, error) {
	f.preview = req
	return calc.Totals{
		Currency:  "INR",
		Subtotal:  decimal.NewFromInt(100),
		TaxAmount: decimal.NewFromInt(18),
		Total:     decimal.NewFromInt(118),
	}, nil
}

func (f *fakeInvoiceService) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
}

type fakePaymentService struct {
	paymentdomain.Service
	err   error
	orgID string
}

func (f *fakePaymentService) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.PaymentResult, error) {
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok {
		f.orgID = orgID.String()
	}
	if f.err != nil {
		return paymentdomain.PaymentResult{}, f.err
	}
	return paymentdomain.PaymentResult{
		Reconciliation: paymentdomain.Reconciliation{InvoiceID: req.InvoiceID},
	}, nil
}

type fakeGSTService struct {
	gstdomain.Service
}

func (f *fakeGSTService) Period(quarter string, year int) (aggregate.Period, error) {
	q, err := aggregate.ParseQuarter(quarter)
	if err != nil {
		return aggregate.Period{}, err
	}
	return aggregate.PeriodFor(q, year)
}

func (f *fakeGSTService) File(ctx context.Context, id string) (gstdomain.GSTReturn, error) {
	return gstdomain.GSTReturn{}, gstdomain.ErrAlreadyFiled
}

type testServer struct {
	engine   *gin.Engine
	invoices *fakeInvoiceService
	payments *fakePaymentService
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		engine:   NewEngine(observability.Config{}, nil),
		invoices: &fakeInvoiceService{},
		payments: &fakePaymentService{},
	}
	NewServer(ServerParams{
		Gin:        ts.engine,
		Cfg:        cfg,
		InvoiceSvc: ts.invoices,
		PaymentSvc: ts.payments,
		GSTSvc:     &fakeGSTService{},
	})
	return ts
}

func (ts *testServer) do(method, path, orgID string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if orgID != "" {
		req.Header.Set(HeaderOrg, orgID)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresOrganization(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodPost, "/api/invoices/preview", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_organization", payload.Errors[0].Code)

	rec = ts.do(http.MethodPost, "/api/invoices/preview", "not-a-number", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDefaultOrgFallback(t *testing.T) {
	ts := newTestServer(t, config.Config{DefaultOrgID: 77})

	rec := ts.do(http.MethodPost, "/api/payments", "", map[string]any{
		"invoice_id": "1",
		"amount":     "10",
		"method":     "cash",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "77", ts.payments.orgID)
}

func TestPreviewInvoiceTotals(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodPost, "/api/invoices/preview", "42", map[string]any{
		"currency": "INR",
		"items": []map[string]any{
			{"description": "Design", "quantity": "1", "rate": "100", "tax_rate_percent": "18"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data totalsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "118", resp.Data.Total.String())
	assert.Equal(t, "18", resp.Data.TaxAmount.String())

	require.Len(t, ts.invoices.preview.Items, 1)
	assert.Equal(t, "Design", ts.invoices.preview.Items[0].Description)
	assert.True(t, ts.invoices.preview.Items[0].Rate.Equal(decimal.NewFromInt(100)))
}

func TestFieldErrorMapsToValidation(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	ts.payments.err = money.NewFieldError("payment", -1, "amount", money.ErrNonPositiveAmount)

	rec := ts.do(http.MethodPost, "/api/payments", "42", map[string]any{"invoice_id": "1", "amount": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "payment.amount", payload.Errors[0].Field)
	assert.Equal(t, "non_positive_amount", payload.Errors[0].Code)
}

func TestToleranceMapsToUnprocessable(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	ts.payments.err = paymentdomain.ErrExceedsTolerance

	rec := ts.do(http.MethodPost, "/api/payments", "42", map[string]any{"invoice_id": "1", "amount": "999"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNotFoundAndConflict(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodGet, "/api/invoices/123", "42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/gst/returns/5/file", "42", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGSTPeriod(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodGet, "/api/gst/periods?quarter=Q2&year=2024", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data aggregate.Period `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-04-01", resp.Data.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-06-30", resp.Data.EndDate.Format("2006-01-02"))
	assert.Equal(t, "2024-07-28", resp.Data.DueDate.Format("2006-01-02"))

	rec = ts.do(http.MethodGet, "/api/gst/periods?quarter=Q5&year=2024", "42", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/gst/periods?quarter=Q1", "42", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapErrorServiceUnavailable(t *testing.T) {
	status, payload := mapError(invoicedomain.ErrStorageDisabled)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "service_unavailable", payload.Type)

	kind, code := classifyErrorForLog(calcErr())
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "negative_rate", code)
}

func calcErr() error {
	return money.NewFieldError("items", 2, "rate", calc.ErrNegativeRate)
}
