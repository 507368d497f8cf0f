package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("invoice_id", "456"),
		attribute.String("payment_status", "paid"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("org_id"), attrs[0].Key)
	assert.Equal(t, attribute.Key("payment_status"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordInvoiceEvent(context.Background(), "created")
	m.RecordPayment(context.Background(), "cash", "completed")
	m.RecordGSTReturn(context.Background(), "filed")
}

func TestNewWithNoopProvider(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	_, isNoop := provider.(noop.MeterProvider)
	assert.True(t, isNoop)

	m, err := New(Config{ServiceName: "test"}, provider)
	require.NoError(t, err)
	m.RecordTotalsComputed(context.Background(), "nzd")
	m.RecordReconciliation(context.Background(), "partially_paid")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewHTTPMetrics()

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/ping", "204"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/ping", "204")))
}

func TestSchedulerMetricsSingleton(t *testing.T) {
	a := NewSchedulerMetrics()
	b := NewSchedulerMetrics()
	assert.Same(t, a, b)
	a.ObserveJob("overdue_sweep", SchedulerStatusSuccess, time.Millisecond)
}
