package tracing

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/invoices"),
		attribute.String("customer.email", "a@b.c"),
		attribute.String("payment.amount", "10.00"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorKeepsPrefix(t *testing.T) {
	err := SafeError(fmt.Errorf("invalid_amount: %w", errors.New("customer 42 paid -3")))
	require.Error(t, err)
	assert.Equal(t, "invalid_amount", err.Error())
	assert.Nil(t, SafeError(nil))
}

func TestDisabledProviderServesRequests(t *testing.T) {
	tp, err := NewProvider(nil, Config{Enabled: false, ServiceName: "test"}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, tp)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
