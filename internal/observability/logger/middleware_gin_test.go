package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/ledgercraft/internal/observability/context"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddlewareEchoesIdentifiers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seenCID string
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/ping", func(c *gin.Context) {
		seenCID = obscontext.CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(obscontext.HeaderRequestID, "req-9")
	req.Header.Set(obscontext.HeaderCorrelationID, "cid-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-9", rec.Header().Get(obscontext.HeaderRequestID))
	assert.Equal(t, "cid-9", rec.Header().Get(obscontext.HeaderCorrelationID))
	assert.Equal(t, "cid-9", seenCID)
}

func TestGinMiddlewareMintsCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Len(t, rec.Header().Get(obscontext.HeaderCorrelationID), 26)
	assert.NotEmpty(t, rec.Header().Get(obscontext.HeaderRequestID))
}
