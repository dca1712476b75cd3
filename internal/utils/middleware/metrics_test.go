package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sportsclub/server/internal/utils/metrics"
)

func TestMetrics(t *testing.T) {
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())

	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/api/v1/registrations/:id/payment", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/registrations/abc/payment", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/registrations/:id/payment", "2xx"))
	assert.Equal(t, float64(1), count)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	router := gin.New()
	router.Use(Metrics(nil))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
