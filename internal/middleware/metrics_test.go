package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shakthivel10/FSND/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()

	router := gin.New()
	router.Use(Metrics(metrics.New(reg)))
	router.GET("/drinks/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, path := range []string{"/drinks/1", "/drinks/2", "/nope"} {
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	expected := `
# HELP coffeeshop_http_requests_total Total HTTP requests by method, route and status
# TYPE coffeeshop_http_requests_total counter
coffeeshop_http_requests_total{method="GET",route="/drinks/:id",status="204"} 2
coffeeshop_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "coffeeshop_http_requests_total")
	require.NoError(t, err)
}
