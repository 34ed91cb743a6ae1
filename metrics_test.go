package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scrape returns the text exposition of the default registry.
func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(metricsMiddleware())
	router.GET("/test/meals/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test/meals/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	body := scrape(t)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/test/meals/:id",status="204"} 3`)
	assert.NotContains(t, body, `path="/test/meals/1"`)
	assert.Contains(t, body, `http_request_duration_seconds_count{method="GET",path="/test/meals/:id"} 3`)
}

func TestMetricsMiddleware_Unmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(metricsMiddleware())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/nope", nil))

	assert.Contains(t, scrape(t), `http_requests_total{method="DELETE",path="unmatched",status="404"} 1`)
}

func TestMetricsEndpoint_ExposesDomainCounters(t *testing.T) {
	mealsLogged.Inc()
	targetsComputed.WithLabelValues("lose").Inc()

	body := scrape(t)
	assert.Contains(t, body, "meals_logged_total")
	assert.Contains(t, body, `targets_computed_total{goal_type="lose"}`)
}
