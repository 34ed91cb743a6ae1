package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	targetsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targets_computed_total",
			Help: "Daily targets computed from body stats, by goal type",
		},
		[]string{"goal_type"},
	)

	mealsLogged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meals_logged_total",
		Help: "Meals created",
	})
)

// metricsMiddleware records count and latency per route. The route template
// (/api/meals/:id) is used as the path label to keep cardinality bounded.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(path, method, status).Inc()
		httpRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	}
}
