package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	initMetricsOnce sync.Once
)

// initMetrics registers the adapter's Prometheus metrics, grounded on the
// teacher's memory_service_requests_total / _request_duration_seconds pair.
// Safe to call multiple times; only the first call registers.
func initMetrics() {
	initMetricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memoraid_http_requests_total",
			Help: "Total number of HTTP requests handled by the memory adapter",
		}, []string{"method", "path", "status"})

		requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memoraid_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})
	})
}

// MetricsMiddleware records request count and duration for every route.
func MetricsMiddleware() gin.HandlerFunc {
	initMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler() http.Handler {
	initMetrics()
	return promhttp.Handler()
}
