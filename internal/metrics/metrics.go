package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appgambit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appgambit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appgambit",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by driver and result (hit, miss, error).",
		},
		[]string{"driver", "result"},
	)

	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appgambit",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Explicit cache invalidations by driver.",
		},
		[]string{"driver"},
	)

	downloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appgambit",
			Subsystem: "catalog",
			Name:      "downloads_total",
			Help:      "Application downloads served.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		cacheLookups,
		cacheInvalidations,
		downloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Middleware records request counts and latencies per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

func CacheHit(driver string)   { cacheLookups.WithLabelValues(driver, "hit").Inc() }
func CacheMiss(driver string)  { cacheLookups.WithLabelValues(driver, "miss").Inc() }
func CacheError(driver string) { cacheLookups.WithLabelValues(driver, "error").Inc() }

func CacheInvalidation(driver string) { cacheInvalidations.WithLabelValues(driver).Inc() }

func Download() { downloads.Inc() }
