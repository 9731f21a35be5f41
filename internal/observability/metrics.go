package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig holds configuration for Prometheus metrics middleware.
type MetricsConfig struct {
	Logger *slog.Logger

	// Namespace for metrics (e.g., "blogview")
	Namespace string

	// Buckets for response time histogram
	Buckets []float64

	// SkipPaths defines paths that should not be metered
	SkipPaths []string
}

// Metrics holds the platform's Prometheus collectors. HTTP series are
// labeled by method and status only; paths contain tenant slugs and
// would make the label set unbounded. The routing pipeline reports its
// own decisions through the exported domain counters instead.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge

	// ResolutionsTotal counts tenant resolutions by source:
	// primary, alias, proxy, or none.
	ResolutionsTotal *prometheus.CounterVec

	// RoutesTotal counts classified requests by route type.
	RoutesTotal *prometheus.CounterVec

	// RedirectsTotal counts canonical 308 redirects issued.
	RedirectsTotal prometheus.Counter

	// RenderFallbacksTotal counts pages served as the bare shell after
	// a render failure.
	RenderFallbacksTotal prometheus.Counter

	// ContentFallbacksTotal counts post/tag routes that fell back to
	// the home listing because their content was missing.
	ContentFallbacksTotal prometheus.Counter
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig(namespace string) *MetricsConfig {
	return &MetricsConfig{
		Namespace: namespace,
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		SkipPaths: []string{"/metrics", "/healthz", "/readyz"},
	}
}

// NewMetrics creates and registers the platform metrics.
func NewMetrics(config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultMetricsConfig("blogview")
	}

	ns := config.Namespace

	return &Metrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   config.Buckets,
			},
			[]string{"method", "status"},
		),
		activeRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "http",
				Name:      "requests_active",
				Help:      "Number of in-flight HTTP requests",
			},
		),
		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "tenant",
				Name:      "resolutions_total",
				Help:      "Tenant resolutions by source",
			},
			[]string{"source"},
		),
		RoutesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "routing",
				Name:      "routes_total",
				Help:      "Classified requests by route type",
			},
			[]string{"route"},
		),
		RedirectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "routing",
				Name:      "canonical_redirects_total",
				Help:      "Permanent redirects issued to canonical post URLs",
			},
		),
		RenderFallbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "render",
				Name:      "shell_fallbacks_total",
				Help:      "Pages served as the unrendered shell after a render failure",
			},
		),
		ContentFallbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "content",
				Name:      "listing_fallbacks_total",
				Help:      "Post or tag routes that fell back to the home listing",
			},
		),
	}
}

// Middleware returns the request metering middleware.
func (m *Metrics) Middleware(config *MetricsConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultMetricsConfig("blogview")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.statusCode)
			m.requestsTotal.WithLabelValues(r.Method, status).Inc()
			m.requestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsHandler returns the Prometheus scrape handler.
// Endpoint: GET /metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// CacheMetrics holds cache-specific metrics, labeled by cache name
// (tenant, page).
type CacheMetrics struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
}

// NewCacheMetrics creates cache metrics.
func NewCacheMetrics(namespace string) *CacheMetrics {
	return &CacheMetrics{
		Hits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		Misses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
	}
}

// PoolStatsCollector exports pgxpool connection statistics.
type PoolStatsCollector struct {
	pool *pgxpool.Pool

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for the given pool and
// registers it with the default registry.
func NewPoolStatsCollector(namespace string, pool *pgxpool.Pool) *PoolStatsCollector {
	c := &PoolStatsCollector{
		pool: pool,
		acquired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "database", "pool_acquired_connections"),
			"Connections currently checked out of the pool", nil, nil),
		idle: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "database", "pool_idle_connections"),
			"Idle connections in the pool", nil, nil),
		total: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "database", "pool_total_connections"),
			"Total connections held by the pool", nil, nil),
		max: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "database", "pool_max_connections"),
			"Configured pool size ceiling", nil, nil),
	}
	prometheus.MustRegister(c)
	return c
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(stat.MaxConns()))
}
