package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig holds configuration for Prometheus metrics middleware
type MetricsConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Namespace for metrics (e.g., "taskboard")
	Namespace string

	// Subsystem for metrics (e.g., "http")
	Subsystem string

	// Buckets for response time histogram
	Buckets []float64

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// SkipPaths defines paths that should not be metered
	SkipPaths []string
}

// Metrics holds Prometheus metric collectors
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec
}

// DefaultMetricsConfig returns a default metrics configuration
func DefaultMetricsConfig(namespace string) *MetricsConfig {
	return &MetricsConfig{
		Namespace: namespace,
		Subsystem: "http",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		SkipPaths: []string{"/metrics", "/health/live", "/health/ready"},
	}
}

// NewMetrics creates and registers Prometheus metrics
func NewMetrics(config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultMetricsConfig("app")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initializing prometheus metrics",
		"namespace", config.Namespace,
		"subsystem", config.Subsystem,
	)

	return &Metrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   config.Buckets,
			},
			[]string{"method", "path", "status"},
		),
		requestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7), // 100B to 100MB
			},
			[]string{"method", "path"},
		),
		responseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path", "status"},
		),
		activeRequests: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "requests_active",
				Help:      "Number of active HTTP requests",
			},
			[]string{"method", "path"},
		),
	}
}

// Middleware returns a Prometheus metrics middleware
func (m *Metrics) Middleware(config *MetricsConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultMetricsConfig("app")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("metrics middleware initialized")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			path := r.URL.Path
			method := r.Method

			m.activeRequests.WithLabelValues(method, path).Inc()
			defer m.activeRequests.WithLabelValues(method, path).Dec()

			if r.ContentLength > 0 {
				m.requestSize.WithLabelValues(method, path).Observe(float64(r.ContentLength))
			}

			start := time.Now()
			rw := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			m.requestsTotal.WithLabelValues(method, path, status).Inc()
			m.requestDuration.WithLabelValues(method, path, status).Observe(duration)
			m.responseSize.WithLabelValues(method, path, status).Observe(float64(rw.bytesWritten))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// MetricsHandler returns a Prometheus metrics HTTP handler
/// Endpoint: GET /metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// SessionMetrics holds session cache metrics
type SessionMetrics struct {
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	Resolutions *prometheus.CounterVec
}

// NewSessionMetrics creates session resolution metrics
func NewSessionMetrics(namespace string) *SessionMetrics {
	return &SessionMetrics{
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "cache_hits_total",
				Help:      "Total number of session cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "cache_misses_total",
				Help:      "Total number of session cache misses",
			},
			[]string{"cache"},
		),
		Resolutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "resolutions_total",
				Help:      "Total number of bearer token resolutions",
			},
			[]string{"outcome"}, // hit, expired, unknown, error
		),
	}
}
