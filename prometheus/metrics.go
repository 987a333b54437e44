package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Tenant resolution outcomes
	ResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_tenant_resolutions_total",
			Help: "Total number of tenant resolution attempts by outcome",
		},
		[]string{"outcome"}, // "ok", "missing_key", "not_found", "directory_error", "handle_error"
	)

	// Provisioning step outcomes
	ProvisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_provision_steps_total",
			Help: "Total number of provisioning steps by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_tenant_operations_total",
			Help: "Total number of administrative tenant operations",
		},
		[]string{"operation"}, // "provision", "list", "activate", "deactivate", "delete"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "tenant_inactive", ...
	)

	// Sale counter
	SaleCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_sales_total",
			Help: "Total number of completed sales",
		},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)

	// Provisioning duration
	ProvisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pos_provision_duration_seconds",
			Help:    "Duration of full tenant provisioning runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

// Gauge metrics
var (
	// Cached tenant database handles
	CachedHandlesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_cached_tenant_handles",
			Help: "Number of live tenant database handles held by the connection cache",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pos_info",
			Help: "Information about the POS service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(ResolutionCounter)
	prometheus.MustRegister(ProvisionCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(SaleCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(ProvisionDuration)

	// Register gauges
	prometheus.MustRegister(CachedHandlesGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordResolution records a tenant resolution attempt by outcome
func RecordResolution(outcome string) {
	ResolutionCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordProvisionStep records a provisioning step outcome
func RecordProvisionStep(step, outcome string) {
	ProvisionCounter.With(prometheus.Labels{"step": step, "outcome": outcome}).Inc()
}

// RecordTenantOperation records an administrative tenant operation
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// SetCachedHandles updates the cached tenant handle gauge
func SetCachedHandles(n int) {
	CachedHandlesGauge.Set(float64(n))
}
