package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "treeline").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "treeline",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for Treeline.
type metrics struct {
	rendersTotal    *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	renderErrors    *prometheus.CounterVec
	recoveriesTotal *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	payloadRows     prometheus.Counter
	postponesTotal  prometheus.Counter
	resumesTotal    prometheus.Counter
	inFlight        prometheus.Gauge
	exportedPages   prometheus.Counter
	exportBytes     prometheus.Histogram
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of render passes by path, kind, and status",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "kind", "status"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Render pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"path", "kind"}),

		renderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_errors_total",
			Help:        "Total number of render errors by path and error type",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "error_type"}),

		recoveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recoveries_total",
			Help:        "Total number of error recovery passes by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_total",
			Help:        "Total number of dispatched actions by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		payloadRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "payload_rows_total",
			Help:        "Total number of tree payload rows written to clients",
			ConstLabels: config.ConstLabels,
		}),

		postponesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "postpones_total",
			Help:        "Total number of prerender passes that postponed dynamic holes",
			ConstLabels: config.ConstLabels,
		}),

		resumesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resumes_total",
			Help:        "Total number of postponed renders resumed against a live request",
			ConstLabels: config.ConstLabels,
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "in_flight_requests",
			Help:        "Number of requests currently being rendered",
			ConstLabels: config.ConstLabels,
		}),

		exportedPages: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "exported_pages_total",
			Help:        "Total number of pages written during static export",
			ConstLabels: config.ConstLabels,
		}),

		exportBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "export_page_bytes",
			Help:        "Size of exported page documents in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1024, 10240, 102400, 1048576, 10485760}, // 1KB to 10MB
		}),
	}
}

// statusWriter captures the response status and content type so the
// middleware can label metrics after the handler runs. Flush is forwarded
// because document renders stream their output.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// Treeline render requests.
//
// Metrics collected:
//   - treeline_renders_total: Counter of render passes by path, kind, and status
//   - treeline_render_duration_seconds: Histogram of render duration
//   - treeline_render_errors_total: Counter of render errors by path and error type
//   - treeline_recoveries_total: Counter of recovery passes (via RecordRecovery)
//   - treeline_actions_total: Counter of action dispatches (via RecordAction)
//   - treeline_payload_rows_total: Counter of payload rows (via RecordPayloadRows)
//   - treeline_postpones_total: Counter of postponed prerenders (via RecordPostpone)
//   - treeline_resumes_total: Counter of resumed renders (via RecordResume)
//   - treeline_in_flight_requests: Gauge of requests currently rendering
//   - treeline_exported_pages_total: Counter of exported pages (via RecordExport)
//   - treeline_export_page_bytes: Histogram of exported page sizes
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) func(http.Handler) http.Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "" {
				path = "/"
			}

			sw := &statusWriter{ResponseWriter: w}
			m.inFlight.Inc()
			start := time.Now()

			next.ServeHTTP(sw, r)

			duration := time.Since(start).Seconds()
			m.inFlight.Dec()

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			kind := responseKind(r, sw, status)

			m.renderDuration.WithLabelValues(path, kind).Observe(duration)
			m.rendersTotal.WithLabelValues(path, kind, strconv.Itoa(status)).Inc()
			if status >= http.StatusInternalServerError {
				m.renderErrors.WithLabelValues(path, "internal").Inc()
			}
		})
	}
}

// responseKind classifies a finished response for metric labels. Navigation
// requests produce bare payloads, 3xx responses are redirects, mutating
// methods are action dispatches, and everything else is a document render.
func responseKind(r *http.Request, w *statusWriter, status int) string {
	if status >= 300 && status < 400 {
		return "redirect"
	}
	if ct := w.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/x-component") {
		return "payload"
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "document"
	default:
		return "action"
	}
}

// categorizeError returns a category for the error type.
// This prevents high-cardinality labels from error messages.
func categorizeError(err error) string {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "context canceled"):
		return "canceled"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "redirect"):
		return "redirect"
	case strings.Contains(errStr, "bailout"):
		return "bailout"
	case strings.Contains(errStr, "resume token"):
		return "resume_token"
	case strings.Contains(errStr, "validation"):
		return "validation"
	default:
		return "internal"
	}
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordRenderError records a render error under a low-cardinality category.
// Call this from orchestration code when a render pass fails.
func RecordRenderError(path string, err error) {
	if globalMetrics != nil && err != nil {
		globalMetrics.renderErrors.WithLabelValues(path, categorizeError(err)).Inc()
	}
}

// RecordRecovery records an error recovery pass.
// Kind is one of "not_found", "redirect", or "error".
func RecordRecovery(kind string) {
	if globalMetrics != nil {
		globalMetrics.recoveriesTotal.WithLabelValues(kind).Inc()
	}
}

// RecordAction records an action dispatch by outcome.
func RecordAction(outcome string) {
	if globalMetrics != nil {
		globalMetrics.actionsTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordPayloadRows records the number of payload rows written to a client.
func RecordPayloadRows(count int) {
	if globalMetrics != nil {
		globalMetrics.payloadRows.Add(float64(count))
	}
}

// RecordPostpone records a prerender pass that postponed dynamic holes.
func RecordPostpone() {
	if globalMetrics != nil {
		globalMetrics.postponesTotal.Inc()
	}
}

// RecordResume records a postponed render resumed against a live request.
func RecordResume() {
	if globalMetrics != nil {
		globalMetrics.resumesTotal.Inc()
	}
}

// RecordExport records a page written during static export.
func RecordExport(documentBytes int64) {
	if globalMetrics != nil {
		globalMetrics.exportedPages.Inc()
		globalMetrics.exportBytes.Observe(float64(documentBytes))
	}
}

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector exposes the metrics for use in custom registrations.
// This allows collecting Treeline metrics alongside other application metrics.
type Collector struct {
	rendersTotal    *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	renderErrors    *prometheus.CounterVec
	recoveriesTotal *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	payloadRows     prometheus.Counter
	postponesTotal  prometheus.Counter
	resumesTotal    prometheus.Counter
	inFlight        prometheus.Gauge
	exportedPages   prometheus.Counter
	exportBytes     prometheus.Histogram
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		rendersTotal:    globalMetrics.rendersTotal,
		renderDuration:  globalMetrics.renderDuration,
		renderErrors:    globalMetrics.renderErrors,
		recoveriesTotal: globalMetrics.recoveriesTotal,
		actionsTotal:    globalMetrics.actionsTotal,
		payloadRows:     globalMetrics.payloadRows,
		postponesTotal:  globalMetrics.postponesTotal,
		resumesTotal:    globalMetrics.resumesTotal,
		inFlight:        globalMetrics.inFlight,
		exportedPages:   globalMetrics.exportedPages,
		exportBytes:     globalMetrics.exportBytes,
	}
}
