// Package metrics provides Prometheus metrics for the scoreboard renderer.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace   string
	constLabels map[string]string
	registry    prometheus.Registerer

	// Rendering
	renders       *prometheus.CounterVec
	renderLatency *prometheus.HistogramVec

	// Resources
	resourcesDecoded *prometheus.CounterVec
	decodeErrors     prometheus.Counter
	liveHandles      prometheus.Gauge

	// Host connection
	hostCalls       *prometheus.CounterVec
	hostCallLatency *prometheus.HistogramVec

	// Scoreboard lifecycle
	scoreboardInstalls *prometheus.CounterVec
	pickerCommits      *prometheus.CounterVec
	queueSize          prometheus.Gauge
	queueRejected      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

const subsystem = "b30"

// renderBuckets are the render latency buckets in milliseconds.
var renderBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // constant table

// active is the manager the package-level recorders write to, together with
// the registry it is registered on.
type active struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[active] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry and returns that registry. Call it before serving; collectors of
// the previous manager stop being exported.
func Configure(opts ...Option) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	current.Store(&active{manager: m, registry: registry})
	return registry
}

func global() *Manager { return current.Load().manager }

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:   "aol",
		constLabels: make(map[string]string),
		registry:    prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.renders = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "renders_total",
		Help: "Scoreboard renders by output format and status",
	}, []string{"format", "status"})

	m.renderLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name:    "render_latency_milliseconds",
		Help:    "Scoreboard render latency in milliseconds",
		Buckets: renderBuckets,
	}, []string{"format"})

	m.resourcesDecoded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "resources_decoded_total",
		Help: "Resources turned into detailed resources, by type",
	}, []string{"type"})

	m.decodeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "decode_errors_total",
		Help: "Payloads that failed to decode",
	})

	m.liveHandles = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "live_handles",
		Help: "Ephemeral resource handles currently registered",
	})

	m.hostCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "host_calls_total",
		Help: "Host API calls by method and status",
	}, []string{"method", "status"})

	m.hostCallLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name:    "host_call_latency_milliseconds",
		Help:    "Host API call latency in milliseconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	m.scoreboardInstalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "scoreboard_installs_total",
		Help: "Scoreboard responses processed, by status",
	}, []string{"status"})

	m.pickerCommits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "picker_commits_total",
		Help: "Preference commits by slot",
	}, []string{"slot"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "notification_queue_size",
		Help: "Host notifications waiting to be handled",
	})

	m.queueRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "notification_queue_rejected_total",
		Help: "Host notifications dropped because the queue was full or closed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "errors_by_endpoint_total",
		Help: "Total number of errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "system_memory_usage_bytes",
		Help: "Heap memory in use, in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, ConstLabels: labels,
		Name: "system_goroutine_count",
		Help: "Number of goroutines",
	})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRender counts a render and observes its latency.
func RecordRender(format string, latency time.Duration, err error) {
	global().renders.WithLabelValues(format, status(err)).Inc()
	global().renderLatency.WithLabelValues(format).Observe(float64(latency.Milliseconds()))
}

// RecordResourceDecoded counts a successfully detailed resource.
func RecordResourceDecoded(kind string) {
	global().resourcesDecoded.WithLabelValues(kind).Inc()
}

// RecordDecodeError counts a payload that failed to decode.
func RecordDecodeError() {
	global().decodeErrors.Inc()
}

// UpdateLiveHandles sets the number of registered ephemeral handles.
func UpdateLiveHandles(n int) {
	global().liveHandles.Set(float64(n))
}

// RecordHostCall counts a host API call and observes its latency.
func RecordHostCall(method string, latency time.Duration, err error) {
	global().hostCalls.WithLabelValues(method, status(err)).Inc()
	global().hostCallLatency.WithLabelValues(method).Observe(float64(latency.Milliseconds()))
}

// RecordScoreboardInstall counts a processed scoreboard response.
func RecordScoreboardInstall(err error) {
	global().scoreboardInstalls.WithLabelValues(status(err)).Inc()
}

// RecordPickerCommit counts a preference commit for a slot.
func RecordPickerCommit(slot string) {
	global().pickerCommits.WithLabelValues(slot).Inc()
}

// UpdateQueueSize sets the notification queue length.
func UpdateQueueSize(size int) {
	global().queueSize.Set(float64(size))
}

// RecordQueueRejected counts a dropped notification.
func RecordQueueRejected() {
	global().queueRejected.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	global().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	global().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	global().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	global().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	global().systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry of the global manager.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}
