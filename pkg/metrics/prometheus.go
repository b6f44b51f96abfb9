// Package metrics provides Prometheus metrics for the placerank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested *prometheus.CounterVec
	eventsDup      prometheus.Counter
	eventsRejected *prometheus.CounterVec

	// Ranking and recommendation
	rankingComputations *prometheus.CounterVec
	rankingLatency      *prometheus.HistogramVec
	rankingCache        *prometheus.CounterVec
	recommendations     *prometheus.CounterVec

	// Repository
	users  prometheus.Gauge
	places prometheus.Gauge
	events prometheus.Gauge

	// Queue and workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge
	workerErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go metrics out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "placerank",
		subsystem:        "recommender",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		customLabels:     map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(m.counterOpts("events_ingested_total",
		"Events appended to the event log by type"), []string{"type"})
	m.eventsDup = auto.NewCounter(m.counterOpts("events_duplicate_total",
		"Events dropped as duplicates"))
	m.eventsRejected = auto.NewCounterVec(m.counterOpts("events_rejected_total",
		"Events rejected before reaching the log by reason"), []string{"reason"})

	m.rankingComputations = auto.NewCounterVec(m.counterOpts("ranking_computations_total",
		"Core computations by kind (il, profile, similar)"), []string{"kind"})
	m.rankingLatency = auto.NewHistogramVec(m.histogramOpts("ranking_latency_milliseconds",
		"Core computation latency in milliseconds by kind"), []string{"kind"})
	m.rankingCache = auto.NewCounterVec(m.counterOpts("ranking_cache_total",
		"IL ranking cache lookups by result (hit, miss)"), []string{"result"})
	m.recommendations = auto.NewCounterVec(m.counterOpts("recommendations_total",
		"Recommendation lists served by strategy"), []string{"strategy"})

	m.users = auto.NewGauge(m.gaugeOpts("users", "Users in the roster"))
	m.places = auto.NewGauge(m.gaugeOpts("places", "Places in the roster"))
	m.events = auto.NewGauge(m.gaugeOpts("events", "Events in the log"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Events waiting in the ingestion queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Ingestion queue capacity"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Ingestion workers"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total",
		"Events the ingestion workers failed to append"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total",
		"Errors by component and type"), []string{"component", "error_type"})
}

// RecordEventIngested counts an event appended to the log.
func RecordEventIngested(eventType string) {
	globalManager.eventsIngested.WithLabelValues(eventType).Inc()
}

// RecordEventDuplicate counts a duplicate event.
func RecordEventDuplicate() {
	globalManager.eventsDup.Inc()
}

// RecordEventRejected counts an event rejected for reason.
func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

// RecordComputation records one core computation of kind and its latency.
func RecordComputation(kind string, latencyMs float64) {
	globalManager.rankingComputations.WithLabelValues(kind).Inc()
	globalManager.rankingLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordCacheHit counts an IL ranking cache hit.
func RecordCacheHit() {
	globalManager.rankingCache.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts an IL ranking cache miss.
func RecordCacheMiss() {
	globalManager.rankingCache.WithLabelValues("miss").Inc()
}

// RecordRecommendation counts a recommendation list served with strategy.
func RecordRecommendation(strategy string) {
	globalManager.recommendations.WithLabelValues(strategy).Inc()
}

// UpdateRosterSizes sets the roster and log gauges.
func UpdateRosterSizes(users, places, events int) {
	globalManager.users.Set(float64(users))
	globalManager.places.Set(float64(places))
	globalManager.events.Set(float64(events))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError counts a failed append.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError counts an error of errorType in component.
func RecordError(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
