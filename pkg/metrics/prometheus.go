// Package metrics provides Prometheus metrics for the scorecard engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Matrix edits
	ratingsRecorded *prometheus.CounterVec
	bulkApplies     *prometheus.CounterVec
	undoRedo        *prometheus.CounterVec

	// Save path
	payloadItems     prometheus.Histogram
	diffOperations   *prometheus.CounterVec
	saves            *prometheus.CounterVec
	persistLatency   prometheus.Histogram
	activeSessions   prometheus.Gauge
	hydratedSkipped  prometheus.Counter
	coercionFailures prometheus.Counter

	// Catalog
	catalogFetches   *prometheus.CounterVec
	catalogCacheHits prometheus.Counter
	staleDiscarded   prometheus.Counter
	escalations      prometheus.Counter

	// Submission dispatch
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueRejected     *prometheus.CounterVec
	dispatcherWorkers prometheus.Gauge
	dispatchErrors    prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scorecard",
		subsystem:        "evaluation",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		// Collectors still exist so the helpers stay safe to call, but they
		// land on a registry nobody gathers.
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.ratingsRecorded = m.counterVec("ratings_recorded_total", "Ratings written to the matrix by entry path", "path")
	m.bulkApplies = m.counterVec("bulk_applies_total", "Bulk apply requests by outcome", "outcome")
	m.undoRedo = m.counterVec("history_steps_total", "Undo and redo steps taken", "direction")

	m.payloadItems = m.histogram("payload_items", "Items or operations per built payload",
		[]float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000})
	m.diffOperations = m.counterVec("diff_operations_total", "Diff operations emitted by type", "type")
	m.saves = m.counterVec("saves_total", "Save attempts by mode and outcome", "mode", "outcome")
	m.persistLatency = m.histogram("persist_latency_milliseconds", "Latency of persistence calls in milliseconds", m.histogramBuckets)
	m.activeSessions = m.gauge("active_sessions", "Editing sessions currently open")
	m.hydratedSkipped = m.counter("hydrate_skipped_items_total", "Loaded items dropped because their subskill is unknown")
	m.coercionFailures = m.counter("coercion_failures_total", "Ratings rejected because they are not finite numbers")

	m.catalogFetches = m.counterVec("catalog_fetches_total", "Subskill catalog fetches by outcome", "outcome")
	m.catalogCacheHits = m.counter("catalog_cache_hits_total", "Subskill catalog lookups served from cache")
	m.staleDiscarded = m.counter("stale_results_discarded_total", "Async results dropped because a newer request superseded them")
	m.escalations = m.counter("low_score_escalations_total", "Subskill dialogs opened by a low category rating")

	m.queueSize = m.gauge("submission_queue_size", "Submissions waiting for a dispatcher")
	m.queueCapacity = m.gauge("submission_queue_capacity", "Capacity of the submission queue")
	m.queueRejected = m.counterVec("submission_queue_rejected_total", "Submissions refused by the queue by reason", "reason")
	m.dispatcherWorkers = m.gauge("dispatcher_workers", "Dispatcher workers running")
	m.dispatchErrors = m.counter("dispatch_errors_total", "Submissions the store rejected")
}

// RecordRating counts a rating written through path (baseline, override, subskill, wizard, grid).
func RecordRating(path string) {
	globalManager.ratingsRecorded.WithLabelValues(path).Inc()
}

// RecordBulkApply counts a bulk apply request.
func RecordBulkApply(applied bool) {
	outcome := "applied"
	if !applied {
		outcome = "rejected"
	}
	globalManager.bulkApplies.WithLabelValues(outcome).Inc()
}

// RecordHistoryStep counts an undo or redo.
func RecordHistoryStep(direction string) {
	globalManager.undoRedo.WithLabelValues(direction).Inc()
}

// ObservePayloadSize records how many entries a built payload carries.
func ObservePayloadSize(n int) {
	globalManager.payloadItems.Observe(float64(n))
}

// RecordDiffOperation counts one emitted diff operation.
func RecordDiffOperation(opType string) {
	globalManager.diffOperations.WithLabelValues(opType).Inc()
}

// RecordSave counts a save attempt.
func RecordSave(mode, outcome string) {
	globalManager.saves.WithLabelValues(mode, outcome).Inc()
}

// RecordPersistLatency records a persistence call latency in milliseconds.
func RecordPersistLatency(latencyMs float64) {
	globalManager.persistLatency.Observe(latencyMs)
}

// SessionOpened increments the open session gauge.
func SessionOpened() {
	globalManager.activeSessions.Inc()
}

// SessionClosed decrements the open session gauge.
func SessionClosed() {
	globalManager.activeSessions.Dec()
}

// RecordHydrateSkipped counts loaded items that could not be placed.
func RecordHydrateSkipped(n int) {
	globalManager.hydratedSkipped.Add(float64(n))
}

// RecordCoercionFailure counts a non-finite rating.
func RecordCoercionFailure() {
	globalManager.coercionFailures.Inc()
}

// RecordCatalogFetch counts a subskill fetch against the provider.
func RecordCatalogFetch(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	globalManager.catalogFetches.WithLabelValues(outcome).Inc()
}

// RecordCatalogCacheHit counts a lookup served from cache.
func RecordCatalogCacheHit() {
	globalManager.catalogCacheHits.Inc()
}

// RecordStaleDiscarded counts a superseded async result.
func RecordStaleDiscarded() {
	globalManager.staleDiscarded.Inc()
}

// RecordEscalation counts a low-score escalation.
func RecordEscalation() {
	globalManager.escalations.Inc()
}

// UpdateQueueSize sets the current submission queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the submission queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected counts a refused submission.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateDispatcherWorkers sets the number of running dispatcher workers.
func UpdateDispatcherWorkers(count int) {
	globalManager.dispatcherWorkers.Set(float64(count))
}

// RecordDispatchError counts a submission the store rejected.
func RecordDispatchError() {
	globalManager.dispatchErrors.Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
