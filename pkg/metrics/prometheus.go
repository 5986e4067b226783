// Package metrics provides Prometheus metrics for the skillswap discovery service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the skillswap service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Search metrics
	searchRequests   *prometheus.CounterVec
	searchLatency    *prometheus.HistogramVec
	searchResults    *prometheus.HistogramVec
	validationErrors *prometheus.CounterVec
	storeErrors      *prometheus.CounterVec

	// Insight metrics (trending, categories, suggestions, popular)
	insightRequests *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec

	// Catalog refresh pipeline
	listingEventsProcessed prometheus.Counter
	listingEventsDuplicate prometheus.Counter
	statsRefreshes         *prometheus.CounterVec
	statsRefreshLatency    prometheus.Histogram
	amqpDeliveries         *prometheus.CounterVec

	// Repository metrics
	catalogSize                       prometheus.Gauge
	memberCount                       prometheus.Gauge
	repositoryQueryLatency            *prometheus.HistogramVec
	repositoryUpdateLatency           *prometheus.HistogramVec
	repositorySnapshotRebuildDuration prometheus.Histogram
	repositorySnapshotCount           prometheus.Counter

	// Queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerCount             prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skillswap",
		subsystem:        "discovery",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
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

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every instrument
	auto := promauto.With(m.registry)
	countBuckets := prometheus.ExponentialBuckets(1, 4, 8)

	m.searchRequests = auto.NewCounterVec(
		m.counterOpts("search_requests_total", "Total number of search requests by sort mode"),
		[]string{"sort"},
	)
	m.searchLatency = auto.NewHistogramVec(
		m.histogramOpts("search_latency_milliseconds", "Search latency in milliseconds by stage", m.histogramBuckets),
		[]string{"stage"},
	)
	m.searchResults = auto.NewHistogramVec(
		m.histogramOpts("search_results", "Number of ranked results before pagination by channel", countBuckets),
		[]string{"channel"},
	)
	m.validationErrors = auto.NewCounterVec(
		m.counterOpts("validation_errors_total", "Rejected search filters by field"),
		[]string{"field"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Store read failures by search stage"),
		[]string{"stage"},
	)

	m.insightRequests = auto.NewCounterVec(
		m.counterOpts("insight_requests_total", "Trending, category, suggestion and popular requests"),
		[]string{"kind"},
	)
	m.cacheHits = auto.NewCounterVec(
		m.counterOpts("cache_hits_total", "Insight cache hits"),
		[]string{"kind"},
	)
	m.cacheMisses = auto.NewCounterVec(
		m.counterOpts("cache_misses_total", "Insight cache misses"),
		[]string{"kind"},
	)

	m.listingEventsProcessed = auto.NewCounter(
		m.counterOpts("listing_events_processed_total", "Listing events accepted for stats refresh"),
	)
	m.listingEventsDuplicate = auto.NewCounter(
		m.counterOpts("listing_events_duplicate_total", "Listing events dropped as duplicates"),
	)
	m.statsRefreshes = auto.NewCounterVec(
		m.counterOpts("stats_refreshes_total", "Catalog stats refreshes by outcome"),
		[]string{"outcome"},
	)
	m.statsRefreshLatency = auto.NewHistogram(
		m.histogramOpts("stats_refresh_latency_milliseconds", "Catalog stats refresh latency", m.histogramBuckets),
	)
	m.amqpDeliveries = auto.NewCounterVec(
		m.counterOpts("amqp_deliveries_total", "AMQP listing deliveries by outcome"),
		[]string{"outcome"},
	)

	m.catalogSize = auto.NewGauge(m.gaugeOpts("catalog_skills", "Number of skills in the catalog store"))
	m.memberCount = auto.NewGauge(m.gaugeOpts("members", "Number of members in the member store"))
	m.repositoryQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_query_latency_milliseconds", "Store read latency", m.histogramBuckets),
		[]string{"backend", "collection"},
	)
	m.repositoryUpdateLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_update_latency_milliseconds", "Store write latency", m.histogramBuckets),
		[]string{"backend", "collection"},
	)
	m.repositorySnapshotRebuildDuration = auto.NewHistogram(
		m.histogramOpts("repository_snapshot_rebuild_duration_milliseconds", "Time to publish a new in-memory snapshot", m.histogramBuckets),
	)
	m.repositorySnapshotCount = auto.NewCounter(
		m.counterOpts("repository_snapshots_total", "Number of in-memory snapshots published"),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the listing event queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum capacity of the listing event queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Events enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Events dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueue attempts"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_processing_latency_milliseconds", "Enqueue latency", m.histogramBuckets),
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of refresh workers"))
	m.workerMessagesPerSecond = auto.NewGauge(m.gaugeOpts("worker_messages_per_second", "Average refresh events processed per second"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Per-event worker latency", m.histogramBuckets),
	)
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker processing errors"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that failed", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Allocated heap bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause time", m.histogramBuckets),
	)
}

// Search Metrics Functions.

// RecordSearchRequest increments the search counter for a sort mode.
func RecordSearchRequest(sortBy string) {
	globalManager.searchRequests.WithLabelValues(sortBy).Inc()
}

// RecordSearchLatency records latency for a search stage ("catalog", "members", "total").
func RecordSearchLatency(stage string, latencyMs float64) {
	globalManager.searchLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordSearchResults records the pre-pagination size of a result channel.
func RecordSearchResults(channel string, count int) {
	globalManager.searchResults.WithLabelValues(channel).Observe(float64(count))
}

// RecordValidationError increments the validation error counter for a field.
func RecordValidationError(field string) {
	globalManager.validationErrors.WithLabelValues(field).Inc()
}

// RecordStoreError increments the store error counter for a stage.
func RecordStoreError(stage string) {
	globalManager.storeErrors.WithLabelValues(stage).Inc()
}

// Insight Metrics Functions.

// RecordInsightRequest increments the insight request counter.
func RecordInsightRequest(kind string) {
	globalManager.insightRequests.WithLabelValues(kind).Inc()
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit(kind string) {
	globalManager.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss(kind string) {
	globalManager.cacheMisses.WithLabelValues(kind).Inc()
}

// Refresh Pipeline Metrics Functions.

// RecordListingEventProcessed increments the accepted listing event counter.
func RecordListingEventProcessed() {
	globalManager.listingEventsProcessed.Inc()
}

// RecordListingEventDuplicate increments the duplicate listing event counter.
func RecordListingEventDuplicate() {
	globalManager.listingEventsDuplicate.Inc()
}

// RecordStatsRefresh records a stats refresh with its outcome ("updated", "skipped", "error").
func RecordStatsRefresh(outcome string, latencyMs float64) {
	globalManager.statsRefreshes.WithLabelValues(outcome).Inc()
	globalManager.statsRefreshLatency.Observe(latencyMs)
}

// RecordAMQPDelivery records an AMQP delivery outcome ("ack", "nack", "reject").
func RecordAMQPDelivery(outcome string) {
	globalManager.amqpDeliveries.WithLabelValues(outcome).Inc()
}

// Repository Metrics Functions.

// UpdateCatalogSize sets the number of catalog skills.
func UpdateCatalogSize(count int) {
	globalManager.catalogSize.Set(float64(count))
}

// UpdateMemberCount sets the number of members.
func UpdateMemberCount(count int) {
	globalManager.memberCount.Set(float64(count))
}

// RecordRepositoryQueryLatency records store read latency.
func RecordRepositoryQueryLatency(backend, collection string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(backend, collection).Observe(latencyMs)
}

// RecordRepositoryUpdateLatency records store write latency.
func RecordRepositoryUpdateLatency(backend, collection string, latencyMs float64) {
	globalManager.repositoryUpdateLatency.WithLabelValues(backend, collection).Observe(latencyMs)
}

// RecordRepositorySnapshotRebuildDuration records how long a snapshot publish took.
func RecordRepositorySnapshotRebuildDuration(ms float64) {
	globalManager.repositorySnapshotRebuildDuration.Observe(ms)
	globalManager.repositorySnapshotCount.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the average messages processed per second.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
