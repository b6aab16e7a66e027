// Package metrics provides Prometheus metrics for the cpboard leaderboard pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by cpboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Pipeline runs
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	studentsScored *prometheus.GaugeVec

	// Contest ingestion
	filesIngested   *prometheus.CounterVec
	filesSkipped    *prometheus.CounterVec
	rowsDropped     *prometheus.CounterVec
	malformedScores *prometheus.CounterVec

	// Scraper collaborators
	scrapeLookups  *prometheus.CounterVec
	scrapeLatency  *prometheus.HistogramVec
	platformAbsent *prometheus.CounterVec

	// Persistence
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Run queue
	queueSize    prometheus.Gauge
	runsDeduped  prometheus.Counter
	workerActive prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        "cpboard",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runsTotal = m.counterVec("runs_total", "Pipeline runs by cohort, mode and outcome", "cohort", "mode", "outcome")
	m.runDuration = m.histogramVec("run_duration_milliseconds", "Pipeline run duration in milliseconds", "cohort", "mode")
	m.studentsScored = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "students_scored", Help: "Students scored by the last run of a cohort",
	}, []string{"cohort"})

	m.filesIngested = m.counterVec("contest_files_ingested_total", "Contest files ingested", "tier")
	m.filesSkipped = m.counterVec("contest_files_skipped_total", "Contest files skipped", "tier", "reason")
	m.rowsDropped = m.counterVec("contest_rows_dropped_total", "Contest rows dropped for a missing identifier", "tier")
	m.malformedScores = m.counterVec("contest_malformed_scores_total", "Contest scores that could not be parsed and were treated as zero", "tier")

	m.scrapeLookups = m.counterVec("scrape_lookups_total", "Per-handle scrape lookups by platform and outcome", "platform", "outcome")
	m.scrapeLatency = m.histogramVec("scrape_latency_milliseconds", "Per-handle scrape latency", "platform")
	m.platformAbsent = m.counterVec("platform_absent_total", "Platforms treated as absent because the source was unreachable", "platform")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Persistence call latency", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Persistence call failures", "op")

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "run_queue_size", Help: "Run requests waiting in the queue",
	})
	m.runsDeduped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "run_requests_coalesced_total", Help: "Run requests coalesced into one already pending",
	})
	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "workers_busy", Help: "Workers currently executing a run",
	})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
}

// RecordRun counts a finished pipeline run and observes its duration.
func RecordRun(cohort, mode, outcome string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.runsTotal.WithLabelValues(cohort, mode, outcome).Inc()
	globalManager.runDuration.WithLabelValues(cohort, mode).Observe(durationMs)
}

// UpdateStudentsScored sets the number of students written by the last run.
func UpdateStudentsScored(cohort string, n int) {
	globalManager.studentsScored.WithLabelValues(cohort).Set(float64(n))
}

// RecordFileIngested counts a contest file that produced entries.
func RecordFileIngested(tier string) {
	globalManager.filesIngested.WithLabelValues(tier).Inc()
}

// RecordFileSkipped counts a contest file that was skipped.
func RecordFileSkipped(tier, reason string) {
	globalManager.filesSkipped.WithLabelValues(tier, reason).Inc()
}

// RecordRowsDropped adds rows dropped for an empty identifier.
func RecordRowsDropped(tier string, n int) {
	if n > 0 {
		globalManager.rowsDropped.WithLabelValues(tier).Add(float64(n))
	}
}

// RecordMalformedScores adds scores that defaulted to zero.
func RecordMalformedScores(tier string, n int) {
	if n > 0 {
		globalManager.malformedScores.WithLabelValues(tier).Add(float64(n))
	}
}

// RecordScrapeLookup counts one handle lookup and its latency.
func RecordScrapeLookup(platform, outcome string, latencyMs float64) {
	globalManager.scrapeLookups.WithLabelValues(platform, outcome).Inc()
	globalManager.scrapeLatency.WithLabelValues(platform).Observe(latencyMs)
}

// RecordPlatformAbsent counts a platform zero-filled after an unreachable source.
func RecordPlatformAbsent(platform string) {
	globalManager.platformAbsent.WithLabelValues(platform).Inc()
}

// RecordStoreCall observes a persistence call.
func RecordStoreCall(op string, latencyMs float64, err error) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(op).Inc()
	}
}

// UpdateQueueSize sets the run queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordRunCoalesced counts a run request merged into a pending one.
func RecordRunCoalesced() {
	globalManager.runsDeduped.Inc()
}

// UpdateWorkersBusy adjusts the busy worker gauge by delta.
func UpdateWorkersBusy(delta int) {
	globalManager.workerActive.Add(float64(delta))
}

// RecordHTTPRequest counts an HTTP request and observes its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
