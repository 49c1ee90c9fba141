// Package metrics exposes the client's operational counters through a
// Prometheus registry served by the local status server.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal   *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	requestLatency *prometheus.HistogramVec

	jobsStarted  prometheus.Counter
	jobsFinished *prometheus.CounterVec
	pollTicks    prometheus.Counter
	pollRetries  prometheus.Counter
	activePolls  prometheus.Gauge

	exportsTotal *prometheus.CounterVec
	watchPickups prometheus.Counter
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrdesk_uploads_total",
			Help: "Uploads attempted, by outcome",
		}, []string{"outcome"}),
		uploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "ocrdesk_upload_bytes_total",
			Help: "Bytes uploaded successfully",
		}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ocrdesk_request_duration_seconds",
			Help:    "Backend request latency by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		jobsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ocrdesk_jobs_started_total",
			Help: "OCR jobs started",
		}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrdesk_jobs_finished_total",
			Help: "OCR jobs finished, by terminal status",
		}, []string{"status"}),
		pollTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ocrdesk_poll_ticks_total",
			Help: "Status poll requests issued",
		}),
		pollRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "ocrdesk_poll_transport_retries_total",
			Help: "Poll ticks retried after a transport failure",
		}),
		activePolls: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ocrdesk_active_polls",
			Help: "Polling loops currently running",
		}),

		exportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ocrdesk_exports_total",
			Help: "Result exports, by format",
		}, []string{"format"}),
		watchPickups: factory.NewCounter(prometheus.CounterOpts{
			Name: "ocrdesk_watch_pickups_total",
			Help: "Files picked up from the hot folder",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "ocrdesk_result_cache_hits_total",
			Help: "Result cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "ocrdesk_result_cache_misses_total",
			Help: "Result cache misses",
		}),
	}
}

// Registry returns the registry backing the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordUpload(success bool, bytes int64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if success && bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) RecordJobStarted() {
	m.jobsStarted.Inc()
}

func (m *Metrics) RecordJobFinished(status string) {
	m.jobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordPollTick() {
	m.pollTicks.Inc()
}

func (m *Metrics) RecordPollRetry() {
	m.pollRetries.Inc()
}

func (m *Metrics) PollStarted() {
	m.activePolls.Inc()
}

func (m *Metrics) PollFinished() {
	m.activePolls.Dec()
}

func (m *Metrics) RecordExport(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

func (m *Metrics) RecordWatchPickup() {
	m.watchPickups.Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

func RecordUpload(success bool, bytes int64) {
	Default().RecordUpload(success, bytes)
}

func RecordRequestDuration(operation string, d time.Duration) {
	Default().RecordRequestDuration(operation, d)
}

func RecordJobStarted() {
	Default().RecordJobStarted()
}

func RecordJobFinished(status string) {
	Default().RecordJobFinished(status)
}

func RecordPollTick() {
	Default().RecordPollTick()
}

func RecordPollRetry() {
	Default().RecordPollRetry()
}

func RecordExport(format string) {
	Default().RecordExport(format)
}

func RecordWatchPickup() {
	Default().RecordWatchPickup()
}

func RecordCacheHit() {
	Default().RecordCacheHit()
}

func RecordCacheMiss() {
	Default().RecordCacheMiss()
}
