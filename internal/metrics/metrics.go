package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	jobsTotal        *prometheus.CounterVec
	jobsActive       prometheus.Gauge
	stageDuration    *prometheus.HistogramVec
	stageFailures    *prometheus.CounterVec
	dispatchTotal    *prometheus.CounterVec
	uploadBytesTotal prometheus.Counter
	uploadDuration   prometheus.Histogram
	diskFreeBytes    prometheus.Gauge
}

// New creates a new metrics instance
func New() *Metrics {
	m := &Metrics{
		jobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_jobs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"status"},
		),
		jobsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_jobs_active",
				Help: "Number of currently running pipeline jobs",
			},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1s to ~9 hours
			},
			[]string{"stage"},
		),
		stageFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stage_failures_total",
				Help: "Total number of stage failures by stage",
			},
			[]string{"stage"},
		),
		dispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_dispatch_total",
				Help: "Total number of dispatched jobs by delivery mode",
			},
			[]string{"mode"},
		),
		uploadBytesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_upload_bytes_total",
				Help: "Total bytes uploaded to object storage",
			},
		),
		uploadDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_upload_duration_seconds",
				Help:    "Duration of upload operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~6 minutes
			},
		),
		diskFreeBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_disk_free_bytes",
				Help: "Free disk space under the worker's workspace root",
			},
		),
	}

	return m
}

// IncrementJobsTotal increments the jobs total counter
func (m *Metrics) IncrementJobsTotal(status string) {
	m.jobsTotal.WithLabelValues(status).Inc()
}

// IncrementJobsActive increments the active jobs gauge
func (m *Metrics) IncrementJobsActive() {
	m.jobsActive.Inc()
}

// DecrementJobsActive decrements the active jobs gauge
func (m *Metrics) DecrementJobsActive() {
	m.jobsActive.Dec()
}

// RecordStageDuration records the duration of a stage
func (m *Metrics) RecordStageDuration(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// IncrementStageFailures increments the stage failures counter
func (m *Metrics) IncrementStageFailures(stage string) {
	m.stageFailures.WithLabelValues(stage).Inc()
}

// IncrementDispatch counts a dispatched job by delivery mode ("queued" or "sync")
func (m *Metrics) IncrementDispatch(mode string) {
	m.dispatchTotal.WithLabelValues(mode).Inc()
}

// AddUploadBytes adds bytes to the upload total
func (m *Metrics) AddUploadBytes(bytes float64) {
	m.uploadBytesTotal.Add(bytes)
}

// RecordUploadDuration records the duration of an upload
func (m *Metrics) RecordUploadDuration(seconds float64) {
	m.uploadDuration.Observe(seconds)
}

// SetDiskFreeBytes sets the disk free bytes gauge
func (m *Metrics) SetDiskFreeBytes(bytes float64) {
	m.diskFreeBytes.Set(bytes)
}
