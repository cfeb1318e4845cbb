// Package metrics provides Prometheus collection of scan statistics.
//
// Metrics are optional: NewScanMetrics returns nil for a nil registry and the
// tree then records nothing. A finished run can be persisted in the
// node_exporter textfile format with WriteTextfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/temirov/dirstat/internal/dirtree"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// scanMetrics is the Prometheus implementation of dirtree.ScanMetrics.
type scanMetrics struct {
	directoriesRead *prometheus.CounterVec
	readDuration    prometheus.Histogram
	entriesAdded    *prometheus.CounterVec
	subtreesDeleted prometheus.Counter
	childErrors     prometheus.Counter
	cacheRecords    *prometheus.CounterVec
	queueLength     prometheus.Gauge
}

// NewRegistry returns an empty registry for one dirstat run.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// NewScanMetrics registers the scan collectors on registry.
//
// Returns nil when registry is nil, which dirtree treats as disabled.
func NewScanMetrics(registry *prometheus.Registry) dirtree.ScanMetrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &scanMetrics{
		directoriesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirstat_directories_read_total",
				Help: "Total number of directory listings by outcome",
			},
			[]string{"status"},
		),
		readDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name: "dirstat_directory_read_duration_milliseconds",
				Help: "Duration of single directory listings in milliseconds",
				Buckets: []float64{
					0.1,  // 100us
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
		),
		entriesAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirstat_entries_added_total",
				Help: "Total number of entries inserted into the tree by kind",
			},
			[]string{"kind"},
		),
		subtreesDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dirstat_subtrees_deleted_total",
				Help: "Total number of subtrees removed from the tree",
			},
		),
		childErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dirstat_child_stat_errors_total",
				Help: "Total number of directory entries that could not be stat'ed",
			},
		),
		cacheRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirstat_cache_records_total",
				Help: "Total number of cache records decoded by outcome",
			},
			[]string{"status"},
		),
		queueLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dirstat_job_queue_length",
				Help: "Current number of queued read jobs",
			},
		),
	}
}

func statusOf(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

func (m *scanMetrics) RecordDirectoryRead(duration time.Duration, err error) {
	m.directoriesRead.WithLabelValues(statusOf(err)).Inc()
	m.readDuration.Observe(float64(duration.Microseconds()) / 1000)
}

func (m *scanMetrics) RecordEntryAdded(kind dirtree.Kind) {
	m.entriesAdded.WithLabelValues(kind.String()).Inc()
}

func (m *scanMetrics) RecordSubtreeDeleted() {
	m.subtreesDeleted.Inc()
}

func (m *scanMetrics) RecordChildError() {
	m.childErrors.Inc()
}

func (m *scanMetrics) RecordCacheRecord(err error) {
	m.cacheRecords.WithLabelValues(statusOf(err)).Inc()
}

func (m *scanMetrics) SetQueueLength(length int) {
	m.queueLength.Set(float64(length))
}

// WriteTextfile writes every metric of registry to path in the Prometheus
// text exposition format. The file is replaced atomically.
func WriteTextfile(path string, registry *prometheus.Registry) error {
	return prometheus.WriteToTextfile(path, registry)
}
