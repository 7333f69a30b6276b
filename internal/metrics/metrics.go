package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the counters for one process. Each Recorder owns its
// registry so tests and repeated runs never collide on the default one.
type Recorder struct {
	registry *prometheus.Registry

	// CallsTotal counts classification calls per task, call, and outcome.
	CallsTotal *prometheus.CounterVec
	// CallAttempts counts provider requests including retries.
	CallAttempts *prometheus.CounterVec
	// CallLatency tracks end-to-end call time, retries included.
	CallLatency *prometheus.HistogramVec
	// RowsTotal counts rows per task and disposition.
	RowsTotal *prometheus.CounterVec
	// RecordsWritten counts output records appended.
	RecordsWritten *prometheus.CounterVec
	// LastRunTimestamp records when a task last finished.
	LastRunTimestamp *prometheus.GaugeVec
}

// New builds a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventcoder_calls_total",
				Help: "Total number of classification calls",
			},
			[]string{"task", "call", "outcome"},
		),
		CallAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventcoder_call_attempts_total",
				Help: "Total number of completion requests, retries included",
			},
			[]string{"task", "call"},
		),
		CallLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eventcoder_call_duration_seconds",
				Help:    "Classification call latency in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
			},
			[]string{"task", "call"},
		),
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventcoder_rows_total",
				Help: "Total number of input rows by disposition",
			},
			[]string{"task", "disposition"},
		),
		RecordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventcoder_records_written_total",
				Help: "Total number of output records appended",
			},
			[]string{"task"},
		),
		LastRunTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventcoder_last_run_timestamp_seconds",
				Help: "Unix time the task last finished",
			},
			[]string{"task", "status"},
		),
	}
}

// Registry exposes the underlying gatherer.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes the current values in the node_exporter textfile
// format. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
