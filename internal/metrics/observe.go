package metrics

import (
	"context"
	"time"

	"eventcoder/internal/classify"
)

// Row dispositions.
const (
	RowWritten = "written"
	RowFailed  = "failed"
	RowSkipped = "skipped"
	RowEmpty   = "empty"
)

// Observer returns a classify.Observer that counts calls for task.
func (r *Recorder) Observer(task string) classify.Observer {
	return func(_ context.Context, res classify.Result) {
		if r == nil {
			return
		}
		outcome := "ok"
		if !res.OK() {
			outcome = "failed"
		}
		r.CallsTotal.WithLabelValues(task, res.Call, outcome).Inc()
		r.CallAttempts.WithLabelValues(task, res.Call).Add(float64(res.Attempts))
		r.CallLatency.WithLabelValues(task, res.Call).Observe(res.Duration.Seconds())
	}
}

// Row counts one input row.
func (r *Recorder) Row(task, disposition string) {
	if r == nil {
		return
	}
	r.RowsTotal.WithLabelValues(task, disposition).Inc()
}

// Records counts appended output records.
func (r *Recorder) Records(task string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RecordsWritten.WithLabelValues(task).Add(float64(n))
}

// Finished stamps the completion time of a run.
func (r *Recorder) Finished(task, status string, at time.Time) {
	if r == nil {
		return
	}
	r.LastRunTimestamp.WithLabelValues(task, status).Set(float64(at.Unix()))
}
