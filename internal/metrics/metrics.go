// Package metrics records operational metrics for herbot pipelines.
//
// Components depend on *Recorder, which forwards to a pluggable Backend
// (Prometheus Pushgateway, Datadog, or the default no-op). A nil *Recorder is
// valid and records nothing, so metrics are always safe to call.
package metrics

import "time"

// Metric names understood by the backends.
const (
	StepTotal       = "herbot_step_total"
	StepDuration    = "herbot_step_duration_seconds"
	RowsTotal       = "herbot_rows_total"
	BatchesTotal    = "herbot_batches_total"
	MergeRowsTotal  = "herbot_merge_rows_total"
	WarningsTotal   = "herbot_warnings_total"
	defaultJobLabel = "herbot"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

// Nop returns a backend that discards everything.
func Nop() Backend { return nopBackend{} }

// Recorder stamps every metric with the job name and forwards it.
type Recorder struct {
	backend Backend
	job     string
}

// New returns a Recorder for job. A nil backend records nothing.
func New(job string, b Backend) *Recorder {
	if b == nil {
		b = nopBackend{}
	}
	if job == "" {
		job = defaultJobLabel
	}
	return &Recorder{backend: b, job: job}
}

func (r *Recorder) ok() bool { return r != nil && r.backend != nil }

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	if !r.ok() {
		return nil
	}
	return r.backend.Flush()
}

// Step records latency and outcome of one pipeline step.
func (r *Recorder) Step(step string, err error, d time.Duration) {
	if !r.ok() {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": r.job, "step": step, "status": status}
	r.backend.IncCounter(StepTotal, 1, lbls)
	r.backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// Rows increments a row counter. Typical kinds are "loaded", "bad_width",
// "dropped_empty", "written" and "duplicates".
func (r *Recorder) Rows(kind string, delta int64) {
	if !r.ok() || delta <= 0 {
		return
	}
	r.backend.IncCounter(RowsTotal, float64(delta), Labels{"job": r.job, "kind": kind})
}

// Batches counts bulk insert batches flushed to a database.
func (r *Recorder) Batches(delta int64) {
	if !r.ok() || delta <= 0 {
		return
	}
	r.backend.IncCounter(BatchesTotal, float64(delta), Labels{"job": r.job})
}

// Merge records the provenance counts of one join.
func (r *Recorder) Merge(join string, counts map[string]int) {
	if !r.ok() {
		return
	}
	for indicator, n := range counts {
		if n <= 0 {
			continue
		}
		r.backend.IncCounter(MergeRowsTotal, float64(n), Labels{
			"job": r.job, "join": join, "indicator": indicator,
		})
	}
}

// Warning counts a data warning of the given kind.
func (r *Recorder) Warning(kind string) {
	if !r.ok() {
		return
	}
	r.backend.IncCounter(WarningsTotal, 1, Labels{"job": r.job, "kind": kind})
}
