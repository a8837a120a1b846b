// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from QC ingestion runs.
//
// Callers record through package-level helpers that forward to a global,
// pluggable Backend. The default backend is a no-op, so instrumentation is
// always safe to call even when no metrics system is configured. Concrete
// systems live in subpackages (prompush, datadog).
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal           = "qc_step_total"
	StepDurationSeconds = "qc_step_duration_seconds"
	RecordsTotal        = "qc_records_total"
	FilesTotal          = "qc_files_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one run step
// ("list", "build", "store", "run").
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status(err),
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the record counter for a platform. Kinds mirror the
// run summary: "built", "inserted", "duplicate", "skipped", "failed".
func RecordRows(job, platform, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":      job,
		"platform": platform,
		"kind":     kind,
	})
}

// RecordFile counts one processed file, partitioned by outcome.
func RecordFile(job, platform string, err error) {
	backend.IncCounter(FilesTotal, 1, Labels{
		"job":      job,
		"platform": platform,
		"status":   status(err),
	})
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
