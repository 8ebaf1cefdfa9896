// Package metrics provides the Prometheus collectors of a batatlas run.
package metrics

// Recorder is the minimal metrics interface components depend on.
type Recorder interface {
	// RecordOperation counts an operation with its outcome, e.g.
	// ("stream", "success").
	RecordOperation(operation, status string)

	// RecordDuration observes how long an operation took.
	RecordDuration(operation string, seconds float64)

	// RecordError counts a failure of operation by error category.
	RecordError(operation, errorType string)
}

// NoOpRecorder discards everything. It stands in when metrics are disabled.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOperation(operation, status string)         {}
func (NoOpRecorder) RecordDuration(operation string, seconds float64) {}
func (NoOpRecorder) RecordError(operation, errorType string)          {}
