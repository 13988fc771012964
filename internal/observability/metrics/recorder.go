package metrics

// Recorder records pipeline operations. Components depend on this instead of
// concrete collectors so tests can substitute their own.
type Recorder interface {
	// RecordOperation counts an operation with its status.
	RecordOperation(operation, status string)

	// RecordDuration records how long an operation took, in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError counts a failed operation by error category.
	RecordError(operation, errorType string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}

var _ Recorder = NopRecorder{}
