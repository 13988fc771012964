// Package metrics provides the Prometheus collectors for infant-guard.
package metrics

// Operation names recorded through Recorder.
const (
	OpCycle     = "cycle"
	OpRecord    = "record"
	OpAnalyze   = "analyze"
	OpUpload    = "upload"
	OpFace      = "face_detect"
	OpJudge     = "judge"
	OpSave      = "save"
	OpPublish   = "publish"
	OpNotify    = "notify"
	OpSnapshot  = "snapshot"
	OpRetention = "retention"
)

// Operation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Outcome labels for analyzed clips.
const (
	OutcomeCrying    = "crying"
	OutcomeLaughter  = "laughter"
	OutcomeQuiet     = "quiet"
	OutcomeAttention = "attention"
)
