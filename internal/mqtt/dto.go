package mqtt

import (
	"time"

	"github.com/jingnanl/infant-guard/internal/judge"
)

// VerdictDTO is the payload published to <topic>/analysis.
//
// Field names are part of the MQTT contract consumed by home automation.
type VerdictDTO struct {
	Node           string   `json:"node"`
	Status         string   `json:"status"`
	Analysis       string   `json:"analysis"`
	NeedsAttention bool     `json:"needsAttention"`
	HasCrying      bool     `json:"hasCrying"`
	HasLaughter    bool     `json:"hasLaughter"`
	Intensity      float64  `json:"intensity"`
	Duration       float64  `json:"duration"`
	FaceDetected   bool     `json:"faceDetected"`
	Emotions       []string `json:"emotions"`
	ImageKey       string   `json:"imageKey,omitempty"`
	AudioKey       string   `json:"audioKey,omitempty"`
	Timestamp      string   `json:"timestamp"` // RFC3339
}

// AttentionDTO is the payload published to <topic>/attention.
type AttentionDTO struct {
	Node      string  `json:"node"`
	Status    string  `json:"status"`
	Analysis  string  `json:"analysis"`
	Intensity float64 `json:"intensity"`
	ImageKey  string  `json:"imageKey,omitempty"`
	Timestamp string  `json:"timestamp"`
}

func timestampOf(v *judge.Verdict) string {
	ts := v.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.Format(time.RFC3339)
}

// NewVerdictDTO converts a verdict for publishing.
func NewVerdictDTO(node string, v *judge.Verdict) *VerdictDTO {
	emotions := v.Face.Emotions
	if emotions == nil {
		emotions = []string{}
	}
	return &VerdictDTO{
		Node:           node,
		Status:         string(v.Status),
		Analysis:       v.Analysis,
		NeedsAttention: v.NeedsAttention,
		HasCrying:      v.Audio.HasCrying,
		HasLaughter:    v.Audio.HasLaughter,
		Intensity:      v.Audio.Intensity,
		Duration:       v.Audio.Duration,
		FaceDetected:   v.Face.Detected,
		Emotions:       emotions,
		ImageKey:       v.ImageKey,
		AudioKey:       v.AudioKey,
		Timestamp:      timestampOf(v),
	}
}

// NewAttentionDTO converts a verdict into an attention event.
func NewAttentionDTO(node string, v *judge.Verdict) *AttentionDTO {
	return &AttentionDTO{
		Node:      node,
		Status:    string(v.Status),
		Analysis:  v.Analysis,
		Intensity: v.Audio.Intensity,
		ImageKey:  v.ImageKey,
		Timestamp: timestampOf(v),
	}
}
