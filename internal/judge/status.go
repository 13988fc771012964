// Package judge combines face and audio evidence, asks a hosted language
// model for the baby's state and decides whether a caregiver is needed.
package judge

import (
	"regexp"
	"strings"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/face"
)

// Status is the state reported by the model.
type Status string

const (
	StatusSleeping      Status = "sleeping"
	StatusCrying        Status = "crying"
	StatusHappy         Status = "happy"
	StatusUncomfortable Status = "uncomfortable"
	StatusHungry        Status = "hungry"
	StatusCalm          Status = "calm"
	StatusUnknown       Status = "unknown"
)

// Statuses lists the states offered to the model, in prompt order.
var Statuses = []Status{
	StatusSleeping, StatusCrying, StatusHappy, StatusUncomfortable, StatusHungry, StatusCalm,
}

// ParseStatus maps a label to a Status, returning StatusUnknown for anything else.
func ParseStatus(label string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(label)))
	for _, known := range Statuses {
		if s == known {
			return s
		}
	}
	return StatusUnknown
}

// Alarming reports whether the status alone warrants attention.
func (s Status) Alarming() bool {
	return s == StatusCrying || s == StatusUncomfortable || s == StatusHungry
}

var (
	statusTag   = regexp.MustCompile(`(?is)<STATUS>\s*(.*?)\s*</STATUS>`)
	analysisTag = regexp.MustCompile(`(?is)<ANALYSIS>\s*(.*?)\s*</ANALYSIS>`)
)

// ParseCompletion extracts the status and the explanation from model output.
// Without an ANALYSIS block the text outside the STATUS tag is used.
func ParseCompletion(text string) (status Status, analysis string) {
	status = StatusUnknown
	if m := statusTag.FindStringSubmatch(text); m != nil {
		status = ParseStatus(m[1])
	}

	// The explanation is prose and is kept verbatim: it may contain '<', '&'
	// and line breaks.
	if m := analysisTag.FindStringSubmatch(text); m != nil {
		return status, strings.TrimSpace(m[1])
	}
	return status, strings.TrimSpace(statusTag.ReplaceAllString(text, ""))
}

// NeedsAttention applies the caregiver alert rules.
func NeedsAttention(status Status, fa face.Analysis, audio audioanalysis.AudioClassification) bool {
	switch {
	case status.Alarming():
		return true
	case audio.HasCrying && audio.Intensity > 0.6:
		return true
	case fa.HasEmotion("SAD") && audio.Intensity > 0.4:
		return true
	case fa.HasEmotion("ANGRY") && audio.Intensity > 0.3:
		return true
	}
	return false
}
