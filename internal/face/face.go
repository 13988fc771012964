// Package face detects the baby's face in a camera snapshot and summarises
// its expression for the judge.
package face

import (
	"context"

	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const componentName = "face"

// MaxEmotions is the number of dominant emotions kept per face.
const MaxEmotions = 2

// ErrNoImage is returned when an empty image is submitted for detection.
var ErrNoImage = errors.NewStd("no image data")

// Analysis summarises the first detected face.
type Analysis struct {
	Detected   bool     `json:"detected"`
	Emotions   []string `json:"emotions"`   // dominant emotion types, most confident first
	Confidence float64  `json:"confidence"` // confidence of the dominant emotion, 0-100
	EyesOpen   bool     `json:"eyesOpen"`
	MouthOpen  bool     `json:"mouthOpen"`
	IsSmiling  bool     `json:"isSmiling"`
}

// DominantEmotion returns the most confident emotion type or "".
func (a Analysis) DominantEmotion() string {
	if len(a.Emotions) == 0 {
		return ""
	}
	return a.Emotions[0]
}

// HasEmotion reports whether emotion is among the dominant emotions.
func (a Analysis) HasEmotion(emotion string) bool {
	for _, e := range a.Emotions {
		if e == emotion {
			return true
		}
	}
	return false
}

// Detector finds a face in an encoded image.
type Detector interface {
	Detect(ctx context.Context, image []byte) (Analysis, error)
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}
