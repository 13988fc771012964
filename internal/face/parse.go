package face

import (
	"cmp"
	"slices"

	"github.com/antonholmquist/jason"

	"github.com/jingnanl/infant-guard/internal/errors"
)

type emotionScore struct {
	kind       string
	confidence float64
}

// ParseDetectResponse extracts the first entry of FaceDetails.
// A response without faces yields an Analysis with Detected false.
func ParseDetectResponse(body []byte) (Analysis, error) {
	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return Analysis{}, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFaceDetection).
			Context("stage", "decode").
			Build()
	}

	details, err := root.GetObjectArray("FaceDetails")
	if err != nil || len(details) == 0 {
		return Analysis{}, nil
	}
	first := details[0]

	analysis := Analysis{Detected: true, Emotions: []string{}}

	emotions, _ := first.GetObjectArray("Emotions")
	scores := make([]emotionScore, 0, len(emotions))
	for _, e := range emotions {
		kind, err := e.GetString("Type")
		if err != nil || kind == "" {
			continue
		}
		confidence, _ := e.GetFloat64("Confidence")
		scores = append(scores, emotionScore{kind: kind, confidence: confidence})
	}
	slices.SortStableFunc(scores, func(a, b emotionScore) int {
		return cmp.Compare(b.confidence, a.confidence)
	})
	for i := 0; i < len(scores) && i < MaxEmotions; i++ {
		analysis.Emotions = append(analysis.Emotions, scores[i].kind)
	}
	if len(scores) > 0 {
		analysis.Confidence = scores[0].confidence
	}

	analysis.EyesOpen, _ = first.GetBoolean("EyesOpen", "Value")
	analysis.MouthOpen, _ = first.GetBoolean("MouthOpen", "Value")
	analysis.IsSmiling, _ = first.GetBoolean("Smile", "Value")

	return analysis, nil
}
