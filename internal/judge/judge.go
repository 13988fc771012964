package judge

import (
	"context"
	"time"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// NoFaceAnalysis is the verdict text when the image shows no face.
const NoFaceAnalysis = "No face was detected in the image"

// Evidence is one observation of the crib.
type Evidence struct {
	ImageKey string
	AudioKey string
	Face     face.Analysis
	Features *audioanalysis.Features // nil when no audio was captured
	IsCrying bool                    // crying flag from the capturing device
	Daylight string
}

// Verdict is the combined assessment.
type Verdict struct {
	ImageKey       string                            `json:"imageKey,omitempty"`
	AudioKey       string                            `json:"audioKey,omitempty"`
	Status         Status                            `json:"status"`
	Analysis       string                            `json:"analysis"`
	Completion     string                            `json:"completion,omitempty"` // raw model output
	Face           face.Analysis                     `json:"faceAnalysis"`
	Audio          audioanalysis.AudioClassification `json:"audioAnalysis"`
	NeedsAttention bool                              `json:"needsAttention"`
	CreatedAt      time.Time                         `json:"createdAt"`
}

// Judge produces verdicts.
type Judge struct {
	model      Completer
	thresholds audioanalysis.Thresholds
	log        logger.Logger
	now        func() time.Time
}

// New returns a Judge that consults model.
func New(model Completer, th audioanalysis.Thresholds) *Judge {
	return &Judge{
		model:      model,
		thresholds: th,
		log:        logger.Global().Module(componentName),
		now:        time.Now,
	}
}

// Evaluate judges ev. Without a detected face the model is not consulted and
// the verdict never asks for attention.
func (j *Judge) Evaluate(ctx context.Context, ev Evidence) (Verdict, error) {
	v := Verdict{
		ImageKey:  ev.ImageKey,
		AudioKey:  ev.AudioKey,
		Status:    StatusUnknown,
		CreatedAt: j.now().UTC(),
	}

	if !ev.Face.Detected {
		v.Analysis = NoFaceAnalysis
		v.Face = face.Analysis{Emotions: []string{}}
		return v, nil
	}

	v.Face = ev.Face
	v.Audio = Reassess(ev.Features, ev.IsCrying, j.thresholds)

	if j.model == nil {
		return Verdict{}, errors.Newf("no language model configured").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	start := time.Now()
	text, err := j.model.Complete(ctx, BuildPrompt(PromptInput{
		Face:     v.Face,
		Audio:    v.Audio,
		Features: ev.Features,
		Daylight: ev.Daylight,
	}))
	if err != nil {
		return Verdict{}, err
	}

	v.Completion = text
	v.Status, v.Analysis = ParseCompletion(text)
	v.NeedsAttention = NeedsAttention(v.Status, v.Face, v.Audio)

	j.log.Info("verdict",
		logger.String("status", string(v.Status)),
		logger.Bool("needs_attention", v.NeedsAttention),
		logger.Bool("crying", v.Audio.HasCrying),
		logger.Float64("intensity", v.Audio.Intensity),
		logger.String("emotion", v.Face.DominantEmotion()),
		logger.Duration("elapsed", time.Since(start)))
	return v, nil
}
