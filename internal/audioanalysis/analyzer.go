// Package audioanalysis extracts loudness, spectral and temporal features from a
// mono clip and classifies it as crying or laughter.
//
// Every function in this package is pure: no I/O, no shared state, inputs are
// never modified. Callers may analyze independent buffers concurrently.
package audioanalysis

import (
	"math"

	"github.com/jingnanl/infant-guard/internal/errors"
)

const componentName = "audioanalysis"

// ErrInvalidInput matches every error returned for unusable input buffers.
var ErrInvalidInput = errors.NewStd("invalid audio input")

// Features is everything the classifier looks at.
type Features struct {
	RMS      float64         `json:"rms"`
	Spectral SpectralSummary `json:"spectral"`
	Temporal TemporalSummary `json:"temporal"`
	Duration float64         `json:"duration"`
}

// Result pairs the classification with the features it was derived from.
type Result struct {
	Classification AudioClassification `json:"classification"`
	Features       Features            `json:"features"`
}

// Analyzer runs the pipeline with a fixed set of thresholds.
type Analyzer struct {
	thresholds Thresholds
}

// NewAnalyzer returns an Analyzer. Invalid thresholds are rejected.
func NewAnalyzer(th Thresholds) (*Analyzer, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{thresholds: th}, nil
}

// Thresholds returns the thresholds the analyzer was built with.
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// Extract computes the feature set of samples.
func (a *Analyzer) Extract(samples []float64, sampleRate int) (Features, error) {
	if err := validateInput(samples, sampleRate); err != nil {
		return Features{}, err
	}
	return Features{
		RMS:      RMS(samples),
		Spectral: AnalyzeSpectrum(samples, sampleRate),
		Temporal: AnalyzeTemporal(samples, a.thresholds),
		Duration: float64(len(samples)) / float64(sampleRate),
	}, nil
}

// Analyze extracts features and classifies them.
func (a *Analyzer) Analyze(samples []float64, sampleRate int) (Result, error) {
	f, err := a.Extract(samples, sampleRate)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Classification: Classify(f, a.thresholds),
		Features:       f,
	}, nil
}

// AnalyzeAudio classifies samples using the default thresholds.
func AnalyzeAudio(samples []float64, sampleRate int) (AudioClassification, error) {
	a := &Analyzer{thresholds: DefaultThresholds()}
	res, err := a.Analyze(samples, sampleRate)
	if err != nil {
		return AudioClassification{}, err
	}
	return res.Classification, nil
}

func validateInput(samples []float64, sampleRate int) error {
	if len(samples) == 0 {
		return invalidInput("audio buffer is empty", "samples", 0)
	}
	if sampleRate <= 0 {
		return invalidInput("sample rate must be positive", "sample_rate", sampleRate)
	}
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return invalidInput("audio buffer contains a non-finite sample", "index", i)
		}
	}
	return nil
}

func invalidInput(msg, key string, value any) error {
	return errors.Newf("%s: %w", msg, ErrInvalidInput).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context(key, value).
		Build()
}
