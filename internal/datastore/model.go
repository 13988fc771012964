package datastore

import (
	"strings"
	"time"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/judge"
)

// BabyAnalysis is one persisted verdict with the evidence behind it.
type BabyAnalysis struct {
	ID             string `gorm:"primaryKey;size:36"`
	ImageKey       string `gorm:"size:255"`
	AudioKey       string `gorm:"size:255"`
	Status         string `gorm:"size:32;index"`
	Analysis       string `gorm:"type:text"`
	Completion     string `gorm:"type:text"`
	NeedsAttention bool   `gorm:"index"`

	// Face
	FaceDetected   bool
	Emotions       string `gorm:"size:64"` // comma separated, most confident first
	FaceConfidence float64
	EyesOpen       bool
	MouthOpen      bool
	IsSmiling      bool

	// Audio classification
	HasCrying   bool `gorm:"index"`
	HasLaughter bool
	Intensity   float64
	Duration    float64

	// Audio features, zero when no clip was captured
	RMS              float64
	FundamentalRatio float64
	HarmonicRatio    float64
	TransientCount   int
	SustainedEnergy  float64
	RhythmicPattern  float64

	CreatedAt time.Time `gorm:"index"`
}

// TableName pins the table name regardless of naming strategy.
func (BabyAnalysis) TableName() string {
	return "baby_analyses"
}

// FromVerdict flattens a verdict and the features it was based on.
func FromVerdict(v *judge.Verdict, f *audioanalysis.Features) *BabyAnalysis {
	rec := &BabyAnalysis{
		ImageKey:       v.ImageKey,
		AudioKey:       v.AudioKey,
		Status:         string(v.Status),
		Analysis:       v.Analysis,
		Completion:     v.Completion,
		NeedsAttention: v.NeedsAttention,
		FaceDetected:   v.Face.Detected,
		Emotions:       strings.Join(v.Face.Emotions, ","),
		FaceConfidence: v.Face.Confidence,
		EyesOpen:       v.Face.EyesOpen,
		MouthOpen:      v.Face.MouthOpen,
		IsSmiling:      v.Face.IsSmiling,
		HasCrying:      v.Audio.HasCrying,
		HasLaughter:    v.Audio.HasLaughter,
		Intensity:      v.Audio.Intensity,
		Duration:       v.Audio.Duration,
		CreatedAt:      v.CreatedAt,
	}
	if f != nil {
		rec.RMS = f.RMS
		rec.FundamentalRatio = f.Spectral.FundamentalRatio
		rec.HarmonicRatio = f.Spectral.HarmonicRatio
		rec.TransientCount = f.Temporal.TransientCount
		rec.SustainedEnergy = f.Temporal.SustainedEnergy
		rec.RhythmicPattern = f.Temporal.RhythmicPattern
	}
	return rec
}

// Verdict rebuilds the verdict view of a record.
func (r *BabyAnalysis) Verdict() judge.Verdict {
	emotions := []string{}
	if r.Emotions != "" {
		emotions = strings.Split(r.Emotions, ",")
	}
	return judge.Verdict{
		ImageKey:   r.ImageKey,
		AudioKey:   r.AudioKey,
		Status:     judge.Status(r.Status),
		Analysis:   r.Analysis,
		Completion: r.Completion,
		Face: face.Analysis{
			Detected:   r.FaceDetected,
			Emotions:   emotions,
			Confidence: r.FaceConfidence,
			EyesOpen:   r.EyesOpen,
			MouthOpen:  r.MouthOpen,
			IsSmiling:  r.IsSmiling,
		},
		Audio: audioanalysis.AudioClassification{
			HasCrying:   r.HasCrying,
			HasLaughter: r.HasLaughter,
			Intensity:   r.Intensity,
			Duration:    r.Duration,
		},
		NeedsAttention: r.NeedsAttention,
		CreatedAt:      r.CreatedAt,
	}
}
