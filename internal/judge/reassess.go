package judge

import (
	"github.com/jingnanl/infant-guard/internal/audioanalysis"
)

// DefaultClipDuration is assumed when the reported duration is zero.
const DefaultClipDuration = 5.0

// Reassess re-derives the audio classification from reported features.
//
// Crying is accepted from the reporting device or inferred from the spectral
// ratios and sustained energy alone, ignoring loudness and rhythm. Laughter
// and intensity follow Classify. Nil features yield a zero classification.
func Reassess(f *audioanalysis.Features, isCrying bool, th audioanalysis.Thresholds) audioanalysis.AudioClassification {
	if f == nil {
		return audioanalysis.AudioClassification{}
	}

	c := audioanalysis.Classify(*f, th)
	c.HasCrying = f.Spectral.FundamentalRatio > th.FundamentalRatio &&
		f.Spectral.HarmonicRatio > th.HarmonicRatio &&
		f.Temporal.SustainedEnergy > th.CrySustained
	c = c.WithCryingHint(isCrying)

	if c.Duration == 0 {
		c.Duration = DefaultClipDuration
	}
	return c
}
