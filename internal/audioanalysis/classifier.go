package audioanalysis

// AudioClassification is the outcome for one clip.
type AudioClassification struct {
	HasCrying   bool    `json:"hasCrying"`
	HasLaughter bool    `json:"hasLaughter"`
	Intensity   float64 `json:"intensity"`
	Duration    float64 `json:"duration"`
}

// Classify applies the crying and laughter rules to f.
func Classify(f Features, th Thresholds) AudioClassification {
	s, t := f.Spectral, f.Temporal

	crying := s.FundamentalRatio > th.FundamentalRatio &&
		s.HarmonicRatio > th.HarmonicRatio &&
		f.RMS > th.CryRMS &&
		t.SustainedEnergy > th.CrySustained &&
		t.RhythmicPattern > th.CryRhythm

	laughter := s.Bands.HighFreq > s.Bands.Fundamental &&
		t.TransientCount > th.LaughTransients &&
		t.SustainedEnergy < th.LaughSustained &&
		f.RMS > th.LaughRMS

	return AudioClassification{
		HasCrying:   crying,
		HasLaughter: laughter,
		Intensity:   Intensity(f.RMS, t.SustainedEnergy),
		Duration:    f.Duration,
	}
}

// Intensity is min(1, rms*2*(1+sustained)).
func Intensity(rms, sustained float64) float64 {
	return min(1, rms*2*(1+sustained))
}

// WithCryingHint folds in a crying flag reported by another detector.
// The hint can only turn crying on.
func (c AudioClassification) WithCryingHint(isCrying bool) AudioClassification {
	c.HasCrying = c.HasCrying || isCrying
	return c
}
