package audioanalysis

// FrameSize is the number of samples per temporal analysis frame.
const FrameSize = 512

// TemporalSummary describes how loudness evolves across frames.
type TemporalSummary struct {
	FrameCount      int     `json:"frameCount"`
	TransientCount  int     `json:"transientCount"`
	SustainedEnergy float64 `json:"sustainedEnergy"`
	RhythmicPattern float64 `json:"rhythmicPattern"`
}

// FrameRMS returns the RMS of each full frame. Trailing samples that do not
// fill a frame are ignored.
func FrameRMS(samples []float64) []float64 {
	frames := len(samples) / FrameSize
	out := make([]float64, frames)
	for i := range frames {
		out[i] = RMS(samples[i*FrameSize : (i+1)*FrameSize])
	}
	return out
}

// AnalyzeTemporal derives transient count, sustained energy and rhythmicity
// from per-frame RMS values.
func AnalyzeTemporal(samples []float64, th Thresholds) TemporalSummary {
	rms := FrameRMS(samples)
	n := len(rms)
	if n == 0 {
		return TemporalSummary{}
	}

	summary := TemporalSummary{FrameCount: n}

	sustained := 0
	for i, v := range rms {
		if v > th.SustainedRMS {
			sustained++
		}
		// a silent previous frame never counts as a transient
		if i > 0 && rms[i-1] > 0 && v/rms[i-1] > th.TransientRatio {
			summary.TransientCount++
		}
	}
	summary.SustainedEnergy = float64(sustained) / float64(n)

	agreements := 0
	for i := 2; i < n; i++ {
		if sign(rms[i]-rms[i-1]) == sign(rms[i-1]-rms[i-2]) {
			agreements++
		}
	}
	summary.RhythmicPattern = float64(agreements) / float64(n)

	return summary
}

// sign returns -1, 0 or 1. Two flat steps agree with each other.
func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
