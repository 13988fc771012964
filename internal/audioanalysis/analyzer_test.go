package audioanalysis

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingnanl/infant-guard/internal/errors"
)

const testSampleRate = 16000

func tone(freq, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return out
}

// cryingClip is 5 s of a 450 Hz cry with overtones at 1350 and 2250 Hz,
// swelling and fading once per second.
func cryingClip() []float64 {
	n := 5 * testSampleRate
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / testSampleRate
		env := 0.5 * (1 + math.Sin(2*math.Pi*t))
		voice := math.Sin(2*math.Pi*450*t) +
			0.6*math.Sin(2*math.Pi*1350*t) +
			0.5*math.Sin(2*math.Pi*2250*t)
		out[i] = 0.3 * env * voice
	}
	return out
}

// laughterClip is 5 s of short 3.5 kHz bursts, two frames on and eight off,
// over a quiet 3.2 kHz background.
func laughterClip() []float64 {
	n := 5 * testSampleRate
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / testSampleRate
		out[i] = 0.01 * math.Sin(2*math.Pi*3200*t)
		if (i/FrameSize)%10 < 2 {
			out[i] += 0.6 * math.Sin(2*math.Pi*3500*t)
		}
	}
	return out
}

func TestAnalyzeAudioSilence(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(DefaultThresholds())
	require.NoError(t, err)

	res, err := a.Analyze(make([]float64, testSampleRate), testSampleRate)
	require.NoError(t, err)

	f := res.Features
	assert.Zero(t, f.RMS)
	assert.Zero(t, f.Spectral.Bands.Total)
	assert.Zero(t, f.Spectral.FundamentalRatio)
	assert.Zero(t, f.Spectral.HarmonicRatio)
	assert.False(t, res.Classification.HasCrying)
	assert.False(t, res.Classification.HasLaughter)
	assert.Zero(t, res.Classification.Intensity)
	assert.InDelta(t, 1.0, res.Classification.Duration, 1e-12)
}

func TestAnalyzeSpectrumPureTone(t *testing.T) {
	t.Parallel()

	s := AnalyzeSpectrum(tone(400, 0.5, testSampleRate), testSampleRate)

	assert.Greater(t, s.FundamentalRatio, 0.8)
	assert.Greater(t, s.FundamentalRatio, s.HarmonicRatio)
	assert.Greater(t, s.Bands.Fundamental, s.Bands.Harmonic1)
	assert.Greater(t, s.Bands.Fundamental, s.Bands.Harmonic2)
	assert.Greater(t, s.Bands.Fundamental, s.Bands.HighFreq)
}

func TestAnalyzeSpectrumHarmonicTone(t *testing.T) {
	t.Parallel()

	s := AnalyzeSpectrum(tone(1300, 0.5, testSampleRate), testSampleRate)

	assert.Greater(t, s.HarmonicRatio, 0.8)
	assert.Less(t, s.FundamentalRatio, 0.1)
}

func TestAnalyzeSpectrumShortClipIsZeroPadded(t *testing.T) {
	t.Parallel()

	s := AnalyzeSpectrum(tone(400, 0.5, 1000), testSampleRate)
	assert.Positive(t, s.Bands.Total)
	assert.Greater(t, s.FundamentalRatio, s.HarmonicRatio)
}

func TestAnalyzeSpectrumBandsPastNyquistAreEmpty(t *testing.T) {
	t.Parallel()

	// at 6 kHz the whole high band lies above Nyquist
	s := AnalyzeSpectrum(tone(2500, 0.5, 6000), 6000)
	assert.Zero(t, s.Bands.HighFreq)
	assert.Positive(t, s.Bands.Harmonic2)
	assert.LessOrEqual(t, s.Bands.Harmonic2, s.Bands.Total)
}

func TestCryingScenario(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(DefaultThresholds())
	require.NoError(t, err)

	res, err := a.Analyze(cryingClip(), testSampleRate)
	require.NoError(t, err)

	f := res.Features
	assert.InDelta(t, 0.16, f.RMS, 0.03)
	assert.Greater(t, f.Spectral.FundamentalRatio, 0.2)
	assert.Greater(t, f.Spectral.HarmonicRatio, 0.15)
	assert.InDelta(t, 0.55, f.Temporal.SustainedEnergy, 0.1)
	assert.Greater(t, f.Temporal.RhythmicPattern, 0.4)

	assert.True(t, res.Classification.HasCrying)
	assert.False(t, res.Classification.HasLaughter)
	assert.InDelta(t, 5.0, res.Classification.Duration, 1e-12)
	assert.Greater(t, res.Classification.Intensity, 0.3)
	assert.LessOrEqual(t, res.Classification.Intensity, 1.0)
}

func TestLaughterScenario(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(DefaultThresholds())
	require.NoError(t, err)

	res, err := a.Analyze(laughterClip(), testSampleRate)
	require.NoError(t, err)

	f := res.Features
	assert.InDelta(t, 0.19, f.RMS, 0.02)
	assert.Equal(t, 15, f.Temporal.TransientCount)
	assert.Less(t, f.Temporal.SustainedEnergy, 0.3)
	assert.Greater(t, f.Spectral.Bands.HighFreq, f.Spectral.Bands.Fundamental)

	assert.True(t, res.Classification.HasLaughter)
	assert.False(t, res.Classification.HasCrying)
}

func TestAnalyzeIsIdempotentAndDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	samples := cryingClip()
	original := slices.Clone(samples)

	first, err := AnalyzeAudio(samples, testSampleRate)
	require.NoError(t, err)
	second, err := AnalyzeAudio(samples, testSampleRate)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, original, samples)
}

func TestAnalyzeAudioRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		samples    []float64
		sampleRate int
	}{
		{"empty buffer", nil, testSampleRate},
		{"zero sample rate", []float64{0.1}, 0},
		{"negative sample rate", []float64{0.1}, -8000},
		{"NaN sample", []float64{0.1, math.NaN()}, testSampleRate},
		{"infinite sample", []float64{math.Inf(1)}, testSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := AnalyzeAudio(tt.samples, tt.sampleRate)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestNewAnalyzerRejectsBadThresholds(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	th.TransientRatio = 0.9
	th.HarmonicRatio = 1.5

	_, err := NewAnalyzer(th)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Contains(t, err.Error(), "harmonicRatio")
	assert.Contains(t, err.Error(), "transientRatio")
}

func TestRMS(t *testing.T) {
	t.Parallel()

	assert.Zero(t, RMS(nil))
	assert.InDelta(t, 0.5, RMS([]float64{0.5, -0.5, 0.5, -0.5}), 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, RMS(tone(1000, 1, testSampleRate)), 1e-3)
}
