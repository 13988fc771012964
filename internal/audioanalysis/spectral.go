package audioanalysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTSize is the fixed transform length.
const FFTSize = 2048

// Band edges in Hz.
const (
	fundamentalLow  = 250
	fundamentalHigh = 600
	harmonic1Low    = 1000
	harmonic1High   = 1600
	harmonic2Low    = 2000
	harmonic2High   = 3000
	highFreqLow     = 3000
	highFreqHigh    = 4000
)

// BandEnergy is the summed linear magnitude per band.
type BandEnergy struct {
	Fundamental float64 `json:"fundamental"`
	Harmonic1   float64 `json:"harmonic1"`
	Harmonic2   float64 `json:"harmonic2"`
	HighFreq    float64 `json:"highFreq"`
	Total       float64 `json:"totalEnergy"`
}

// SpectralSummary holds the band energies and the ratios derived from them.
type SpectralSummary struct {
	Bands            BandEnergy `json:"bands"`
	FundamentalRatio float64    `json:"fundamentalRatio"`
	HarmonicRatio    float64    `json:"harmonicRatio"`
}

// AnalyzeSpectrum computes band energies over a 2048-point magnitude spectrum.
//
// The spectrum is the mean of Blackman-windowed, 1/N-normalized magnitudes
// over consecutive full windows. A clip shorter than one window is
// zero-padded. Bands cover bins floor(lo*N/sr) up to floor(hi*N/sr), end
// exclusive, clamped to the N/2 bins below Nyquist.
func AnalyzeSpectrum(samples []float64, sampleRate int) SpectralSummary {
	if len(samples) == 0 || sampleRate <= 0 {
		return SpectralSummary{}
	}

	mags := magnitudeSpectrum(samples)

	bands := BandEnergy{
		Fundamental: bandSum(mags, fundamentalLow, fundamentalHigh, sampleRate),
		Harmonic1:   bandSum(mags, harmonic1Low, harmonic1High, sampleRate),
		Harmonic2:   bandSum(mags, harmonic2Low, harmonic2High, sampleRate),
		HighFreq:    bandSum(mags, highFreqLow, highFreqHigh, sampleRate),
		Total:       bandSum(mags, 0, float64(sampleRate)/2, sampleRate),
	}

	summary := SpectralSummary{Bands: bands}
	if bands.Total > 0 {
		summary.FundamentalRatio = bands.Fundamental / bands.Total
		summary.HarmonicRatio = (bands.Harmonic1 + bands.Harmonic2) / bands.Total
	}
	return summary
}

// magnitudeSpectrum returns FFTSize/2 linear magnitudes.
func magnitudeSpectrum(samples []float64) []float64 {
	fft := fourier.NewFFT(FFTSize)
	window := blackman(FFTSize)
	frame := make([]float64, FFTSize)
	coeffs := make([]complex128, FFTSize/2+1)
	mags := make([]float64, FFTSize/2)

	windows := len(samples) / FFTSize
	if windows == 0 {
		windows = 1
	}
	for w := range windows {
		start := w * FFTSize
		n := copy(frame, samples[start:min(start+FFTSize, len(samples))])
		clear(frame[n:])
		for i := range frame {
			frame[i] *= window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k := range mags {
			mags[k] += toLinear(toDecibels(cmplx.Abs(coeffs[k]) / FFTSize))
		}
	}

	for k := range mags {
		mags[k] /= float64(windows)
	}
	return mags
}

func bandSum(mags []float64, lowHz, highHz float64, sampleRate int) float64 {
	start := int(math.Floor(lowHz * FFTSize / float64(sampleRate)))
	end := int(math.Floor(highHz * FFTSize / float64(sampleRate)))
	start = max(start, 0)
	end = min(end, len(mags))

	var sum float64
	for k := start; k < end; k++ {
		sum += mags[k]
	}
	return sum
}

func blackman(n int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}

// toDecibels maps 0 to -Inf, which toLinear maps back to 0.
func toDecibels(mag float64) float64 {
	return 20 * math.Log10(mag)
}

func toLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
