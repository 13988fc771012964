// internal/api/v2/baby.go
package api

import (
	"encoding/base64"
	"math"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// CryBands carries the band energies reported by the capturing device.
type CryBands struct {
	Fundamental float64 `json:"fundamental"`
	Harmonic1   float64 `json:"harmonic1"`
	Harmonic2   float64 `json:"harmonic2,omitempty"`
	HighFreq    float64 `json:"highFreq"`
	TotalEnergy float64 `json:"totalEnergy"`
}

// SpectralFeatures carries the spectral ratios reported by the device.
type SpectralFeatures struct {
	FundamentalRatio float64  `json:"fundamentalRatio"`
	HarmonicRatio    float64  `json:"harmonicRatio"`
	CryBands         CryBands `json:"cryBands"`
}

// EnergyPattern carries the temporal features reported by the device.
type EnergyPattern struct {
	TransientCount  int     `json:"transientCount"`
	SustainedEnergy float64 `json:"sustainedEnergy"`
	RhythmicPattern float64 `json:"rhythmicPattern"`
}

// AudioFeaturesPayload is the audio part of a baby status request.
type AudioFeaturesPayload struct {
	RMSVolume        float64          `json:"rmsVolume"`
	SpectralFeatures SpectralFeatures `json:"spectralFeatures"`
	EnergyPattern    EnergyPattern    `json:"energyPattern"`
	IsCrying         bool             `json:"isCrying"`
	Duration         float64          `json:"duration"`
}

// BabyStatusRequest is the body of POST /api/v2/baby/analyze.
type BabyStatusRequest struct {
	ImageKey      string                `json:"imageKey"`
	ImageBuffer   string                `json:"imageBuffer"` // base64, optional when imageKey is stored
	AudioKey      string                `json:"audioKey"`
	AudioFeatures *AudioFeaturesPayload `json:"audioFeatures"`
}

// Features converts the payload into analyzer features.
func (p *AudioFeaturesPayload) Features() (*audioanalysis.Features, error) {
	values := []float64{
		p.RMSVolume, p.Duration,
		p.SpectralFeatures.FundamentalRatio, p.SpectralFeatures.HarmonicRatio,
		p.SpectralFeatures.CryBands.Fundamental, p.SpectralFeatures.CryBands.Harmonic1,
		p.SpectralFeatures.CryBands.Harmonic2, p.SpectralFeatures.CryBands.HighFreq,
		p.SpectralFeatures.CryBands.TotalEnergy,
		p.EnergyPattern.SustainedEnergy, p.EnergyPattern.RhythmicPattern,
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, validationError("audio features contain non-finite values", "audioFeatures", v)
		}
	}
	if p.Duration < 0 || p.EnergyPattern.TransientCount < 0 {
		return nil, validationError("audio features must not be negative", "audioFeatures", p.Duration)
	}

	return &audioanalysis.Features{
		RMS: p.RMSVolume,
		Spectral: audioanalysis.SpectralSummary{
			Bands: audioanalysis.BandEnergy{
				Fundamental: p.SpectralFeatures.CryBands.Fundamental,
				Harmonic1:   p.SpectralFeatures.CryBands.Harmonic1,
				Harmonic2:   p.SpectralFeatures.CryBands.Harmonic2,
				HighFreq:    p.SpectralFeatures.CryBands.HighFreq,
				Total:       p.SpectralFeatures.CryBands.TotalEnergy,
			},
			FundamentalRatio: p.SpectralFeatures.FundamentalRatio,
			HarmonicRatio:    p.SpectralFeatures.HarmonicRatio,
		},
		Temporal: audioanalysis.TemporalSummary{
			TransientCount:  p.EnergyPattern.TransientCount,
			SustainedEnergy: p.EnergyPattern.SustainedEnergy,
			RhythmicPattern: p.EnergyPattern.RhythmicPattern,
		},
		Duration: p.Duration,
	}, nil
}

func validationError(msg, key string, value any) error {
	return errors.Newf("%s", msg).
		Component("api").
		Category(errors.CategoryValidation).
		Context(key, value).
		Build()
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Context("field", "imageBuffer").
			Build()
	}
	return img, nil
}

// AnalyzeBabyStatus handles POST /api/v2/baby/analyze.
//
// The image is sent to the face detector, the audio features are re-assessed
// and the judge combines both into a verdict, which is stored when a
// datastore is configured.
func (c *Controller) AnalyzeBabyStatus(ctx echo.Context) error {
	if c.Detector == nil || c.Judge == nil {
		return c.HandleError(ctx, nil, "Baby analysis is not configured", http.StatusServiceUnavailable)
	}

	var req BabyStatusRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()

	var image []byte
	switch {
	case req.ImageBuffer != "":
		img, err := decodeImage(req.ImageBuffer)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid image data", http.StatusBadRequest)
		}
		image = img
	case req.ImageKey != "" && c.Store != nil:
		img, err := c.Store.Get(reqCtx, req.ImageKey)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to load image", statusForError(err))
		}
		image = img
	default:
		return c.HandleError(ctx, nil, "Image data is required", http.StatusBadRequest)
	}

	ev := judge.Evidence{
		ImageKey: req.ImageKey,
		AudioKey: req.AudioKey,
	}
	if req.AudioFeatures != nil {
		features, err := req.AudioFeatures.Features()
		if err != nil {
			return c.HandleError(ctx, err, "Invalid audio features", http.StatusBadRequest)
		}
		ev.Features = features
		ev.IsCrying = req.AudioFeatures.IsCrying
	}
	if c.sun != nil {
		ev.Daylight = c.sun.Describe(c.now())
	}

	fa, err := c.Detector.Detect(reqCtx, image)
	if err != nil {
		return c.HandleError(ctx, err, "Face detection failed", statusForError(err))
	}
	ev.Face = fa

	verdict, err := c.Judge.Evaluate(reqCtx, ev)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to analyze baby status", statusForError(err))
	}

	if c.metrics != nil {
		c.metrics.Analysis.ObserveVerdict(string(verdict.Status), verdict.NeedsAttention)
	}

	if c.DS != nil {
		if err := c.DS.Save(reqCtx, datastore.FromVerdict(&verdict, ev.Features)); err != nil {
			// The verdict is still useful to the caller.
			c.log.Error("failed to save analysis",
				logger.String("image_key", verdict.ImageKey),
				logger.Error(err))
		} else {
			c.latestCache.Flush()
		}
	}

	if c.onVerdict != nil {
		c.onVerdict(ctx, &verdict)
	}

	return ctx.JSON(http.StatusOK, verdict)
}
