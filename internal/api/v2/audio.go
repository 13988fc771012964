// internal/api/v2/audio.go
package api

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/myaudio"
)

// SamplesRequest is the JSON body for analyzing raw samples.
type SamplesRequest struct {
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sampleRate"`
}

// AudioAnalysisResponse is returned by the audio analysis endpoint.
type AudioAnalysisResponse struct {
	Classification audioanalysis.AudioClassification `json:"classification"`
	Features       audioanalysis.Features            `json:"features"`
	SampleRate     int                               `json:"sampleRate"`
}

// AnalyzeAudio handles POST /api/v2/audio/analyze.
//
// The body is either a WAV or FLAC file, or a JSON SamplesRequest.
func (c *Controller) AnalyzeAudio(ctx echo.Context) error {
	mediaType, _, _ := mime.ParseMediaType(ctx.Request().Header.Get(echo.HeaderContentType))

	var clip myaudio.Clip
	switch mediaType {
	case echo.MIMEApplicationJSON:
		var req SamplesRequest
		if err := ctx.Bind(&req); err != nil {
			return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
		}
		clip = myaudio.Clip{Samples: req.Samples, SampleRate: req.SampleRate}
	default:
		data, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to read request body", http.StatusBadRequest)
		}
		if len(data) == 0 {
			return c.HandleError(ctx, nil, "Request body is empty", http.StatusBadRequest)
		}
		clip, err = myaudio.Decode(bytes.NewReader(data))
		if err != nil {
			return c.HandleError(ctx, err, "Failed to decode audio", statusForError(err))
		}
	}

	res, err := c.Analyzer.Analyze(clip.Samples, clip.SampleRate)
	if err != nil {
		return c.HandleError(ctx, err, "Audio analysis failed", statusForError(err))
	}

	if c.metrics != nil {
		c.metrics.Analysis.ObserveClassification(
			res.Classification.HasCrying,
			res.Classification.HasLaughter,
			res.Classification.Intensity)
	}

	return ctx.JSON(http.StatusOK, AudioAnalysisResponse{
		Classification: res.Classification,
		Features:       res.Features,
		SampleRate:     clip.SampleRate,
	})
}
