// internal/api/v2/analyses.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/judge"
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100

	defaultAttentionWindow = 24 * time.Hour
)

// AnalysisResponse is a stored verdict with its record identity.
type AnalysisResponse struct {
	ID string `json:"id"`
	judge.Verdict
	Features *StoredFeatures `json:"features,omitempty"`
}

// StoredFeatures are the audio features persisted with a record.
type StoredFeatures struct {
	RMS              float64 `json:"rms"`
	FundamentalRatio float64 `json:"fundamentalRatio"`
	HarmonicRatio    float64 `json:"harmonicRatio"`
	TransientCount   int     `json:"transientCount"`
	SustainedEnergy  float64 `json:"sustainedEnergy"`
	RhythmicPattern  float64 `json:"rhythmicPattern"`
}

func toResponse(rec *datastore.BabyAnalysis) AnalysisResponse {
	resp := AnalysisResponse{ID: rec.ID, Verdict: rec.Verdict()}
	if rec.Duration > 0 {
		resp.Features = &StoredFeatures{
			RMS:              rec.RMS,
			FundamentalRatio: rec.FundamentalRatio,
			HarmonicRatio:    rec.HarmonicRatio,
			TransientCount:   rec.TransientCount,
			SustainedEnergy:  rec.SustainedEnergy,
			RhythmicPattern:  rec.RhythmicPattern,
		}
	}
	return resp
}

func toResponses(recs []datastore.BabyAnalysis) []AnalysisResponse {
	out := make([]AnalysisResponse, 0, len(recs))
	for i := range recs {
		out = append(out, toResponse(&recs[i]))
	}
	return out
}

func (c *Controller) historyDisabled(ctx echo.Context) error {
	return c.HandleError(ctx, nil, "Analysis history is disabled", http.StatusServiceUnavailable)
}

// GetLatestAnalyses handles GET /api/v2/analyses/latest?limit=n
func (c *Controller) GetLatestAnalyses(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	limit := defaultLatestLimit
	if s := ctx.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return c.HandleError(ctx, err, "limit must be a positive integer", http.StatusBadRequest)
		}
		limit = min(n, maxLatestLimit)
	}

	cacheKey := "latest:" + strconv.Itoa(limit)
	if cached, ok := c.latestCache.Get(cacheKey); ok {
		return ctx.JSON(http.StatusOK, cached)
	}

	recs, err := c.DS.Latest(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load analyses", statusForError(err))
	}

	resp := toResponses(recs)
	c.latestCache.SetDefault(cacheKey, resp)
	return ctx.JSON(http.StatusOK, resp)
}

// GetAttentionAnalyses handles GET /api/v2/analyses/attention?since=RFC3339
//
// Without since, the last 24 hours are returned.
func (c *Controller) GetAttentionAnalyses(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	since := c.now().Add(-defaultAttentionWindow)
	if s := ctx.QueryParam("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.HandleError(ctx, err, "since must be an RFC3339 timestamp", http.StatusBadRequest)
		}
		since = t
	}

	recs, err := c.DS.ListAttention(ctx.Request().Context(), since)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load analyses", statusForError(err))
	}
	return ctx.JSON(http.StatusOK, toResponses(recs))
}

// GetAnalysis handles GET /api/v2/analyses/:id
func (c *Controller) GetAnalysis(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	id := ctx.Param("id")
	rec, err := c.DS.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "Analysis not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to load analysis", statusForError(err))
	}
	return ctx.JSON(http.StatusOK, toResponse(&rec))
}
