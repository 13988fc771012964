// api_test.go: tests for the API v2 endpoints.

package api

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/myaudio"
	"github.com/jingnanl/infant-guard/internal/observability"
	"github.com/jingnanl/infant-guard/internal/voice"
)

const cryingCompletion = "<STATUS>crying</STATUS><ANALYSIS>The baby is crying loudly.</ANALYSIS>"

func sine(freq float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func decodeJSON(t *testing.T, body []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("connected", func(t *testing.T) {
		t.Parallel()
		e, mockDS, _ := setupTestEnvironment(t, WithVersion("1.2.3"))
		mockDS.On("Latest", mock.Anything, 1).Return([]datastore.BabyAnalysis{}, nil)

		rec := serve(e, http.MethodGet, "/api/v2/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		decodeJSON(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "healthy", resp["status"])
		assert.Equal(t, "1.2.3", resp["version"])
		assert.Equal(t, "connected", resp["database_status"])

		_, err := time.Parse(time.RFC3339, resp["timestamp"].(string))
		assert.NoError(t, err, "timestamp should be RFC3339")
		mockDS.AssertExpectations(t)
	})

	t.Run("degraded", func(t *testing.T) {
		t.Parallel()
		e, mockDS, _ := setupTestEnvironment(t)
		mockDS.On("Latest", mock.Anything, 1).
			Return([]datastore.BabyAnalysis(nil), errors.NewStd("database is locked"))

		rec := serve(e, http.MethodGet, "/api/v2/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		decodeJSON(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "degraded", resp["status"])
		assert.Equal(t, "disconnected", resp["database_status"])
		assert.Equal(t, "database is locked", resp["database_error"])
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		e, _, _ := setupTestEnvironment(t, WithDatastore(nil))

		rec := serve(e, http.MethodGet, "/api/v2/health", "", nil)
		var resp map[string]any
		decodeJSON(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "healthy", resp["status"])
		assert.Equal(t, "disabled", resp["database_status"])
	})
}

func TestAnalyzeAudio(t *testing.T) {
	t.Parallel()

	wav, err := myaudio.EncodeWAVBytes(sine(440, 16000, 16000, 0.5), 16000)
	require.NoError(t, err)

	t.Run("wav body", func(t *testing.T) {
		t.Parallel()
		m, err := observability.NewMetrics()
		require.NoError(t, err)
		e, _, _ := setupTestEnvironment(t, WithMetrics(m))

		rec := serve(e, http.MethodPost, "/api/v2/audio/analyze", "audio/wav", wav)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp AudioAnalysisResponse
		decodeJSON(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, 16000, resp.SampleRate)
		assert.InDelta(t, 1.0, resp.Features.Duration, 1e-9)
		assert.InDelta(t, 0.5/math.Sqrt2, resp.Features.RMS, 0.01)
		assert.Equal(t, resp.Features.Duration, resp.Classification.Duration)

		analyses, err := testutil.GatherAndCount(m.Registry(), "infantguard_analyses_total")
		require.NoError(t, err)
		assert.Equal(t, 1, analyses)
	})

	t.Run("json samples", func(t *testing.T) {
		t.Parallel()
		e, _, _ := setupTestEnvironment(t)

		body, err := json.Marshal(SamplesRequest{Samples: make([]float64, 8000), SampleRate: 8000})
		require.NoError(t, err)

		rec := serve(e, http.MethodPost, "/api/v2/audio/analyze", echo.MIMEApplicationJSON, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp AudioAnalysisResponse
		decodeJSON(t, rec.Body.Bytes(), &resp)
		assert.False(t, resp.Classification.HasCrying)
		assert.False(t, resp.Classification.HasLaughter)
		assert.Zero(t, resp.Features.RMS)
	})

	tests := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{"empty body", "audio/wav", []byte{}},
		{"not audio", "application/octet-stream", []byte("hello world, not a riff")},
		{"empty samples", echo.MIMEApplicationJSON, []byte(`{"samples":[],"sampleRate":16000}`)},
		{"zero sample rate", echo.MIMEApplicationJSON, []byte(`{"samples":[0.1,0.2],"sampleRate":0}`)},
		{"malformed json", echo.MIMEApplicationJSON, []byte(`{"samples":`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _, _ := setupTestEnvironment(t)

			rec := serve(e, http.MethodPost, "/api/v2/audio/analyze", tt.contentType, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp ErrorResponse
			decodeJSON(t, rec.Body.Bytes(), &resp)
			assert.Len(t, resp.CorrelationID, 8)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func cryingRequest(image []byte) BabyStatusRequest {
	req := BabyStatusRequest{
		ImageKey: "captures/2024/03/20/image.jpg",
		AudioKey: "captures/2024/03/20/audio.wav",
		AudioFeatures: &AudioFeaturesPayload{
			RMSVolume: 0.4,
			SpectralFeatures: SpectralFeatures{
				FundamentalRatio: 0.45,
				HarmonicRatio:    0.3,
				CryBands: CryBands{
					Fundamental: 45, Harmonic1: 20, Harmonic2: 10, HighFreq: 5, TotalEnergy: 100,
				},
			},
			EnergyPattern: EnergyPattern{TransientCount: 2, SustainedEnergy: 0.8, RhythmicPattern: 0.6},
			IsCrying:      true,
			Duration:      5,
		},
	}
	if image != nil {
		req.ImageBuffer = base64.StdEncoding.EncodeToString(image)
	}
	return req
}

func TestAnalyzeBabyStatus(t *testing.T) {
	t.Parallel()

	sadFace := face.Analysis{Detected: true, Emotions: []string{"SAD"}, Confidence: 92, MouthOpen: true}

	t.Run("crying baby is saved and reported", func(t *testing.T) {
		t.Parallel()
		model := &stubCompleter{text: cryingCompletion}
		detector := &fakeDetector{analysis: sadFace}
		m, err := observability.NewMetrics()
		require.NoError(t, err)

		var hooked *judge.Verdict
		e, mockDS, c := setupTestEnvironment(t,
			WithJudge(judge.New(model, audioanalysis.DefaultThresholds())),
			WithDetector(detector),
			WithMetrics(m),
			WithVerdictHook(func(_ echo.Context, v *judge.Verdict) { hooked = v }),
		)
		c.latestCache.SetDefault("latest:10", []AnalysisResponse{})

		mockDS.On("Save", mock.Anything, mock.MatchedBy(func(r *datastore.BabyAnalysis) bool {
			return r.Status == string(judge.StatusCrying) && r.NeedsAttention &&
				r.HasCrying && r.FundamentalRatio == 0.45 && r.Emotions == "SAD"
		})).Return(nil)

		body, err := json.Marshal(cryingRequest([]byte("jpeg-bytes")))
		require.NoError(t, err)

		rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var v judge.Verdict
		decodeJSON(t, rec.Body.Bytes(), &v)
		assert.Equal(t, judge.StatusCrying, v.Status)
		assert.Equal(t, "The baby is crying loudly.", v.Analysis)
		assert.True(t, v.NeedsAttention)
		assert.True(t, v.Audio.HasCrying)
		assert.InDelta(t, 5.0, v.Audio.Duration, 1e-9)
		assert.Equal(t, "captures/2024/03/20/image.jpg", v.ImageKey)

		assert.Equal(t, []byte("jpeg-bytes"), detector.image)
		assert.Contains(t, model.prompt, "SAD")
		require.NotNil(t, hooked)
		assert.Equal(t, judge.StatusCrying, hooked.Status)

		_, cached := c.latestCache.Get("latest:10")
		assert.False(t, cached, "saving a verdict should flush the latest cache")
		assert.InDelta(t, 1, testutil.ToFloat64(m.Analysis.Verdicts.WithLabelValues("crying")), 0)
		mockDS.AssertExpectations(t)
	})

	t.Run("image resolved from store", func(t *testing.T) {
		t.Parallel()
		detector := &fakeDetector{analysis: sadFace}
		store := &memStore{objects: map[string][]byte{"captures/2024/03/20/image.jpg": []byte("stored-jpeg")}}
		e, mockDS, _ := setupTestEnvironment(t,
			WithJudge(judge.New(&stubCompleter{text: cryingCompletion}, audioanalysis.DefaultThresholds())),
			WithDetector(detector),
			WithStore(store),
		)
		mockDS.On("Save", mock.Anything, mock.Anything).Return(nil)

		body, err := json.Marshal(cryingRequest(nil))
		require.NoError(t, err)

		rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []byte("stored-jpeg"), detector.image)
	})

	t.Run("unknown image key", func(t *testing.T) {
		t.Parallel()
		e, _, _ := setupTestEnvironment(t,
			WithJudge(judge.New(&stubCompleter{}, audioanalysis.DefaultThresholds())),
			WithDetector(&fakeDetector{}),
			WithStore(&memStore{objects: map[string][]byte{}}),
		)

		body, err := json.Marshal(cryingRequest(nil))
		require.NoError(t, err)

		rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no face skips the model", func(t *testing.T) {
		t.Parallel()
		model := &stubCompleter{text: cryingCompletion}
		e, mockDS, _ := setupTestEnvironment(t,
			WithJudge(judge.New(model, audioanalysis.DefaultThresholds())),
			WithDetector(&fakeDetector{analysis: face.Analysis{Detected: false}}),
		)
		mockDS.On("Save", mock.Anything, mock.Anything).Return(nil)

		body, err := json.Marshal(cryingRequest([]byte("empty-crib")))
		require.NoError(t, err)

		rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, body)
		require.Equal(t, http.StatusOK, rec.Code)

		var v judge.Verdict
		decodeJSON(t, rec.Body.Bytes(), &v)
		assert.Equal(t, judge.StatusUnknown, v.Status)
		assert.Equal(t, judge.NoFaceAnalysis, v.Analysis)
		assert.False(t, v.NeedsAttention)
		assert.Empty(t, model.prompt)
	})

	t.Run("save failure still returns verdict", func(t *testing.T) {
		t.Parallel()
		e, mockDS, _ := setupTestEnvironment(t,
			WithJudge(judge.New(&stubCompleter{text: cryingCompletion}, audioanalysis.DefaultThresholds())),
			WithDetector(&fakeDetector{analysis: sadFace}),
		)
		mockDS.On("Save", mock.Anything, mock.Anything).Return(errors.NewStd("disk full"))

		body, err := json.Marshal(cryingRequest([]byte("jpeg")))
		require.NoError(t, err)

		rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, body)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("model failure", func(t *testing.T) {
		t.Parallel()
		model := &stubCompleter{err: errors.Newf("upstream unavailable").Category(errors.CategoryJudge).Build()}
		e, _, _ := setupTestEnvironment(t,
			WithJudge(judge.New(model, audioanalysis.DefaultThresholds())),
			WithDetector(&fakeDetector{analysis: sadFace}),
		)

		body, err := json.Marshal(cryingRequest([]byte("jpeg")))
		require.NoError(t, err)

		rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, body)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	badRequests := []struct {
		name string
		body string
	}{
		{"missing image", `{"imageKey":"a.jpg"}`},
		{"invalid base64", `{"imageBuffer":"***not base64***"}`},
		{"negative duration", `{"imageBuffer":"aGVsbG8=","audioFeatures":{"duration":-1}}`},
		{"malformed json", `{"imageBuffer":`},
	}
	for _, tt := range badRequests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _, _ := setupTestEnvironment(t,
				WithJudge(judge.New(&stubCompleter{}, audioanalysis.DefaultThresholds())),
				WithDetector(&fakeDetector{}),
			)
			rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		e, _, _ := setupTestEnvironment(t)
		rec := serve(e, http.MethodPost, "/api/v2/baby/analyze", echo.MIMEApplicationJSON, []byte(`{}`))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestDecodeImage(t *testing.T) {
	t.Parallel()

	plain := base64.StdEncoding.EncodeToString([]byte("img"))
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"plain", plain, []byte("img")},
		{"data url", "data:image/jpeg;base64," + plain, []byte("img")},
		{"surrounding whitespace", "\n" + plain + " ", []byte("img")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeImage(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAudioFeaturesPayload_Features(t *testing.T) {
	t.Parallel()

	p := cryingRequest(nil).AudioFeatures
	f, err := p.Features()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, f.RMS, 0)
	assert.InDelta(t, 100, f.Spectral.Bands.Total, 0)
	assert.Equal(t, 2, f.Temporal.TransientCount)

	p.SpectralFeatures.HarmonicRatio = math.NaN()
	_, err = p.Features()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func records(n int) []datastore.BabyAnalysis {
	base := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	out := make([]datastore.BabyAnalysis, n)
	for i := range out {
		out[i] = datastore.BabyAnalysis{
			ID:             "rec-" + string(rune('a'+i)),
			Status:         string(judge.StatusCalm),
			FaceDetected:   true,
			Emotions:       "CALM",
			Duration:       5,
			RMS:            0.02,
			NeedsAttention: i%2 == 0,
			CreatedAt:      base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestGetLatestAnalyses(t *testing.T) {
	t.Parallel()

	t.Run("cached", func(t *testing.T) {
		t.Parallel()
		e, mockDS, _ := setupTestEnvironment(t)
		mockDS.On("Latest", mock.Anything, 3).Return(records(3), nil).Once()

		for range 2 {
			rec := serve(e, http.MethodGet, "/api/v2/analyses/latest?limit=3", "", nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp []AnalysisResponse
			decodeJSON(t, rec.Body.Bytes(), &resp)
			require.Len(t, resp, 3)
			assert.Equal(t, "rec-a", resp[0].ID)
			assert.Equal(t, []string{"CALM"}, resp[0].Face.Emotions)
			require.NotNil(t, resp[0].Features)
			assert.InDelta(t, 0.02, resp[0].Features.RMS, 0)
		}
		mockDS.AssertNumberOfCalls(t, "Latest", 1)
	})

	t.Run("limit clamped", func(t *testing.T) {
		t.Parallel()
		e, mockDS, _ := setupTestEnvironment(t)
		mockDS.On("Latest", mock.Anything, maxLatestLimit).Return([]datastore.BabyAnalysis{}, nil)

		rec := serve(e, http.MethodGet, "/api/v2/analyses/latest?limit=5000", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		mockDS.AssertExpectations(t)
	})

	for _, limit := range []string{"0", "-1", "ten"} {
		t.Run("invalid limit "+limit, func(t *testing.T) {
			t.Parallel()
			e, _, _ := setupTestEnvironment(t)
			rec := serve(e, http.MethodGet, "/api/v2/analyses/latest?limit="+limit, "", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("history disabled", func(t *testing.T) {
		t.Parallel()
		e, _, _ := setupTestEnvironment(t, WithDatastore(nil))
		rec := serve(e, http.MethodGet, "/api/v2/analyses/latest", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGetAttentionAnalyses(t *testing.T) {
	t.Parallel()

	t.Run("explicit since", func(t *testing.T) {
		t.Parallel()
		e, mockDS, _ := setupTestEnvironment(t)
		since := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)
		mockDS.On("ListAttention", mock.Anything, mock.MatchedBy(func(ts time.Time) bool {
			return ts.Equal(since)
		})).Return(records(1), nil)

		rec := serve(e, http.MethodGet, "/api/v2/analyses/attention?since=2024-03-19T00:00:00Z", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []AnalysisResponse
		decodeJSON(t, rec.Body.Bytes(), &resp)
		require.Len(t, resp, 1)
		assert.True(t, resp[0].NeedsAttention)
		mockDS.AssertExpectations(t)
	})

	t.Run("default window", func(t *testing.T) {
		t.Parallel()
		e, mockDS, c := setupTestEnvironment(t)
		now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }
		mockDS.On("ListAttention", mock.Anything, now.Add(-24*time.Hour)).
			Return([]datastore.BabyAnalysis{}, nil)

		rec := serve(e, http.MethodGet, "/api/v2/analyses/attention", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
		mockDS.AssertExpectations(t)
	})

	t.Run("bad since", func(t *testing.T) {
		t.Parallel()
		e, _, _ := setupTestEnvironment(t)
		rec := serve(e, http.MethodGet, "/api/v2/analyses/attention?since=yesterday", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAnalysis(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("Get", mock.Anything, "rec-a").Return(records(1)[0], nil)
	mockDS.On("Get", mock.Anything, "missing").
		Return(datastore.BabyAnalysis{}, errors.NotFound("analysis", "missing"))

	rec := serve(e, http.MethodGet, "/api/v2/analyses/rec-a", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AnalysisResponse
	decodeJSON(t, rec.Body.Bytes(), &resp)
	assert.Equal(t, "rec-a", resp.ID)
	assert.Equal(t, judge.StatusCalm, resp.Status)

	rec = serve(e, http.MethodGet, "/api/v2/analyses/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetVoiceCommand(t *testing.T) {
	t.Parallel()

	t.Run("synthesized once", func(t *testing.T) {
		t.Parallel()
		synth := &fakeSynthesizer{audio: []byte("ID3-mp3")}
		svc := voice.NewServiceWithSynthesizer(synth, "", "Joanna", time.Minute)
		e, _, _ := setupTestEnvironment(t, WithVoice(svc))

		for range 2 {
			rec := serve(e, http.MethodGet, "/api/v2/voice/command", "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, voice.ContentType, rec.Header().Get(echo.HeaderContentType))
			assert.Equal(t, "ID3-mp3", rec.Body.String())
		}
		assert.Equal(t, 1, synth.calls)
	})

	t.Run("synthesis failure", func(t *testing.T) {
		t.Parallel()
		synth := &fakeSynthesizer{err: errors.Newf("tts down").Category(errors.CategoryVoice).Build()}
		svc := voice.NewServiceWithSynthesizer(synth, "", "Joanna", time.Minute)
		e, _, _ := setupTestEnvironment(t, WithVoice(svc))

		rec := serve(e, http.MethodGet, "/api/v2/voice/command", "", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		e, _, _ := setupTestEnvironment(t)
		rec := serve(e, http.MethodGet, "/api/v2/voice/command", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	build := func(c errors.ErrorCategory) error {
		return errors.Newf("failure").Category(c).Build()
	}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.NewStd("boom"), http.StatusInternalServerError},
		{"validation", build(errors.CategoryValidation), http.StatusBadRequest},
		{"decode", build(errors.CategoryAudioDecode), http.StatusBadRequest},
		{"not found", build(errors.CategoryNotFound), http.StatusNotFound},
		{"limit", build(errors.CategoryLimit), http.StatusTooManyRequests},
		{"timeout", build(errors.CategoryTimeout), http.StatusGatewayTimeout},
		{"upstream", build(errors.CategoryFaceDetection), http.StatusBadGateway},
		{"configuration", build(errors.CategoryConfiguration), http.StatusServiceUnavailable},
		{"database", build(errors.CategoryDatabase), http.StatusInternalServerError},
		{"joined", errors.Join(errors.NewStd("x"), build(errors.CategoryNotFound)), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestRequestMetrics(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	e, _, _ := setupTestEnvironment(t, WithMetrics(m), WithDatastore(nil))

	serve(e, http.MethodGet, "/api/v2/health", "", nil)
	serve(e, http.MethodGet, "/api/v2/analyses/latest", "", nil)

	count, err := testutil.GatherAndCount(m.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
