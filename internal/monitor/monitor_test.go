package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/notification"
	"github.com/jingnanl/infant-guard/internal/observability/metrics"
	"github.com/jingnanl/infant-guard/internal/storage"
	"github.com/jingnanl/infant-guard/internal/suncalc"
)

const cryingCompletion = "<STATUS>crying</STATUS><ANALYSIS>Crying with a red face.</ANALYSIS>"

var captureTime = time.Date(2024, 3, 20, 22, 15, 0, 0, time.UTC)

func newAnalyzer(t *testing.T) *audioanalysis.Analyzer {
	t.Helper()
	a, err := audioanalysis.NewAnalyzer(audioanalysis.DefaultThresholds())
	require.NoError(t, err)
	return a
}

type pipeline struct {
	clips     *fakeClips
	images    *fakeImages
	detector  *fakeDetector
	store     *memStore
	ds        *fakeDatastore
	publisher *fakePublisher
	notifier  *fakeNotifier
	recorder  *countingRecorder
}

func newPipeline() *pipeline {
	return &pipeline{
		clips:     &fakeClips{clip: toneClip()},
		images:    &fakeImages{image: []byte("jpeg"), mimeType: "image/jpeg"},
		detector:  &fakeDetector{analysis: face.Analysis{Detected: true, Emotions: []string{"SAD"}, Confidence: 90}},
		store:     newMemStore(captureTime),
		ds:        &fakeDatastore{},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		recorder:  newCountingRecorder(),
	}
}

func (p *pipeline) monitor(t *testing.T, completer judge.Completer, extra ...Option) *Monitor {
	t.Helper()
	opts := []Option{
		WithImages(p.images),
		WithDetector(p.detector),
		WithJudge(judge.New(completer, audioanalysis.DefaultThresholds())),
		WithStore(p.store, true),
		WithDatastore(p.ds, 0),
		WithPublisher(p.publisher),
		WithNotifier(p.notifier),
		WithRecorder(p.recorder),
	}
	m, err := New(p.clips, newAnalyzer(t), append(opts, extra...)...)
	require.NoError(t, err)
	m.now = func() time.Time { return captureTime }
	return m
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, newAnalyzer(t))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = New(&fakeClips{}, nil)
	require.Error(t, err)

	_, err = New(&fakeClips{}, newAnalyzer(t), WithInterval(0))
	require.Error(t, err)

	m, err := New(&fakeClips{}, newAnalyzer(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, m.interval)
}

func TestRunCycle_FullPipeline(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	m := p.monitor(t, stubCompleter{text: cryingCompletion})

	v, err := m.RunCycle(t.Context())
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, judge.StatusCrying, v.Status)
	assert.Equal(t, "Crying with a red face.", v.Analysis)
	assert.True(t, v.NeedsAttention)
	assert.Equal(t, storage.CaptureKey(captureTime, "wav"), v.AudioKey)
	assert.Equal(t, storage.CaptureKey(captureTime, "jpg"), v.ImageKey)
	assert.ElementsMatch(t, []string{v.AudioKey, v.ImageKey}, p.store.keys())

	recs := p.ds.records()
	require.Len(t, recs, 1)
	assert.Equal(t, v.AudioKey, recs[0].AudioKey)
	assert.Equal(t, "crying", recs[0].Status)
	assert.InDelta(t, 1.0, recs[0].Duration, 1e-9)

	require.Len(t, p.publisher.verdicts, 1)
	require.Len(t, p.notifier.sent, 1)
	assert.Equal(t, notification.TypeAttention, p.notifier.sent[0].Type)

	for _, op := range []string{
		metrics.OpRecord, metrics.OpAnalyze, metrics.OpSnapshot, metrics.OpFace,
		metrics.OpJudge, metrics.OpSave, metrics.OpPublish, metrics.OpNotify, metrics.OpCycle,
	} {
		assert.Equal(t, 1, p.recorder.count(op+"/"+metrics.StatusSuccess), op)
	}
	assert.Equal(t, 2, p.recorder.count(metrics.OpUpload+"/"+metrics.StatusSuccess))

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Cycles)
	assert.Equal(t, int64(0), stats.Failures)
	assert.Equal(t, int64(1), stats.Attention)
	assert.Equal(t, captureTime, stats.LastCycle)
	assert.Same(t, v, stats.LastVerdict)
}

func TestRunCycle_CalmBabyIsNotNotified(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	p.detector.analysis = face.Analysis{Detected: true, Emotions: []string{"CALM"}, EyesOpen: false}
	m := p.monitor(t, stubCompleter{text: "<STATUS>sleeping</STATUS><ANALYSIS>Sound asleep.</ANALYSIS>"})

	v, err := m.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, judge.StatusSleeping, v.Status)
	assert.False(t, v.NeedsAttention)
	assert.Len(t, p.publisher.verdicts, 1)
	assert.Empty(t, p.notifier.sent)
}

func TestRunCycle_RecordFailure(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	p.clips.err = errors.Newf("device unplugged").Category(errors.CategoryAudioSource).Build()
	m := p.monitor(t, stubCompleter{text: cryingCompletion})

	v, err := m.RunCycle(t.Context())
	require.Error(t, err)
	assert.Nil(t, v)

	assert.Equal(t, 1, p.recorder.count(metrics.OpRecord+"/"+metrics.StatusError))
	assert.Equal(t, 1, p.recorder.errorCount(metrics.OpRecord+"/"+string(errors.CategoryAudioSource)))
	assert.Equal(t, 1, p.recorder.count(metrics.OpCycle+"/"+metrics.StatusError))
	assert.Zero(t, p.detector.calls)
	assert.Empty(t, p.ds.records())

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Cycles)
	assert.Equal(t, int64(1), stats.Failures)
	assert.Nil(t, stats.LastVerdict)
}

func TestRunCycle_AudioOnly(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	m, err := New(p.clips, newAnalyzer(t), WithDatastore(p.ds, 0), WithRecorder(p.recorder))
	require.NoError(t, err)

	v, err := m.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, judge.StatusUnknown, v.Status)
	assert.Equal(t, "Audio only assessment", v.Analysis)
	assert.False(t, v.Face.Detected)
	assert.NotNil(t, v.Face.Emotions)
	assert.InDelta(t, 1.0, v.Audio.Duration, 1e-9)
	assert.Empty(t, v.AudioKey, "no store configured")
	assert.Len(t, p.ds.records(), 1)
	assert.Zero(t, p.recorder.count(metrics.OpFace+"/"+metrics.StatusSuccess))
}

func TestRunCycle_SnapshotFailureFallsBackToAudio(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	p.images.err = errors.Newf("camera offline").Category(errors.CategoryNetwork).Build()
	m := p.monitor(t, stubCompleter{text: cryingCompletion})

	v, err := m.RunCycle(t.Context())
	require.Error(t, err)
	require.NotNil(t, v, "verdict is still produced")
	assert.Contains(t, err.Error(), "camera offline")
	assert.Equal(t, judge.StatusUnknown, v.Status)
	assert.Empty(t, v.ImageKey)
	assert.NotEmpty(t, v.AudioKey)
	assert.Zero(t, p.detector.calls)
	assert.Len(t, p.ds.records(), 1)
	assert.Equal(t, int64(1), m.Stats().Failures)
}

func TestRunCycle_JudgeFailure(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	m := p.monitor(t, stubCompleter{err: errors.Newf("model overloaded").Category(errors.CategoryJudge).Build()})

	v, err := m.RunCycle(t.Context())
	require.Error(t, err)
	assert.Nil(t, v)
	assert.True(t, errors.IsCategory(err, errors.CategoryJudge))
	assert.Empty(t, p.ds.records())
	assert.Empty(t, p.publisher.verdicts)
	assert.Equal(t, 1, p.recorder.count(metrics.OpJudge+"/"+metrics.StatusError))
}

func TestRunCycle_DeliveryFailuresAreIndependent(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	p.ds.saveErr = errors.NewStd("database is locked")
	p.publisher.err = errors.NewStd("broker unreachable")
	m := p.monitor(t, stubCompleter{text: cryingCompletion})

	v, err := m.RunCycle(t.Context())
	require.Error(t, err)
	require.NotNil(t, v)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Contains(t, err.Error(), "broker unreachable")
	assert.Len(t, p.notifier.sent, 1, "notification is sent despite earlier failures")
}

func TestRunCycle_RateLimitedNotification(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	p.notifier.err = errors.New(notification.ErrRateLimited).Category(errors.CategoryLimit).Build()
	m := p.monitor(t, stubCompleter{text: cryingCompletion})

	_, err := m.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, p.recorder.count(metrics.OpNotify+"/"+metrics.StatusSkipped))
}

func TestRunCycle_UploadFailure(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	p.store.putErr = errors.New(storage.ErrInsufficientSpace).Category(errors.CategoryStorage).Build()
	m := p.monitor(t, stubCompleter{text: cryingCompletion})

	v, err := m.RunCycle(t.Context())
	require.Error(t, err)
	require.NotNil(t, v)
	assert.Empty(t, v.AudioKey)
	assert.Empty(t, v.ImageKey)
	assert.Equal(t, judge.StatusCrying, v.Status, "the image is judged even when it cannot be stored")
	assert.Equal(t, 2, p.recorder.errorCount(metrics.OpUpload+"/"+string(errors.CategoryStorage)))
}

func TestRunCycle_DaylightInPrompt(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	var prompt string
	completer := completerFunc(func(_ context.Context, pr string) (string, error) {
		prompt = pr
		return cryingCompletion, nil
	})
	sc := suncalc.NewSunCalc(60.1699, 24.9384, time.UTC)
	m := p.monitor(t, completer, WithSunCalc(sc))

	_, err := m.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Contains(t, prompt, "night")
}

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestWithMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	am, err := metrics.NewAnalysisMetrics(reg)
	require.NoError(t, err)

	p := newPipeline()
	m, err := New(p.clips, newAnalyzer(t), WithMetrics(am))
	require.NoError(t, err)

	_, err = m.RunCycle(t.Context())
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(am.Operations.WithLabelValues(metrics.OpCycle, metrics.StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(am.Verdicts.WithLabelValues(string(judge.StatusUnknown))), 0)
}

func TestRun_KeepsGoingAfterFailures(t *testing.T) {
	t.Parallel()

	clips := &fakeClips{err: errors.NewStd("no device")}
	m, err := New(clips, newAnalyzer(t), WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return m.Stats().Failures >= 3
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	m, err := New(p.clips, newAnalyzer(t),
		WithInterval(time.Hour),
		WithDatastore(p.ds, 24*time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return m.Stats().Cycles == 1
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, int64(1), m.Stats().Cycles)
}

func TestPrune(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	old := newMemStore(captureTime.Add(-48 * time.Hour))
	m, err := New(p.clips, newAnalyzer(t),
		WithStore(old, true),
		WithDatastore(p.ds, 24*time.Hour),
		WithRecorder(p.recorder))
	require.NoError(t, err)
	m.now = func() time.Time { return captureTime }

	ctx := t.Context()
	require.NoError(t, old.Put(ctx, storage.CaptureKey(captureTime.Add(-48*time.Hour), "wav"), strings.NewReader("old")))
	old.modTime = captureTime
	require.NoError(t, old.Put(ctx, storage.CaptureKey(captureTime, "wav"), strings.NewReader("new")))
	require.NoError(t, old.Put(ctx, "exports/keep.wav", strings.NewReader("other prefix")))

	removed, err := m.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	require.Len(t, p.ds.cutoffs, 1)
	assert.Equal(t, captureTime.Add(-24*time.Hour), p.ds.cutoffs[0])
	assert.ElementsMatch(t,
		[]string{storage.CaptureKey(captureTime, "wav"), "exports/keep.wav"},
		old.keys())
	assert.Equal(t, 1, p.recorder.count(metrics.OpRetention+"/"+metrics.StatusSuccess))
}

func TestPrune_Disabled(t *testing.T) {
	t.Parallel()

	p := newPipeline()
	m, err := New(p.clips, newAnalyzer(t), WithDatastore(p.ds, 0))
	require.NoError(t, err)

	removed, err := m.Prune(t.Context())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Empty(t, p.ds.cutoffs)
}

func TestImageExtension(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/webp": "webp",
		"":           "jpg",
	}
	for mimeType, want := range tests {
		assert.Equal(t, want, imageExtension(mimeType), mimeType)
	}
}
