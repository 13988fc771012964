package monitor

import (
	"context"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/myaudio"
	"github.com/jingnanl/infant-guard/internal/notification"
	"github.com/jingnanl/infant-guard/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClips struct {
	mu    sync.Mutex
	calls int
	clip  myaudio.Clip
	err   error
}

func (f *fakeClips) Record(ctx context.Context) (myaudio.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return myaudio.Clip{}, err
	}
	return f.clip, f.err
}

func toneClip() myaudio.Clip {
	const sr = 16000
	samples := make([]float64, sr)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*440*float64(i)/sr)
	}
	return myaudio.Clip{Samples: samples, SampleRate: sr}
}

type fakeImages struct {
	image    []byte
	mimeType string
	err      error
}

func (f *fakeImages) Capture(context.Context) ([]byte, string, error) {
	return f.image, f.mimeType, f.err
}

type fakeDetector struct {
	mu       sync.Mutex
	calls    int
	analysis face.Analysis
	err      error
}

func (f *fakeDetector) Detect(context.Context, []byte) (face.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.analysis, f.err
}

type stubCompleter struct {
	text string
	err  error
}

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	return s.text, s.err
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]storage.ObjectInfo
	modTime time.Time
	putErr  error
}

func newMemStore(modTime time.Time) *memStore {
	return &memStore{objects: map[string]storage.ObjectInfo{}, modTime: modTime}
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) Put(_ context.Context, key string, r io.Reader) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = storage.ObjectInfo{Key: key, Size: int64(len(data)), ModTime: m.modTime}
	return nil
}

func (m *memStore) Get(context.Context, string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// fakeDatastore keeps records in memory.
type fakeDatastore struct {
	mu      sync.Mutex
	saved   []*datastore.BabyAnalysis
	saveErr error
	cutoffs []time.Time
}

func (f *fakeDatastore) Open() error { return nil }

func (f *fakeDatastore) Save(_ context.Context, rec *datastore.BabyAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeDatastore) Get(_ context.Context, id string) (datastore.BabyAnalysis, error) {
	return datastore.BabyAnalysis{}, errors.NotFound("analysis", id)
}

func (f *fakeDatastore) Latest(context.Context, int) ([]datastore.BabyAnalysis, error) {
	return nil, nil
}

func (f *fakeDatastore) ListAttention(context.Context, time.Time) ([]datastore.BabyAnalysis, error) {
	return nil, nil
}

func (f *fakeDatastore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 2, nil
}

func (f *fakeDatastore) Close() error { return nil }

func (f *fakeDatastore) records() []*datastore.BabyAnalysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*datastore.BabyAnalysis(nil), f.saved...)
}

type fakePublisher struct {
	mu       sync.Mutex
	verdicts []*judge.Verdict
	err      error
}

func (f *fakePublisher) PublishVerdict(_ context.Context, v *judge.Verdict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verdicts = append(f.verdicts, v)
	return f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*notification.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n *notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

// countingRecorder counts operations by "operation/status".
type countingRecorder struct {
	mu     sync.Mutex
	ops    map[string]int
	errors map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{ops: map[string]int{}, errors: map[string]int{}}
}

func (r *countingRecorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[operation+"/"+status]++
}

func (r *countingRecorder) RecordDuration(string, float64) {}

func (r *countingRecorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[operation+"/"+errorType]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[key]
}

func (r *countingRecorder) errorCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[key]
}
