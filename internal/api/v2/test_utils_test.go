package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/storage"
)

// MockDataStore implements datastore.Interface for handler tests.
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	return m.Called().Error(0)
}

func (m *MockDataStore) Save(ctx context.Context, rec *datastore.BabyAnalysis) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockDataStore) Get(ctx context.Context, id string) (datastore.BabyAnalysis, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(datastore.BabyAnalysis), args.Error(1)
}

func (m *MockDataStore) Latest(ctx context.Context, limit int) ([]datastore.BabyAnalysis, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]datastore.BabyAnalysis), args.Error(1)
}

func (m *MockDataStore) ListAttention(ctx context.Context, since time.Time) ([]datastore.BabyAnalysis, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]datastore.BabyAnalysis), args.Error(1)
}

func (m *MockDataStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataStore) Close() error {
	return m.Called().Error(0)
}

// stubCompleter returns a fixed completion and remembers the prompt.
type stubCompleter struct {
	mu     sync.Mutex
	text   string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
	return s.text, s.err
}

// fakeDetector returns a fixed analysis and records the image it saw.
type fakeDetector struct {
	analysis face.Analysis
	err      error
	image    []byte
}

func (f *fakeDetector) Detect(_ context.Context, image []byte) (face.Analysis, error) {
	f.image = image
	if len(image) == 0 {
		return face.Analysis{}, errors.New(face.ErrNoImage).
			Category(errors.CategoryValidation).
			Build()
	}
	return f.analysis, f.err
}

// memStore is an in-memory storage.Store.
type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) Put(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New(storage.ErrNotFound).
			Category(errors.CategoryNotFound).
			Context("key", key).
			Build()
	}
	return data, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

// fakeSynthesizer counts synthesis calls.
type fakeSynthesizer struct {
	mu    sync.Mutex
	calls int
	audio []byte
	err   error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.audio, f.err
}

// setupTestEnvironment builds a controller on a fresh echo instance.
func setupTestEnvironment(t *testing.T, opts ...Option) (*echo.Echo, *MockDataStore, *Controller) {
	t.Helper()

	e := echo.New()
	mockDS := new(MockDataStore)
	settings := conf.DefaultSettings()

	controller, err := New(e, settings, append([]Option{WithDatastore(mockDS)}, opts...)...)
	require.NoError(t, err)
	return e, mockDS, controller
}

// serve runs a request through the full middleware chain.
func serve(e *echo.Echo, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
