// Package monitor runs the capture loop: every interval it records a clip,
// classifies it, gathers a camera snapshot, asks the judge for a verdict and
// fans the verdict out to storage, MQTT and notifications.
package monitor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/myaudio"
	"github.com/jingnanl/infant-guard/internal/notification"
	"github.com/jingnanl/infant-guard/internal/observability/metrics"
	"github.com/jingnanl/infant-guard/internal/storage"
	"github.com/jingnanl/infant-guard/internal/suncalc"
)

const componentName = "monitor"

// Default loop settings.
const (
	DefaultInterval          = 30 * time.Second
	DefaultRetentionInterval = time.Hour
)

// GetLogger returns the module logger for the monitor.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}

// ClipSource yields the most recent audio clip.
type ClipSource interface {
	Record(ctx context.Context) (myaudio.Clip, error)
}

// ImageSource yields a still image of the crib.
type ImageSource interface {
	Capture(ctx context.Context) (image []byte, mimeType string, err error)
}

// Publisher receives every verdict.
type Publisher interface {
	PublishVerdict(ctx context.Context, v *judge.Verdict) error
}

// Notifier delivers attention alerts.
type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

// Observer receives classification and verdict outcomes.
type Observer interface {
	ObserveClassification(hasCrying, hasLaughter bool, intensity float64)
	ObserveVerdict(status string, needsAttention bool)
}

// Stats summarises the loop since it started.
type Stats struct {
	Cycles      int64
	Failures    int64
	Attention   int64
	LastCycle   time.Time
	LastVerdict *judge.Verdict
}

// Monitor is the capture loop. Only clips and analyzer are required; every
// other collaborator is optional.
type Monitor struct {
	interval          time.Duration
	retention         time.Duration
	retentionInterval time.Duration
	exportAudio       bool

	clips     ClipSource
	analyzer  *audioanalysis.Analyzer
	images    ImageSource
	detector  face.Detector
	judge     *judge.Judge
	store     storage.Store
	ds        datastore.Interface
	publisher Publisher
	notifier  Notifier
	sun       *suncalc.SunCalc
	recorder  metrics.Recorder
	observer  Observer

	now func() time.Time
	log logger.Logger

	mu    sync.Mutex
	stats Stats
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the cycle interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithImages sets the snapshot source.
func WithImages(src ImageSource) Option {
	return func(m *Monitor) { m.images = src }
}

// WithDetector sets the face detector.
func WithDetector(d face.Detector) Option {
	return func(m *Monitor) { m.detector = d }
}

// WithJudge sets the judge.
func WithJudge(j *judge.Judge) Option {
	return func(m *Monitor) { m.judge = j }
}

// WithStore uploads artifacts to s. Audio is uploaded only when exportAudio is set.
func WithStore(s storage.Store, exportAudio bool) Option {
	return func(m *Monitor) {
		m.store = s
		m.exportAudio = exportAudio
	}
}

// WithDatastore saves every verdict. A positive retention prunes older
// records and artifacts.
func WithDatastore(ds datastore.Interface, retention time.Duration) Option {
	return func(m *Monitor) {
		m.ds = ds
		m.retention = retention
	}
}

// WithPublisher sets the verdict publisher.
func WithPublisher(p Publisher) Option {
	return func(m *Monitor) { m.publisher = p }
}

// WithNotifier sets the attention notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) { m.notifier = n }
}

// WithSunCalc adds day/night context to the judge prompt.
func WithSunCalc(sc *suncalc.SunCalc) Option {
	return func(m *Monitor) { m.sun = sc }
}

// WithMetrics records pipeline metrics.
func WithMetrics(am *metrics.AnalysisMetrics) Option {
	return func(m *Monitor) {
		if am != nil {
			m.recorder = am
			m.observer = am
		}
	}
}

// WithRecorder overrides the operation recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Monitor) { m.recorder = r }
}

// New creates a monitor.
func New(clips ClipSource, analyzer *audioanalysis.Analyzer, opts ...Option) (*Monitor, error) {
	if clips == nil || analyzer == nil {
		return nil, errors.Newf("monitor requires a clip source and an analyzer").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	m := &Monitor{
		interval:          DefaultInterval,
		retentionInterval: DefaultRetentionInterval,
		clips:             clips,
		analyzer:          analyzer,
		recorder:          metrics.NopRecorder{},
		now:               time.Now,
		log:               GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.interval <= 0 {
		return nil, errors.Newf("monitor interval must be positive, got %s", m.interval).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return m, nil
}

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately. A failed cycle is logged and counted; it never stops the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor started",
		logger.Duration("interval", m.interval),
		logger.Bool("images", m.images != nil),
		logger.Bool("judge", m.judge != nil),
		logger.Bool("records", m.ds != nil),
		logger.Duration("retention", m.retention))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.loop(gctx)
		return nil
	})
	if m.ds != nil && m.retention > 0 {
		g.Go(func() error {
			m.retentionLoop(gctx)
			return nil
		})
	}
	err := g.Wait()

	m.log.Info("monitor stopped", logger.Int64("cycles", m.Stats().Cycles))
	return err
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if _, err := m.RunCycle(ctx); err != nil && ctx.Err() == nil {
			m.log.Error("monitor cycle failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stats returns a snapshot of the loop statistics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Monitor) finishCycle(v *judge.Verdict, failed bool, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Cycles++
	m.stats.LastCycle = at
	if failed {
		m.stats.Failures++
	}
	if v != nil {
		m.stats.LastVerdict = v
		if v.NeedsAttention {
			m.stats.Attention++
		}
	}
}
