package monitor

import (
	"bytes"
	"context"
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
)

// capture is what one cycle gathered before judging.
type capture struct {
	at       time.Time
	clip     myaudio.Clip
	result   audioanalysis.Result
	audioKey string
	image    []byte
	imageKey string
}

// RunCycle performs one capture and judgement. The verdict is returned even
// when a downstream step fails; the error then joins every failed step.
func (m *Monitor) RunCycle(ctx context.Context) (*judge.Verdict, error) {
	start := time.Now()
	c := &capture{at: m.now()}

	v, err := m.runCycle(ctx, c)

	m.recorder.RecordDuration(metrics.OpCycle, time.Since(start).Seconds())
	if err != nil {
		m.recorder.RecordOperation(metrics.OpCycle, metrics.StatusError)
	} else {
		m.recorder.RecordOperation(metrics.OpCycle, metrics.StatusSuccess)
	}
	m.finishCycle(v, err != nil, c.at)
	return v, err
}

func (m *Monitor) runCycle(ctx context.Context, c *capture) (*judge.Verdict, error) {
	if err := m.step(metrics.OpRecord, func() error {
		clip, err := m.clips.Record(ctx)
		c.clip = clip
		return err
	}); err != nil {
		return nil, err
	}

	if err := m.step(metrics.OpAnalyze, func() error {
		res, err := m.analyzer.Analyze(c.clip.Samples, c.clip.SampleRate)
		c.result = res
		return err
	}); err != nil {
		return nil, err
	}

	cls := c.result.Classification
	if m.observer != nil {
		m.observer.ObserveClassification(cls.HasCrying, cls.HasLaughter, cls.Intensity)
	}
	m.log.Debug("clip analyzed",
		logger.Bool("crying", cls.HasCrying),
		logger.Bool("laughter", cls.HasLaughter),
		logger.Float64("intensity", cls.Intensity),
		logger.Float64("rms", c.result.Features.RMS))

	// Artifact failures are not fatal; the verdict can be formed without them.
	var sideErrs []error
	if err := m.gather(ctx, c); err != nil {
		sideErrs = append(sideErrs, err)
	}

	v, err := m.judgeCapture(ctx, c)
	if err != nil {
		return nil, errors.Join(append(sideErrs, err)...)
	}
	if m.observer != nil {
		m.observer.ObserveVerdict(string(v.Status), v.NeedsAttention)
	}

	sideErrs = append(sideErrs, m.deliver(ctx, c, v)...)
	if len(sideErrs) > 0 {
		return v, errors.Join(sideErrs...)
	}
	return v, nil
}

// gather uploads the clip and captures and uploads a snapshot in parallel.
func (m *Monitor) gather(ctx context.Context, c *capture) error {
	var g errgroup.Group
	var audioErr, imageErr error

	if m.store != nil && m.exportAudio {
		g.Go(func() error {
			audioErr = m.uploadAudio(ctx, c)
			return nil
		})
	}
	if m.images != nil {
		g.Go(func() error {
			imageErr = m.captureImage(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(audioErr, imageErr)
}

func (m *Monitor) uploadAudio(ctx context.Context, c *capture) error {
	key := storage.CaptureKey(c.at, "wav")
	err := m.step(metrics.OpUpload, func() error {
		data, err := myaudio.EncodeWAVBytes(c.clip.Samples, c.clip.SampleRate)
		if err != nil {
			return err
		}
		return m.store.Put(ctx, key, bytes.NewReader(data))
	})
	if err != nil {
		m.log.Warn("audio upload failed", logger.String("key", key), logger.Error(err))
		return err
	}
	c.audioKey = key
	return nil
}

func (m *Monitor) captureImage(ctx context.Context, c *capture) error {
	var mimeType string
	err := m.step(metrics.OpSnapshot, func() error {
		img, mt, err := m.images.Capture(ctx)
		c.image, mimeType = img, mt
		return err
	})
	if err != nil {
		m.log.Warn("snapshot failed", logger.Error(err))
		return err
	}
	if m.store == nil {
		return nil
	}

	key := storage.CaptureKey(c.at, imageExtension(mimeType))
	if err := m.step(metrics.OpUpload, func() error {
		return m.store.Put(ctx, key, bytes.NewReader(c.image))
	}); err != nil {
		m.log.Warn("image upload failed", logger.String("key", key), logger.Error(err))
		return err
	}
	c.imageKey = key
	return nil
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

// judgeCapture forms the verdict. Without an image, detector or judge the
// verdict rests on the audio alone.
func (m *Monitor) judgeCapture(ctx context.Context, c *capture) (*judge.Verdict, error) {
	features := c.result.Features
	ev := judge.Evidence{
		ImageKey: c.imageKey,
		AudioKey: c.audioKey,
		Features: &features,
		IsCrying: c.result.Classification.HasCrying,
	}
	if m.sun != nil {
		ev.Daylight = m.sun.Describe(c.at)
	}

	if len(c.image) == 0 || m.detector == nil || m.judge == nil {
		v := audioOnlyVerdict(ev, m.analyzer.Thresholds(), c.at)
		return &v, nil
	}

	if err := m.step(metrics.OpFace, func() error {
		fa, err := m.detector.Detect(ctx, c.image)
		ev.Face = fa
		return err
	}); err != nil {
		return nil, err
	}

	var v judge.Verdict
	if err := m.step(metrics.OpJudge, func() error {
		var err error
		v, err = m.judge.Evaluate(ctx, ev)
		return err
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

// audioOnlyVerdict applies the attention rules to the audio evidence.
func audioOnlyVerdict(ev judge.Evidence, th audioanalysis.Thresholds, at time.Time) judge.Verdict {
	audio := judge.Reassess(ev.Features, ev.IsCrying, th)
	fa := face.Analysis{Emotions: []string{}}
	return judge.Verdict{
		ImageKey:       ev.ImageKey,
		AudioKey:       ev.AudioKey,
		Status:         judge.StatusUnknown,
		Analysis:       "Audio only assessment",
		Face:           fa,
		Audio:          audio,
		NeedsAttention: judge.NeedsAttention(judge.StatusUnknown, fa, audio),
		CreatedAt:      at.UTC(),
	}
}

// deliver saves, publishes and notifies. Each failure is returned and the
// remaining steps still run.
func (m *Monitor) deliver(ctx context.Context, c *capture, v *judge.Verdict) []error {
	var errs []error

	if m.ds != nil {
		features := c.result.Features
		if err := m.step(metrics.OpSave, func() error {
			return m.ds.Save(ctx, datastore.FromVerdict(v, &features))
		}); err != nil {
			m.log.Error("failed to save analysis", logger.Error(err))
			errs = append(errs, err)
		}
	}

	if m.publisher != nil {
		if err := m.step(metrics.OpPublish, func() error {
			return m.publisher.PublishVerdict(ctx, v)
		}); err != nil {
			m.log.Warn("failed to publish verdict", logger.Error(err))
			errs = append(errs, err)
		}
	}

	if m.notifier != nil && v.NeedsAttention {
		err := m.notifier.Notify(ctx, notification.FromVerdict(v))
		switch {
		case err == nil:
			m.recorder.RecordOperation(metrics.OpNotify, metrics.StatusSuccess)
		case errors.Is(err, notification.ErrRateLimited):
			m.recorder.RecordOperation(metrics.OpNotify, metrics.StatusSkipped)
			m.log.Info("attention notification rate limited",
				logger.String("status", string(v.Status)))
		default:
			m.recorder.RecordOperation(metrics.OpNotify, metrics.StatusError)
			m.recorder.RecordError(metrics.OpNotify, categoryOf(err))
			m.log.Error("failed to send attention notification", logger.Error(err))
			errs = append(errs, err)
		}
	}

	if v.NeedsAttention {
		m.log.Warn("baby needs attention",
			logger.String("status", string(v.Status)),
			logger.Bool("crying", v.Audio.HasCrying),
			logger.Float64("intensity", v.Audio.Intensity),
			logger.String("image_key", v.ImageKey))
	}
	return errs
}

// step runs fn as operation op and records its outcome and duration.
func (m *Monitor) step(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.recorder.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		m.recorder.RecordOperation(op, metrics.StatusError)
		m.recorder.RecordError(op, categoryOf(err))
		return err
	}
	m.recorder.RecordOperation(op, metrics.StatusSuccess)
	return nil
}

func categoryOf(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
