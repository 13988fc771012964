package monitor

import (
	"context"
	"time"

	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/observability/metrics"
	"github.com/jingnanl/infant-guard/internal/storage"
)

func (m *Monitor) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(m.retentionInterval)
	defer ticker.Stop()

	for {
		if _, err := m.Prune(ctx); err != nil && ctx.Err() == nil {
			m.log.Warn("retention pass failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Prune deletes records and captured artifacts older than the retention
// period and reports how many records were removed.
func (m *Monitor) Prune(ctx context.Context) (int64, error) {
	if m.ds == nil || m.retention <= 0 {
		return 0, nil
	}
	cutoff := m.now().Add(-m.retention)

	var removed int64
	err := m.step(metrics.OpRetention, func() error {
		n, err := m.ds.DeleteOlderThan(ctx, cutoff)
		removed = n
		if err != nil {
			return err
		}
		if m.store != nil {
			return m.pruneArtifacts(ctx, cutoff)
		}
		return nil
	})

	if removed > 0 {
		m.log.Info("pruned old analyses",
			logger.Int64("records", removed),
			logger.Time("cutoff", cutoff))
	}
	return removed, err
}

func (m *Monitor) pruneArtifacts(ctx context.Context, cutoff time.Time) error {
	objects, err := m.store.List(ctx, storage.CapturePrefix)
	if err != nil {
		return err
	}

	var errs []error
	deleted := 0
	for _, obj := range objects {
		if obj.ModTime.IsZero() || !obj.ModTime.Before(cutoff) {
			continue
		}
		if err := m.store.Delete(ctx, obj.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		m.log.Info("pruned old captures",
			logger.Int("objects", deleted),
			logger.String("backend", m.store.Name()))
	}
	return errors.Join(errs...)
}
