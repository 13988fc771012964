package notification

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/observability/metrics"
)

const componentName = "notification"

// ErrRateLimited is returned when a non-critical notification exceeds the rate limit.
var ErrRateLimited = errors.NewStd("notification rate limit exceeded")

// Service fans notifications out to the enabled providers.
type Service struct {
	providers []Provider
	limiter   *rate.Limiter
	timeout   time.Duration
	log       logger.Logger
	metrics   *metrics.NotificationMetrics

	mu     sync.Mutex
	recent []*Notification
}

// maxRecent bounds the in-memory history.
const maxRecent = 50

// NewService builds a service with a shoutrrr provider for the configured URLs.
func NewService(settings conf.NotificationSettings) (*Service, error) {
	var providers []Provider
	if settings.Enabled && len(settings.URLs) > 0 {
		p := NewShoutrrrProvider("push", true, settings.URLs, nil, settings.Timeout)
		if err := p.ValidateConfig(); err != nil {
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryConfiguration).
				Build()
		}
		providers = append(providers, p)
	}
	return NewServiceWithProviders(providers, settings.RateLimit, settings.Burst, settings.Timeout), nil
}

// NewServiceWithProviders creates a service; perMinute <= 0 disables rate limiting.
func NewServiceWithProviders(providers []Provider, perMinute float64, burst int, timeout time.Duration) *Service {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst <= 0 {
		burst = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		providers: providers,
		limiter:   rate.NewLimiter(limit, burst),
		timeout:   timeout,
		log:       logger.Global().Module(componentName),
	}
}

// SetMetrics enables delivery metrics.
func (s *Service) SetMetrics(m *metrics.NotificationMetrics) {
	s.metrics = m
}

// HasProviders reports whether any provider is enabled.
func (s *Service) HasProviders() bool {
	for _, p := range s.providers {
		if p.IsEnabled() {
			return true
		}
	}
	return false
}

// Notify delivers n to every enabled provider that supports its type and
// returns the joined provider errors. Critical notifications bypass the
// rate limit.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if n.Priority != PriorityCritical && !s.limiter.Allow() {
		s.log.Warn("notification dropped by rate limit",
			logger.String("id", n.ID),
			logger.String("type", string(n.Type)))
		if s.metrics != nil {
			s.metrics.RecordRateLimited()
		}
		return errors.New(ErrRateLimited).
			Component(componentName).
			Category(errors.CategoryLimit).
			Build()
	}
	s.remember(n)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, p := range s.providers {
		if !p.IsEnabled() || !p.SupportsType(n.Type) {
			continue
		}
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			start := time.Now()
			err := p.Send(ctx, n)
			s.recordDelivery(p.GetName(), n.Type, err, time.Since(start))
			if err != nil {
				s.log.Error("notification delivery failed",
					logger.String("provider", p.GetName()),
					logger.String("id", n.ID),
					logger.Error(err))
				mu.Lock()
				errs = append(errs, errors.New(err).
					Component(componentName).
					Category(errors.CategoryNotification).
					Context("provider", p.GetName()).
					Build())
				mu.Unlock()
				return
			}
			s.log.Info("notification delivered",
				logger.String("provider", p.GetName()),
				logger.String("id", n.ID),
				logger.String("priority", string(n.Priority)),
				logger.Duration("elapsed", time.Since(start)))
		}(p)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Service) recordDelivery(provider string, t Type, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	s.metrics.RecordDelivery(provider, string(t), status, elapsed)
}

func (s *Service) remember(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, n)
	if len(s.recent) > maxRecent {
		s.recent = s.recent[len(s.recent)-maxRecent:]
	}
}

// Recent returns up to limit notifications, newest first.
func (s *Service) Recent(limit int) []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]*Notification, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.recent[i])
	}
	return out
}
