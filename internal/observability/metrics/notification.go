package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics covers push delivery.
type NotificationMetrics struct {
	deliveries       *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	rateLimited      prometheus.Counter
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_provider_deliveries_total",
			Help: "Total number of notification deliveries by provider, type and status",
		}, []string{"provider", "type", "status"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_provider_delivery_duration_seconds",
			Help:    "Time taken to deliver a notification",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_rate_limited_total",
			Help: "Total number of notifications dropped by the rate limiter",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

// RecordDelivery records one provider delivery attempt.
func (m *NotificationMetrics) RecordDelivery(provider, notificationType, status string, duration time.Duration) {
	m.deliveries.WithLabelValues(provider, notificationType, status).Inc()
	m.deliveryDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRateLimited counts a dropped notification.
func (m *NotificationMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.deliveries.Describe(ch)
	m.deliveryDuration.Describe(ch)
	m.rateLimited.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.deliveries.Collect(ch)
	m.deliveryDuration.Collect(ch)
	m.rateLimited.Collect(ch)
}
