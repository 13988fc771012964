package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT error stages.
const (
	MQTTStageConnect = "connect"
	MQTTStagePublish = "publish"
	MQTTStageLost    = "connection_lost"
)

// MQTTMetrics tracks the broker connection and verdict publishing.
// All methods are safe on a nil receiver.
type MQTTMetrics struct {
	// Delivered counts published verdict messages by topic suffix.
	Delivered *prometheus.CounterVec

	connected      prometheus.Gauge
	lastConnected  prometheus.Gauge
	reconnects     prometheus.Counter
	errors         *prometheus.CounterVec
	publishSeconds prometheus.Histogram
	payloadBytes   prometheus.Histogram
}

// NewMQTTMetrics creates and registers MQTT metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_verdicts_delivered_total",
			Help: "Verdict messages accepted by the broker",
		}, []string{"topic"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "1 while connected to the broker",
		}),
		lastConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_last_connected_timestamp_seconds",
			Help: "Unix time of the last successful broker connection",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_reconnects_total",
			Help: "Reconnection attempts started by the client",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "MQTT failures by stage",
		}, []string{"stage"}),
		publishSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_duration_seconds",
			Help:    "Time until the broker acknowledged a publish",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_payload_bytes",
			Help:    "Size of published payloads",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// SetConnected records the connection state.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if !connected {
		m.connected.Set(0)
		return
	}
	m.connected.Set(1)
	m.lastConnected.SetToCurrentTime()
}

// Reconnecting counts a reconnection attempt.
func (m *MQTTMetrics) Reconnecting() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// Error counts a failure at stage.
func (m *MQTTMetrics) Error(stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(stage).Inc()
}

// ObservePublish records an acknowledged publish.
func (m *MQTTMetrics) ObservePublish(size int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.payloadBytes.Observe(float64(size))
	m.publishSeconds.Observe(elapsed.Seconds())
}

// Deliver counts a verdict message published under topic suffix.
func (m *MQTTMetrics) Deliver(topic string) {
	if m == nil {
		return
	}
	m.Delivered.WithLabelValues(topic).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Delivered.Describe(ch)
	ch <- m.connected.Desc()
	ch <- m.lastConnected.Desc()
	ch <- m.reconnects.Desc()
	m.errors.Describe(ch)
	ch <- m.publishSeconds.Desc()
	ch <- m.payloadBytes.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Delivered.Collect(ch)
	ch <- m.connected
	ch <- m.lastConnected
	ch <- m.reconnects
	m.errors.Collect(ch)
	ch <- m.publishSeconds
	ch <- m.payloadBytes
}
