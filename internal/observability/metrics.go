// Package observability wires the Prometheus collectors for infant-guard.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jingnanl/infant-guard/internal/httpclient"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	Analysis     *metrics.AnalysisMetrics
	MQTT         *metrics.MQTTMetrics
	HTTP         *metrics.HTTPMetrics
	Notification *metrics.NotificationMetrics
}

// NewMetrics creates a registry with every collector registered. Each call
// returns an independent registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	analysisMetrics, err := metrics.NewAnalysisMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	notificationMetrics, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}

	return &Metrics{
		registry:     registry,
		Analysis:     analysisMetrics,
		MQTT:         mqttMetrics,
		HTTP:         httpMetrics,
		Notification: notificationMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{log: logger.Global().Module("metrics")},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// InstrumentClient records every request c makes to its hosted service.
func (m *Metrics) InstrumentClient(c *httpclient.Client) {
	if c == nil {
		return
	}
	c.SetAfterResponseHook(func(service string, _ *http.Request, resp *http.Response, _ error, elapsed time.Duration) {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.HTTP.RecordUpstream(service, status, elapsed)
	})
}

// promLogger adapts the module logger to promhttp.Logger.
type promLogger struct {
	log logger.Logger
}

func (p promLogger) Println(v ...any) {
	p.log.Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
