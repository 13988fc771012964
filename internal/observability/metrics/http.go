package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics covers the API server and calls to hosted services.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status_code"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Time taken for HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.upstreamTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Total number of requests to hosted services",
	}, []string{"service", "status_code"}) // status_code is "error" for transport failures

	m.upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Latency of requests to hosted services",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"service"})
}

// RecordRequest records a served API request.
func (m *HTTPMetrics) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordUpstream records a request to a hosted service; statusCode 0 means
// the request failed before a response arrived.
func (m *HTTPMetrics) RecordUpstream(service string, statusCode int, duration time.Duration) {
	code := StatusError
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	m.upstreamTotal.WithLabelValues(service, code).Inc()
	m.upstreamDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.upstreamTotal.Describe(ch)
	m.upstreamDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.upstreamTotal.Collect(ch)
	m.upstreamDuration.Collect(ch)
}
