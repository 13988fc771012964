package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics covers clip classification and the monitor pipeline.
type AnalysisMetrics struct {
	Analyses          *prometheus.CounterVec
	Verdicts          *prometheus.CounterVec
	Intensity         prometheus.Histogram
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Errors            *prometheus.CounterVec
	LastAnalysisTime  prometheus.Gauge
}

// NewAnalysisMetrics creates and registers the analysis collectors.
func NewAnalysisMetrics(registry *prometheus.Registry) (*AnalysisMetrics, error) {
	m := &AnalysisMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register analysis metrics: %w", err)
	}
	return m, nil
}

func (m *AnalysisMetrics) initMetrics() {
	m.Analyses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infantguard_analyses_total",
		Help: "Total number of analyzed audio clips by outcome",
	}, []string{"outcome"}) // crying, laughter, quiet, attention

	m.Verdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infantguard_verdicts_total",
		Help: "Total number of judge verdicts by status",
	}, []string{"status"})

	m.Intensity = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "infantguard_sound_intensity",
		Help:    "Distribution of clip sound intensity",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	m.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infantguard_operations_total",
		Help: "Total number of pipeline operations by status",
	}, []string{"operation", "status"})

	m.OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "infantguard_operation_duration_seconds",
		Help:    "Duration of pipeline operations",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"operation"})

	m.Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infantguard_errors_total",
		Help: "Total number of pipeline errors by operation and category",
	}, []string{"operation", "category"})

	m.LastAnalysisTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "infantguard_last_analysis_timestamp_seconds",
		Help: "Timestamp of the last analyzed clip",
	})
}

// ObserveClassification records one classified clip.
func (m *AnalysisMetrics) ObserveClassification(hasCrying, hasLaughter bool, intensity float64) {
	switch {
	case hasCrying:
		m.Analyses.WithLabelValues(OutcomeCrying).Inc()
	case hasLaughter:
		m.Analyses.WithLabelValues(OutcomeLaughter).Inc()
	default:
		m.Analyses.WithLabelValues(OutcomeQuiet).Inc()
	}
	m.Intensity.Observe(intensity)
	m.LastAnalysisTime.SetToCurrentTime()
}

// ObserveVerdict records a judge verdict.
func (m *AnalysisMetrics) ObserveVerdict(status string, needsAttention bool) {
	m.Verdicts.WithLabelValues(status).Inc()
	if needsAttention {
		m.Analyses.WithLabelValues(OutcomeAttention).Inc()
	}
}

// RecordOperation implements Recorder.
func (m *AnalysisMetrics) RecordOperation(operation, status string) {
	m.Operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *AnalysisMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *AnalysisMetrics) RecordError(operation, errorType string) {
	m.Errors.WithLabelValues(operation, errorType).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *AnalysisMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Analyses.Describe(ch)
	m.Verdicts.Describe(ch)
	m.Intensity.Describe(ch)
	m.Operations.Describe(ch)
	m.OperationDuration.Describe(ch)
	m.Errors.Describe(ch)
	m.LastAnalysisTime.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *AnalysisMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Analyses.Collect(ch)
	m.Verdicts.Collect(ch)
	m.Intensity.Collect(ch)
	m.Operations.Collect(ch)
	m.OperationDuration.Collect(ch)
	m.Errors.Collect(ch)
	m.LastAnalysisTime.Collect(ch)
}

var _ Recorder = (*AnalysisMetrics)(nil)
