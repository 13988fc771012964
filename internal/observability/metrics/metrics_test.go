package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewAnalysisMetrics(reg)
	require.NoError(t, err)

	m.ObserveClassification(true, false, 0.9)
	m.ObserveClassification(false, true, 0.5)
	m.ObserveClassification(false, false, 0.1)
	m.ObserveClassification(true, true, 0.7)
	m.ObserveVerdict("crying", true)
	m.ObserveVerdict("calm", false)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Analyses.WithLabelValues(OutcomeCrying)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Analyses.WithLabelValues(OutcomeLaughter)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Analyses.WithLabelValues(OutcomeQuiet)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Analyses.WithLabelValues(OutcomeAttention)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Verdicts.WithLabelValues("calm")), 0)

	var hist dto.Metric
	require.NoError(t, m.Intensity.Write(&hist))
	assert.Equal(t, uint64(4), hist.GetHistogram().GetSampleCount())
	assert.InDelta(t, 2.2, hist.GetHistogram().GetSampleSum(), 1e-9)
}

func TestAnalysisMetrics_Recorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewAnalysisMetrics(reg)
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation(OpJudge, StatusSuccess)
	r.RecordOperation(OpJudge, StatusSuccess)
	r.RecordOperation(OpUpload, StatusError)
	r.RecordError(OpUpload, "network")
	r.RecordDuration(OpCycle, 1.5)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Operations.WithLabelValues(OpJudge, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors.WithLabelValues(OpUpload, "network")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewMQTTMetrics(reg)
	require.NoError(t, err)
	_, err = NewMQTTMetrics(reg)
	require.Error(t, err)
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetConnected(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.connected), 0)
	assert.Positive(t, testutil.ToFloat64(m.lastConnected))

	m.Deliver("analysis")
	m.Deliver("attention")
	m.Deliver("analysis")
	assert.InDelta(t, 2, testutil.ToFloat64(m.Delivered.WithLabelValues("analysis")), 0)

	m.ObservePublish(512, 4*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.publishSeconds))

	m.Error(MQTTStageLost)
	m.Reconnecting()
	m.SetConnected(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.connected), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errors.WithLabelValues(MQTTStageLost)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.reconnects), 0)
}

func TestMQTTMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var m *MQTTMetrics
	assert.NotPanics(t, func() {
		m.SetConnected(true)
		m.Deliver("analysis")
		m.Error(MQTTStagePublish)
		m.ObservePublish(1, time.Millisecond)
		m.Reconnecting()
	})
}

func TestHTTPMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRequest("GET", "/api/v2/health", 200, 3*time.Millisecond)
	m.RecordUpstream("judge", 200, 800*time.Millisecond)
	m.RecordUpstream("judge", 0, time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/v2/health", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.upstreamTotal.WithLabelValues("judge", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.upstreamTotal.WithLabelValues("judge", StatusError)), 0)
}

func TestNotificationMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewNotificationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordDelivery("push", "attention", StatusSuccess, 200*time.Millisecond)
	m.RecordRateLimited()
	m.RecordRateLimited()

	assert.InDelta(t, 1, testutil.ToFloat64(m.deliveries.WithLabelValues("push", "attention", StatusSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.rateLimited), 0)
}
