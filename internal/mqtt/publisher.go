package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/observability/metrics"
)

// Topic suffixes below the configured base topic.
const (
	TopicAnalysis     = "analysis"
	TopicAttention    = "attention"
	TopicAvailability = "status"
)

// VerdictPublisher publishes verdicts below a base topic.
type VerdictPublisher struct {
	client    Client
	baseTopic string
	node      string
	metrics   *metrics.MQTTMetrics
}

// NewVerdictPublisher creates a publisher. m may be nil.
func NewVerdictPublisher(client Client, baseTopic, node string, m *metrics.MQTTMetrics) *VerdictPublisher {
	return &VerdictPublisher{
		client:    client,
		baseTopic: strings.TrimSuffix(baseTopic, "/"),
		node:      node,
		metrics:   m,
	}
}

// Topic joins suffix onto the base topic.
func (p *VerdictPublisher) Topic(suffix string) string {
	return p.baseTopic + "/" + suffix
}

// PublishVerdict publishes v to the analysis topic and, when the baby needs
// attention, an event to the attention topic.
func (p *VerdictPublisher) PublishVerdict(ctx context.Context, v *judge.Verdict) error {
	if err := p.publishJSON(ctx, TopicAnalysis, NewVerdictDTO(p.node, v)); err != nil {
		return err
	}
	if !v.NeedsAttention {
		return nil
	}
	return p.publishJSON(ctx, TopicAttention, NewAttentionDTO(p.node, v))
}

// PublishAvailability publishes a retained online/offline state.
func (p *VerdictPublisher) PublishAvailability(ctx context.Context, online bool) error {
	state := "offline"
	if online {
		state = "online"
	}
	return p.client.PublishWithRetain(ctx, p.Topic(TopicAvailability), state, true)
}

func (p *VerdictPublisher) publishJSON(ctx context.Context, suffix string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}
	topic := p.Topic(suffix)
	if err := p.client.Publish(ctx, topic, string(data)); err != nil {
		return err
	}
	p.metrics.Deliver(suffix)
	GetLogger().Debug("verdict published", logger.String("topic", topic))
	return nil
}
