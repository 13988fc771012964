package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/observability/metrics"
)

// client implements Client on top of paho. Reconnection after a lost
// connection is left to paho's auto-reconnect.
type client struct {
	config          Config
	internalClient  paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	metrics         *metrics.MQTTMetrics
	log             logger.Logger
}

// NewClient creates a client from settings. m may be nil.
func NewClient(settings *conf.Settings, m *metrics.MQTTMetrics) (Client, error) {
	if settings.MQTT.Broker == "" {
		return nil, errors.Newf("mqtt broker is not configured").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	cfg := DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.Main.Name
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Topic = settings.MQTT.Topic
	return NewClientWithConfig(&cfg, m), nil
}

// NewClientWithConfig creates a client from an explicit config.
func NewClientWithConfig(cfg *Config, m *metrics.MQTTMetrics) Client {
	return &client{config: *cfg, metrics: m, log: GetLogger()}
}

// Connect resolves the broker host and connects. Attempts closer together
// than ReconnectCooldown are rejected.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since.Round(time.Millisecond)).
			Component("mqtt").
			Category(errors.CategoryLimit).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		if err == nil {
			err = errors.NewStd("missing host")
		}
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Context("broker", c.config.Broker).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return c.connError(err)
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if !waitToken(ctx, token, c.config.ConnectTimeout) {
		return c.connError(errors.NewStd("connection timeout"))
	}
	if err := token.Error(); err != nil {
		return c.connError(err)
	}
	return nil
}

func (c *client) connError(err error) error {
	c.metrics.Error(metrics.MQTTStageConnect)
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTConnection).
		NetworkContext(c.config.Broker, c.config.ConnectTimeout).
		Build()
}

// Publish sends a non-retained message to topic.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	return c.PublishWithRetain(ctx, topic, payload, false)
}

// PublishWithRetain sends payload with QoS 0 and the given retain flag.
func (c *client) PublishWithRetain(ctx context.Context, topic, payload string, retain bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	c.log.Debug("publishing message",
		logger.String("topic", topic),
		logger.Int("size", len(payload)),
		logger.Bool("retain", retain))

	token := c.internalClient.Publish(topic, 0, retain, payload)
	if !waitToken(ctx, token, c.config.PublishTimeout) {
		return c.publishError(errors.NewStd("publish timeout"), topic)
	}
	if err := token.Error(); err != nil {
		return c.publishError(err, topic)
	}

	c.metrics.ObservePublish(len(payload), time.Since(start))
	return nil
}

func (c *client) publishError(err error, topic string) error {
	c.metrics.Error(metrics.MQTTStagePublish)
	c.log.Warn("publish failed", logger.String("topic", topic), logger.Error(err))
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTPublish).
		Context("topic", topic).
		Build()
}

// waitToken waits for token until timeout or ctx is done.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient == nil {
		return
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.metrics.SetConnected(false)
}

func (c *client) onConnect(paho.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
	c.metrics.SetConnected(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", c.config.Broker),
		logger.Error(err))
	c.metrics.SetConnected(false)
	c.metrics.Error(metrics.MQTTStageLost)
}

func (c *client) onReconnecting(paho.Client, *paho.ClientOptions) {
	c.metrics.Reconnecting()
}
