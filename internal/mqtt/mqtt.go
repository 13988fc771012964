// Package mqtt publishes analysis verdicts to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/jingnanl/infant-guard/internal/logger"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a non-retained message to topic.
	Publish(ctx context.Context, topic string, payload string) error

	// PublishWithRetain sends a message with an explicit retain flag.
	PublishWithRetain(ctx context.Context, topic string, payload string, retain bool) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string // base topic; analysis and attention are published below it
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
