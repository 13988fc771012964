// Package api provides the HTTP server for infant-guard.
// The JSON endpoints live in the v2 subpackage.
package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("server")
}

// Default constants for the HTTP server.
const (
	DefaultPort            = "8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second // baby analysis waits on two hosted services
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string // empty binds all interfaces
	Port string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsEnabled mounts the Prometheus handler at /metrics.
	MetricsEnabled bool

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  true,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	if settings.WebServer.Port != "" {
		cfg.Port = settings.WebServer.Port
	}
	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return errors.Newf("invalid port %q", c.Port).
			Component("server").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.Newf("read and write timeouts must be positive").
			Component("server").
			Category(errors.CategoryConfiguration).
			Context("read_timeout", c.ReadTimeout.String()).
			Context("write_timeout", c.WriteTimeout.String()).
			Build()
	}
	return nil
}

// Address returns the address the server listens on.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, metrics=%v, debug=%v",
		c.Address(), c.MetricsEnabled, c.Debug)
}
