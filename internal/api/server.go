package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	v2 "github.com/jingnanl/infant-guard/internal/api/v2"
	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/observability"
)

// Server is the HTTP server. It owns the echo instance, the v2 API controller
// and the metrics endpoint.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	metrics  *observability.Metrics

	controllerOpts []v2.Option
	apiController  *v2.Controller

	startTime time.Time
	log       logger.Logger
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics exposes m at /metrics and records request metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithConfig overrides the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithControllerOptions passes options through to the v2 controller.
func WithControllerOptions(opts ...v2.Option) ServerOption {
	return func(s *Server) {
		s.controllerOpts = append(s.controllerOpts, opts...)
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    ConfigFromSettings(settings),
		settings:  settings,
		startTime: time.Now(),
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug
	s.echo.Logger = logger.NewEchoLoggerAdapter(s.log)

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.echo.Use(echomw.Recover())

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", s.config.Address()),
		logger.Bool("metrics", s.metrics != nil && s.config.MetricsEnabled))
	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	s.echo.GET("/health", s.healthCheck)

	if s.metrics != nil && s.config.MetricsEnabled {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	opts := s.controllerOpts
	if s.metrics != nil {
		opts = append([]v2.Option{v2.WithMetrics(s.metrics)}, opts...)
	}
	controller, err := v2.New(s.echo, s.settings, opts...)
	if err != nil {
		return errors.New(err).
			Component("server").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_api_v2").
			Build()
	}
	s.apiController = controller
	return nil
}

// healthCheck is a liveness probe that does not touch dependencies.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Address()
	s.log.Info("starting HTTP server", logger.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New(err).
				Component("server").
				Category(errors.CategoryNetwork).
				Context("address", addr).
				Build()
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return errors.New(err).
			Component("server").
			Category(errors.CategorySystem).
			Context("operation", "shutdown").
			Build()
	}
	<-errCh

	s.log.Info("server shutdown complete")
	return nil
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
