// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/observability"
	"github.com/jingnanl/infant-guard/internal/storage"
	"github.com/jingnanl/infant-guard/internal/suncalc"
	"github.com/jingnanl/infant-guard/internal/voice"
)

const (
	// DefaultBodyLimit caps request bodies; base64 images and WAV clips fit well below it.
	DefaultBodyLimit = "20M"

	latestCacheTTL = 10 * time.Second
)

// VerdictHook is called with every verdict produced through the API.
type VerdictHook func(ctx echo.Context, v *judge.Verdict)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings
	DS       datastore.Interface
	Analyzer *audioanalysis.Analyzer
	Judge    *judge.Judge
	Detector face.Detector
	Store    storage.Store
	Voice    *voice.Service

	Version   string
	metrics   *observability.Metrics
	onVerdict VerdictHook

	latestCache *cache.Cache
	sun         *suncalc.SunCalc
	startTime   time.Time
	now         func() time.Time
	log         logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithDatastore sets the analysis record store.
func WithDatastore(ds datastore.Interface) Option {
	return func(c *Controller) { c.DS = ds }
}

// WithJudge sets the judge used by the baby analysis endpoint.
func WithJudge(j *judge.Judge) Option {
	return func(c *Controller) { c.Judge = j }
}

// WithDetector sets the face detector.
func WithDetector(d face.Detector) Option {
	return func(c *Controller) { c.Detector = d }
}

// WithStore sets the artifact store used to resolve image keys.
func WithStore(s storage.Store) Option {
	return func(c *Controller) { c.Store = s }
}

// WithVoice sets the voice command service.
func WithVoice(v *voice.Service) Option {
	return func(c *Controller) { c.Voice = v }
}

// WithMetrics enables request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(c *Controller) { c.Version = v }
}

// WithVerdictHook registers fn to receive API verdicts.
func WithVerdictHook(fn VerdictHook) Option {
	return func(c *Controller) { c.onVerdict = fn }
}

// New creates the controller and registers its routes under /api/v2.
func New(e *echo.Echo, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:        e,
		Settings:    settings,
		Version:     "dev",
		latestCache: cache.New(latestCacheTTL, time.Minute),
		startTime:   time.Now(),
		now:         time.Now,
		log:         logger.Global().Module("api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if settings.Monitor.HasLocation() {
		c.sun = suncalc.NewSunCalc(settings.Monitor.Latitude, settings.Monitor.Longitude, settings.Location())
	}

	if c.Analyzer == nil {
		analyzer, err := audioanalysis.NewAnalyzer(settings.Thresholds())
		if err != nil {
			return nil, errors.New(err).
				Component("api").
				Category(errors.CategoryConfiguration).
				Build()
		}
		c.Analyzer = analyzer
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit(DefaultBodyLimit))
	c.Group.Use(c.LoggingMiddleware())

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/system", c.GetSystemInfo)

	c.Group.POST("/audio/analyze", c.AnalyzeAudio)
	c.Group.POST("/baby/analyze", c.AnalyzeBabyStatus)

	c.Group.GET("/analyses/latest", c.GetLatestAnalyses)
	c.Group.GET("/analyses/attention", c.GetAttentionAnalyses)
	c.Group.GET("/analyses/:id", c.GetAnalysis)

	c.Group.GET("/voice/command", c.GetVoiceCommand)
}

// LoggingMiddleware logs each request and records request metrics.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			req := ctx.Request()
			status := ctx.Response().Status
			elapsed := time.Since(start)

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.Int("status", status),
				logger.String("ip", ctx.RealIP()),
				logger.Duration("latency", elapsed),
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}
			c.log.Info("API request", fields...)

			if c.metrics != nil {
				c.metrics.HTTP.RecordRequest(req.Method, ctx.Path(), status, elapsed)
			}
			return nil
		}
	}
}

// HealthCheck handles GET /api/v2/health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":         "healthy",
		"version":        c.Version,
		"uptime_seconds": int64(time.Since(c.startTime).Seconds()),
		"timestamp":      time.Now().Format(time.RFC3339),
	}

	switch {
	case c.DS == nil:
		response["database_status"] = "disabled"
	default:
		if _, err := c.DS.Latest(ctx.Request().Context(), 1); err != nil {
			response["status"] = "degraded"
			response["database_status"] = "disconnected"
			response["database_error"] = err.Error()
		} else {
			response["database_status"] = "connected"
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse represents a standardized error response for the API
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID returns an 8 character random identifier.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes a JSON error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Warn("API error", fields...)
	}

	return ctx.JSON(code, resp)
}

// statusForError maps an error category to an HTTP status.
func statusForError(err error) int {
	var enhanced *errors.EnhancedError
	if !errors.As(err, &enhanced) {
		return http.StatusInternalServerError
	}
	switch enhanced.Category {
	case errors.CategoryValidation, errors.CategoryAudioDecode:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryLimit:
		return http.StatusTooManyRequests
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryHTTP, errors.CategoryNetwork, errors.CategoryJudge,
		errors.CategoryFaceDetection, errors.CategoryVoice:
		return http.StatusBadGateway
	case errors.CategoryConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
