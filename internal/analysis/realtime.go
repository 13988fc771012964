package analysis

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sync/errgroup"

	"github.com/jingnanl/infant-guard/internal/api"
	v2 "github.com/jingnanl/infant-guard/internal/api/v2"
	"github.com/jingnanl/infant-guard/internal/buildinfo"
	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/monitor"
	"github.com/jingnanl/infant-guard/internal/myaudio"
)

// RealtimeAnalysis captures from the configured device and runs the monitor
// loop, plus the HTTP API when enabled, until ctx is cancelled.
func RealtimeAnalysis(ctx context.Context, settings *conf.Settings, info *buildinfo.Context) error {
	log := GetLogger()
	logHostDetails(ctx, log, info)

	svc, err := NewServices(ctx, settings, info)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.ConnectMQTT(ctx); err != nil {
		return err
	}

	rec, err := myaudio.NewRecorder(settings.Audio.Source, settings.Audio.SampleRate, settings.Audio.ClipLength)
	if err != nil {
		return err
	}
	if err := rec.Start(); err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Warn("failed to close recorder", logger.Error(err))
		}
	}()

	mon, err := monitor.New(rec, svc.Analyzer, svc.MonitorOptions()...)
	if err != nil {
		return err
	}

	var srv *api.Server
	if settings.WebServer.Enabled {
		if srv, err = svc.NewAPIServer(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mon.Run(gctx)
	})
	if srv != nil {
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	err = g.Wait()
	stats := mon.Stats()
	log.Info("realtime analysis stopped",
		logger.Int64("cycles", stats.Cycles),
		logger.Int64("failures", stats.Failures),
		logger.Int64("attention", stats.Attention))
	return err
}

// MonitorOptions translates the services and settings into monitor options.
// Disabled services are left out so the monitor sees untyped nils.
func (s *Services) MonitorOptions() []monitor.Option {
	settings := s.Settings
	opts := []monitor.Option{
		monitor.WithInterval(settings.Monitor.Interval),
		monitor.WithStore(s.Store, settings.Audio.Export.Enabled),
		monitor.WithMetrics(s.Metrics.Analysis),
		monitor.WithNotifier(s.Notifier),
	}
	if s.Snapshots != nil {
		opts = append(opts, monitor.WithImages(s.Snapshots))
	}
	if s.Detector != nil {
		opts = append(opts, monitor.WithDetector(s.Detector))
	}
	if s.Judge != nil {
		opts = append(opts, monitor.WithJudge(s.Judge))
	}
	if s.DS != nil {
		opts = append(opts, monitor.WithDatastore(s.DS, settings.Output.Retention))
	}
	if s.Publisher != nil {
		opts = append(opts, monitor.WithPublisher(s.Publisher))
	}
	if s.Sun != nil {
		opts = append(opts, monitor.WithSunCalc(s.Sun))
	}
	return opts
}

// NewAPIServer creates the HTTP server around the services. Verdicts produced
// through the API are published and notified like monitor verdicts.
func (s *Services) NewAPIServer() (*api.Server, error) {
	opts := []v2.Option{
		v2.WithVersion(s.Build.Version()),
		v2.WithStore(s.Store),
		v2.WithVerdictHook(func(c echo.Context, v *judge.Verdict) {
			s.Deliver(c.Request().Context(), v)
		}),
	}
	if s.DS != nil {
		opts = append(opts, v2.WithDatastore(s.DS))
	}
	if s.Detector != nil {
		opts = append(opts, v2.WithDetector(s.Detector))
	}
	if s.Judge != nil {
		opts = append(opts, v2.WithJudge(s.Judge))
	}
	if s.Voice != nil {
		opts = append(opts, v2.WithVoice(s.Voice))
	}
	return api.New(s.Settings,
		api.WithMetrics(s.Metrics),
		api.WithControllerOptions(opts...))
}

func logHostDetails(ctx context.Context, log logger.Logger, info *buildinfo.Context) {
	fields := []logger.Field{logger.String("version", info.Version())}
	if h, err := host.InfoWithContext(ctx); err == nil {
		fields = append(fields,
			logger.String("os", h.OS),
			logger.String("platform", h.Platform),
			logger.String("platform_version", h.PlatformVersion),
			logger.String("arch", h.KernelArch))
	}
	log.Info("starting realtime analysis", fields...)
}
