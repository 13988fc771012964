// Package analysis wires the configured collaborators together and runs the
// file, realtime and API-only modes behind the CLI.
package analysis

import (
	"context"
	"time"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/buildinfo"
	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/datastore"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/face"
	"github.com/jingnanl/infant-guard/internal/judge"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/mqtt"
	"github.com/jingnanl/infant-guard/internal/notification"
	"github.com/jingnanl/infant-guard/internal/observability"
	"github.com/jingnanl/infant-guard/internal/storage"
	"github.com/jingnanl/infant-guard/internal/suncalc"
	"github.com/jingnanl/infant-guard/internal/voice"
)

const componentName = "analysis"

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}

// Services holds every collaborator built from settings. Optional services
// are nil when disabled.
type Services struct {
	Settings  *conf.Settings
	Build     *buildinfo.Context
	Metrics   *observability.Metrics
	Analyzer  *audioanalysis.Analyzer
	Store     storage.Store
	DS        datastore.Interface
	Detector  face.Detector
	Judge     *judge.Judge
	Voice     *voice.Service
	Notifier  *notification.Service
	MQTT      mqtt.Client
	Publisher *mqtt.VerdictPublisher
	Snapshots *face.Snapshotter
	Sun       *suncalc.SunCalc

	log logger.Logger
}

// NewServices builds the services enabled in settings. A failure closes
// whatever was already opened.
func NewServices(ctx context.Context, settings *conf.Settings, info *buildinfo.Context) (*Services, error) {
	s := &Services{Settings: settings, Build: info, log: GetLogger()}
	if err := s.init(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.log.Info("services initialized",
		logger.String("storage", s.Store.Name()),
		logger.Bool("records", s.DS != nil),
		logger.Bool("face", s.Detector != nil),
		logger.Bool("judge", s.Judge != nil),
		logger.Bool("voice", s.Voice != nil),
		logger.Bool("notifications", s.Notifier.HasProviders()),
		logger.Bool("snapshots", s.Snapshots != nil),
		logger.Bool("daylight", s.Sun != nil))
	return s, nil
}

func (s *Services) init(ctx context.Context) error {
	settings := s.Settings

	var err error
	if s.Metrics, err = observability.NewMetrics(); err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategorySystem).
			Build()
	}

	if s.Analyzer, err = audioanalysis.NewAnalyzer(settings.Thresholds()); err != nil {
		return err
	}

	if s.Store, err = storage.New(ctx, &settings.Storage); err != nil {
		return err
	}

	if ds := datastore.New(settings); ds != nil {
		if err := ds.Open(); err != nil {
			return err
		}
		s.DS = ds
	}

	if err := s.initHosted(settings); err != nil {
		return err
	}

	if s.Notifier, err = notification.NewService(settings.Notification); err != nil {
		return err
	}
	s.Notifier.SetMetrics(s.Metrics.Notification)

	s.Snapshots = face.NewSnapshotter(settings.Snapshot)
	if settings.Monitor.HasLocation() {
		s.Sun = suncalc.NewSunCalc(settings.Monitor.Latitude, settings.Monitor.Longitude, settings.Location())
	}
	return nil
}

// initHosted creates the clients for the hosted face, model and speech services.
func (s *Services) initHosted(settings *conf.Settings) error {
	if settings.Face.Enabled {
		d, err := face.NewHTTPDetector(settings.Face)
		if err != nil {
			return err
		}
		s.Metrics.InstrumentClient(d.Client())
		s.Detector = d
	}

	if settings.Judge.Enabled {
		c, err := judge.NewClient(settings.Judge)
		if err != nil {
			return err
		}
		s.Metrics.InstrumentClient(c.HTTP())
		s.Judge = judge.New(c, settings.Thresholds())
	}

	if settings.Voice.Enabled {
		v, err := voice.NewService(settings.Voice)
		if err != nil {
			return err
		}
		s.Voice = v
	}
	return nil
}

// ConnectMQTT connects to the broker and announces the Home Assistant
// entities. Connection failures are logged; the client keeps retrying on publish.
func (s *Services) ConnectMQTT(ctx context.Context) error {
	if !s.Settings.MQTT.Enabled {
		return nil
	}
	client, err := mqtt.NewClient(s.Settings, s.Metrics.MQTT)
	if err != nil {
		return err
	}
	s.MQTT = client
	s.Publisher = mqtt.NewVerdictPublisher(client, s.Settings.MQTT.Topic, s.Settings.Main.Name, s.Metrics.MQTT)

	if err := client.Connect(ctx); err != nil {
		s.log.Warn("initial MQTT connection failed",
			logger.String("broker", s.Settings.MQTT.Broker),
			logger.Error(err))
		return nil
	}
	if err := s.Publisher.PublishDiscovery(ctx, mqtt.DiscoveryConfig{
		NodeID:  s.Settings.Main.Name,
		Version: s.Build.Version(),
	}); err != nil {
		s.log.Warn("failed to publish MQTT discovery", logger.Error(err))
	}
	return nil
}

// Deliver publishes and notifies a verdict produced outside the monitor loop.
func (s *Services) Deliver(ctx context.Context, v *judge.Verdict) {
	if s.Publisher != nil {
		if err := s.Publisher.PublishVerdict(ctx, v); err != nil {
			s.log.Warn("failed to publish verdict", logger.Error(err))
		}
	}
	if s.Notifier != nil && v.NeedsAttention {
		if err := s.Notifier.Notify(ctx, notification.FromVerdict(v)); err != nil && !errors.Is(err, notification.ErrRateLimited) {
			s.log.Error("failed to send attention notification", logger.Error(err))
		}
	}
}

// Close releases every opened service.
func (s *Services) Close() {
	if s.MQTT != nil {
		s.MQTT.Disconnect()
	}
	if s.DS != nil {
		if err := s.DS.Close(); err != nil {
			s.log.Warn("failed to close datastore", logger.Error(err))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.log.Warn("failed to close artifact store", logger.Error(err))
		}
	}
	errors.FlushTelemetry(2 * time.Second)
}
