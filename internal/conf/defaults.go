package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// Default values referenced outside this package.
const (
	DefaultSampleRate      = 16000
	DefaultClipLength      = 5
	DefaultMonitorInterval = 30 * time.Second
	DefaultResponsePath    = "completion"
	DefaultVoiceText       = "Alexa, play a lullaby"
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "infant-guard")
	v.SetDefault("main.timezone", "")

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("audio.source", "")
	v.SetDefault("audio.samplerate", DefaultSampleRate)
	v.SetDefault("audio.cliplength", DefaultClipLength)
	v.SetDefault("audio.export.enabled", true)
	v.SetDefault("audio.export.type", "wav")

	th := audioanalysis.DefaultThresholds()
	v.SetDefault("analysis.thresholds.fundamentalratio", th.FundamentalRatio)
	v.SetDefault("analysis.thresholds.harmonicratio", th.HarmonicRatio)
	v.SetDefault("analysis.thresholds.cryrms", th.CryRMS)
	v.SetDefault("analysis.thresholds.crysustained", th.CrySustained)
	v.SetDefault("analysis.thresholds.cryrhythm", th.CryRhythm)
	v.SetDefault("analysis.thresholds.transientratio", th.TransientRatio)
	v.SetDefault("analysis.thresholds.sustainedrms", th.SustainedRMS)
	v.SetDefault("analysis.thresholds.laughtransients", th.LaughTransients)
	v.SetDefault("analysis.thresholds.laughsustained", th.LaughSustained)
	v.SetDefault("analysis.thresholds.laughrms", th.LaughRMS)

	v.SetDefault("judge.enabled", false)
	v.SetDefault("judge.service.endpoint", "")
	v.SetDefault("judge.service.timeout", 30*time.Second)
	v.SetDefault("judge.responsepath", DefaultResponsePath)
	v.SetDefault("judge.maxtokens", 500)
	v.SetDefault("judge.temperature", 0.5)
	v.SetDefault("judge.ratelimit", 0.5)

	v.SetDefault("face.enabled", false)
	v.SetDefault("face.service.endpoint", "")
	v.SetDefault("face.service.timeout", 15*time.Second)

	v.SetDefault("voice.enabled", false)
	v.SetDefault("voice.service.endpoint", "")
	v.SetDefault("voice.service.timeout", 15*time.Second)
	v.SetDefault("voice.voiceid", "Joanna")
	v.SetDefault("voice.text", DefaultVoiceText)

	v.SetDefault("snapshot.source", "")
	v.SetDefault("snapshot.timeout", 10*time.Second)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.path", "data/")
	v.SetDefault("storage.local.minfreespace", 256*1024*1024)
	v.SetDefault("storage.sftp.port", 22)
	v.SetDefault("storage.sftp.basepath", "/infant-guard")
	v.SetDefault("storage.sftp.timeout", 30*time.Second)
	v.SetDefault("storage.ftp.port", 21)
	v.SetDefault("storage.ftp.basepath", "/infant-guard")
	v.SetDefault("storage.ftp.timeout", 30*time.Second)
	v.SetDefault("storage.gcs.prefix", "")

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "infant-guard.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")
	v.SetDefault("output.mysql.database", "infantguard")
	v.SetDefault("output.retention", 30*24*time.Hour)

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.ratelimit", 2.0)
	v.SetDefault("notification.burst", 1)
	v.SetDefault("notification.timeout", 10*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "infant-guard")

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.port", "8080")

	v.SetDefault("monitor.interval", DefaultMonitorInterval)
	v.SetDefault("monitor.latitude", 0.0)
	v.SetDefault("monitor.longitude", 0.0)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}
