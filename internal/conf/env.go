package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jingnanl/infant-guard/internal/errors"
)

// envBinding maps an environment variable onto a config key.
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "INFANTGUARD_DEBUG", validateEnvBool},
		{"main.name", "INFANTGUARD_NAME", nil},
		{"logging.default_level", "INFANTGUARD_LOG_LEVEL", validateEnvLogLevel},

		{"audio.source", "INFANTGUARD_AUDIO_SOURCE", nil},
		{"audio.samplerate", "INFANTGUARD_AUDIO_SAMPLERATE", validateEnvSampleRate},
		{"audio.cliplength", "INFANTGUARD_AUDIO_CLIPLENGTH", validateEnvPositiveInt},

		{"judge.enabled", "INFANTGUARD_JUDGE_ENABLED", validateEnvBool},
		{"judge.service.endpoint", "INFANTGUARD_JUDGE_ENDPOINT", validateEnvURL},
		{"judge.service.apikey", "INFANTGUARD_JUDGE_APIKEY", nil},
		{"face.enabled", "INFANTGUARD_FACE_ENABLED", validateEnvBool},
		{"face.service.endpoint", "INFANTGUARD_FACE_ENDPOINT", validateEnvURL},
		{"face.service.apikey", "INFANTGUARD_FACE_APIKEY", nil},
		{"voice.enabled", "INFANTGUARD_VOICE_ENABLED", validateEnvBool},
		{"voice.service.endpoint", "INFANTGUARD_VOICE_ENDPOINT", validateEnvURL},
		{"voice.service.apikey", "INFANTGUARD_VOICE_APIKEY", nil},
		{"snapshot.source", "INFANTGUARD_SNAPSHOT_SOURCE", nil},

		{"storage.type", "INFANTGUARD_STORAGE_TYPE", validateEnvStorageType},
		{"storage.local.path", "INFANTGUARD_STORAGE_PATH", nil},
		{"storage.gcs.bucket", "INFANTGUARD_GCS_BUCKET", nil},
		{"storage.gcs.credentialsfile", "INFANTGUARD_GCS_CREDENTIALS", nil},

		{"mqtt.enabled", "INFANTGUARD_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "INFANTGUARD_MQTT_BROKER", validateEnvURL},
		{"mqtt.password", "INFANTGUARD_MQTT_PASSWORD", nil},

		{"webserver.port", "INFANTGUARD_WEBSERVER_PORT", validateEnvPort},
		{"monitor.interval", "INFANTGUARD_MONITOR_INTERVAL", validateEnvDuration},
		{"monitor.latitude", "INFANTGUARD_LATITUDE", validateEnvLatitude},
		{"monitor.longitude", "INFANTGUARD_LONGITUDE", validateEnvLongitude},

		{"sentry.dsn", "INFANTGUARD_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every environment variable and validates the ones that are set.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return errors.Newf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - ")).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}

func validateEnvSampleRate(value string) error {
	rate, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid sample rate: %w", err)
	}
	if rate < 8000 || rate > 192000 {
		return fmt.Errorf("sample rate must be between 8000 and 192000, got %d", rate)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}

func validateEnvStorageType(value string) error {
	switch value {
	case StorageLocal, StorageSFTP, StorageFTP, StorageGCS:
		return nil
	}
	return fmt.Errorf("must be one of local, sftp, ftp, gcs")
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", lat)
	}
	return nil
}

func validateEnvLongitude(value string) error {
	lng, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", lng)
	}
	return nil
}
