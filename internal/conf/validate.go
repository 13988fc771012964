package conf

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jingnanl/infant-guard/internal/errors"
)

// Storage backend names.
const (
	StorageLocal = "local"
	StorageSFTP  = "sftp"
	StorageFTP   = "ftp"
	StorageGCS   = "gcs"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct and returns every
// problem found, wrapped as a configuration error.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}
	add := func(err error) {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	add(validateAudioSettings(&settings.Audio))
	add(settings.Analysis.Thresholds.Validate())
	add(validateServiceSettings("judge", settings.Judge.Enabled, &settings.Judge.Service))
	add(validateJudgeSettings(&settings.Judge))
	add(validateServiceSettings("face", settings.Face.Enabled, &settings.Face.Service))
	add(validateServiceSettings("voice", settings.Voice.Enabled, &settings.Voice.Service))
	add(validateStorageSettings(&settings.Storage))
	add(validateOutputSettings(&settings.Output))
	add(validateNotificationSettings(&settings.Notification))
	add(validateMQTTSettings(&settings.MQTT))
	add(validateMonitorSettings(&settings.Monitor))
	if settings.Main.Timezone != "" {
		if _, err := time.LoadLocation(settings.Main.Timezone); err != nil {
			add(fmt.Errorf("main.timezone: %w", err))
		}
	}

	if len(ve.Errors) == 0 {
		return nil
	}
	return errors.New(ve).
		Category(errors.CategoryConfiguration).
		Context("problems", len(ve.Errors)).
		Build()
}

func validateAudioSettings(s *AudioSettings) error {
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		return fmt.Errorf("audio.samplerate must be between 8000 and 192000, got %d", s.SampleRate)
	}
	if s.ClipLength <= 0 {
		return fmt.Errorf("audio.cliplength must be positive, got %d", s.ClipLength)
	}
	if s.Export.Type != "wav" {
		// only a WAV encoder exists; FLAC is decode-only
		return fmt.Errorf("audio.export.type must be wav, got %q", s.Export.Type)
	}
	return nil
}

func validateServiceSettings(name string, enabled bool, s *ServiceEndpoint) error {
	if !enabled {
		return nil
	}
	if err := validateHTTPURL(s.Endpoint); err != nil {
		return fmt.Errorf("%s.service.endpoint: %w", name, err)
	}
	if s.OAuth.ClientID != "" || s.OAuth.TokenURL != "" {
		if !s.OAuth.Enabled() || s.OAuth.ClientSecret == "" {
			return fmt.Errorf("%s.service.oauth requires clientid, clientsecret and tokenurl", name)
		}
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%s.service.timeout must not be negative", name)
	}
	return nil
}

func validateJudgeSettings(s *JudgeSettings) error {
	if !s.Enabled {
		return nil
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("judge.maxtokens must be positive, got %d", s.MaxTokens)
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("judge.temperature must be between 0 and 1, got %g", s.Temperature)
	}
	if s.RateLimit <= 0 {
		return fmt.Errorf("judge.ratelimit must be positive, got %g", s.RateLimit)
	}
	return nil
}

func validateStorageSettings(s *StorageSettings) error {
	switch s.Type {
	case StorageLocal:
		if s.Local.Path == "" {
			return fmt.Errorf("storage.local.path is required")
		}
	case StorageSFTP:
		if s.SFTP.Host == "" || s.SFTP.Username == "" {
			return fmt.Errorf("storage.sftp requires host and username")
		}
		if s.SFTP.Password == "" && s.SFTP.PrivateKeyPath == "" {
			return fmt.Errorf("storage.sftp requires a password or a private key")
		}
	case StorageFTP:
		if s.FTP.Host == "" {
			return fmt.Errorf("storage.ftp.host is required")
		}
	case StorageGCS:
		if s.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required")
		}
	default:
		return fmt.Errorf("storage.type must be one of local, sftp, ftp, gcs, got %q", s.Type)
	}
	return nil
}

func validateOutputSettings(s *OutputSettings) error {
	if s.SQLite.Enabled && s.MySQL.Enabled {
		return fmt.Errorf("output: enable either sqlite or mysql, not both")
	}
	if s.SQLite.Enabled && s.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path is required")
	}
	if s.MySQL.Enabled && (s.MySQL.Host == "" || s.MySQL.Database == "") {
		return fmt.Errorf("output.mysql requires host and database")
	}
	if s.Retention < 0 {
		return fmt.Errorf("output.retention must not be negative")
	}
	return nil
}

func validateNotificationSettings(s *NotificationSettings) error {
	if !s.Enabled {
		return nil
	}
	if len(s.URLs) == 0 {
		return fmt.Errorf("notification.urls must list at least one service URL")
	}
	if s.RateLimit <= 0 || s.Burst <= 0 {
		return fmt.Errorf("notification.ratelimit and notification.burst must be positive")
	}
	return nil
}

func validateMQTTSettings(s *MQTTSettings) error {
	if !s.Enabled {
		return nil
	}
	if s.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if s.Topic == "" || strings.ContainsAny(s.Topic, "#+") {
		return fmt.Errorf("mqtt.topic must be a non-empty topic without wildcards")
	}
	return nil
}

func validateMonitorSettings(s *MonitorSettings) error {
	if s.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", s.Interval)
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("monitor.latitude must be between -90 and 90, got %g", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("monitor.longitude must be between -180 and 180, got %g", s.Longitude)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host is missing in %q", raw)
	}
	return nil
}
