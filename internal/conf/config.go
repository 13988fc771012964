// Package conf loads, validates and persists infant-guard settings.
package conf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// MainSettings contains general application settings.
type MainSettings struct {
	Name     string `yaml:"name"     mapstructure:"name"`     // node name, used as MQTT client ID and notification source
	Timezone string `yaml:"timezone" mapstructure:"timezone"` // IANA zone for capture timestamps, empty for local
}

// ExportSettings controls how captured clips are stored.
type ExportSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"` // upload each clip to the artifact store
	Type    string `yaml:"type"    mapstructure:"type"`    // wav
}

// AudioSettings contains capture settings.
type AudioSettings struct {
	Source     string         `yaml:"source"     mapstructure:"source"`     // capture device name substring, empty for system default
	SampleRate int            `yaml:"samplerate" mapstructure:"samplerate"` // capture sample rate in Hz
	ClipLength int            `yaml:"cliplength" mapstructure:"cliplength"` // seconds of audio analyzed per cycle
	Export     ExportSettings `yaml:"export"     mapstructure:"export"`
}

// AnalysisSettings holds the classifier thresholds.
type AnalysisSettings struct {
	Thresholds audioanalysis.Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
}

// ClientCredentials configures an OAuth2 client-credentials token source.
type ClientCredentials struct {
	ClientID     string   `yaml:"clientid"     mapstructure:"clientid"`
	ClientSecret string   `yaml:"clientsecret" mapstructure:"clientsecret"`
	TokenURL     string   `yaml:"tokenurl"     mapstructure:"tokenurl"`
	Scopes       []string `yaml:"scopes"       mapstructure:"scopes"`
}

// Enabled reports whether a token endpoint is configured.
func (c ClientCredentials) Enabled() bool {
	return c.TokenURL != "" && c.ClientID != ""
}

// ServiceEndpoint is a hosted HTTP service with optional authentication.
type ServiceEndpoint struct {
	Endpoint string            `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey   string            `yaml:"apikey"   mapstructure:"apikey"` // sent as a bearer token when set
	Timeout  time.Duration     `yaml:"timeout"  mapstructure:"timeout"`
	OAuth    ClientCredentials `yaml:"oauth"    mapstructure:"oauth"`
}

// JudgeSettings configures the language model that judges the baby's state.
type JudgeSettings struct {
	Enabled      bool            `yaml:"enabled"      mapstructure:"enabled"`
	Service      ServiceEndpoint `yaml:"service"      mapstructure:"service"`
	ResponsePath string          `yaml:"responsepath" mapstructure:"responsepath"` // dot separated JSON path of the completion text
	MaxTokens    int             `yaml:"maxtokens"    mapstructure:"maxtokens"`
	Temperature  float64         `yaml:"temperature"  mapstructure:"temperature"`
	RateLimit    float64         `yaml:"ratelimit"    mapstructure:"ratelimit"` // requests per second
}

// FaceSettings configures the face and emotion detection service.
type FaceSettings struct {
	Enabled bool            `yaml:"enabled" mapstructure:"enabled"`
	Service ServiceEndpoint `yaml:"service" mapstructure:"service"`
}

// VoiceSettings configures text-to-speech for the soothing voice command.
type VoiceSettings struct {
	Enabled bool            `yaml:"enabled" mapstructure:"enabled"`
	Service ServiceEndpoint `yaml:"service" mapstructure:"service"`
	VoiceID string          `yaml:"voiceid" mapstructure:"voiceid"`
	Text    string          `yaml:"text"    mapstructure:"text"`
}

// SnapshotSettings locates the camera still image.
type SnapshotSettings struct {
	Source  string        `yaml:"source"  mapstructure:"source"` // http(s) URL or file path, empty disables images
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LocalStorageSettings stores artifacts on the local filesystem.
type LocalStorageSettings struct {
	Path         string `yaml:"path"         mapstructure:"path"`
	MinFreeSpace uint64 `yaml:"minfreespace" mapstructure:"minfreespace"` // bytes that must remain free after a write
}

// SFTPSettings stores artifacts on an SFTP server.
type SFTPSettings struct {
	Host           string        `yaml:"host"           mapstructure:"host"`
	Port           int           `yaml:"port"           mapstructure:"port"`
	Username       string        `yaml:"username"       mapstructure:"username"`
	Password       string        `yaml:"password"       mapstructure:"password"`
	PrivateKeyPath string        `yaml:"privatekeypath" mapstructure:"privatekeypath"`
	BasePath       string        `yaml:"basepath"       mapstructure:"basepath"`
	Timeout        time.Duration `yaml:"timeout"        mapstructure:"timeout"`
}

// FTPSettings stores artifacts on an FTP server.
type FTPSettings struct {
	Host     string        `yaml:"host"     mapstructure:"host"`
	Port     int           `yaml:"port"     mapstructure:"port"`
	Username string        `yaml:"username" mapstructure:"username"`
	Password string        `yaml:"password" mapstructure:"password"`
	BasePath string        `yaml:"basepath" mapstructure:"basepath"`
	Timeout  time.Duration `yaml:"timeout"  mapstructure:"timeout"`
}

// GCSSettings stores artifacts in a Google Cloud Storage bucket.
type GCSSettings struct {
	Bucket          string `yaml:"bucket"          mapstructure:"bucket"`
	Prefix          string `yaml:"prefix"          mapstructure:"prefix"`
	CredentialsFile string `yaml:"credentialsfile" mapstructure:"credentialsfile"`
}

// StorageSettings selects and configures the artifact store.
type StorageSettings struct {
	Type  string               `yaml:"type"  mapstructure:"type"` // local, sftp, ftp or gcs
	Local LocalStorageSettings `yaml:"local" mapstructure:"local"`
	SFTP  SFTPSettings         `yaml:"sftp"  mapstructure:"sftp"`
	FTP   FTPSettings          `yaml:"ftp"   mapstructure:"ftp"`
	GCS   GCSSettings          `yaml:"gcs"   mapstructure:"gcs"`
}

// SQLiteSettings contains settings for the SQLite record store.
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path"    mapstructure:"path"`
}

// MySQLSettings contains settings for the MySQL record store.
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled"  mapstructure:"enabled"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	Host     string `yaml:"host"     mapstructure:"host"`
	Port     string `yaml:"port"     mapstructure:"port"`
}

// OutputSettings selects where analysis records are persisted.
type OutputSettings struct {
	SQLite    SQLiteSettings `yaml:"sqlite"    mapstructure:"sqlite"`
	MySQL     MySQLSettings  `yaml:"mysql"     mapstructure:"mysql"`
	Retention time.Duration  `yaml:"retention" mapstructure:"retention"` // records older than this are pruned, 0 keeps everything
}

// NotificationSettings configures push notifications.
type NotificationSettings struct {
	Enabled   bool          `yaml:"enabled"   mapstructure:"enabled"`
	URLs      []string      `yaml:"urls"      mapstructure:"urls"`      // shoutrrr service URLs
	RateLimit float64       `yaml:"ratelimit" mapstructure:"ratelimit"` // notifications per minute
	Burst     int           `yaml:"burst"     mapstructure:"burst"`
	Timeout   time.Duration `yaml:"timeout"   mapstructure:"timeout"`
}

// MQTTSettings contains settings for MQTT publishing.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"  mapstructure:"enabled"`
	Broker   string `yaml:"broker"   mapstructure:"broker"`
	Topic    string `yaml:"topic"    mapstructure:"topic"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Port    string `yaml:"port"    mapstructure:"port"`
}

// MonitorSettings controls the capture loop.
type MonitorSettings struct {
	Interval  time.Duration `yaml:"interval"  mapstructure:"interval"`
	Latitude  float64       `yaml:"latitude"  mapstructure:"latitude"`
	Longitude float64       `yaml:"longitude" mapstructure:"longitude"`
}

// HasLocation reports whether coordinates were configured.
func (m MonitorSettings) HasLocation() bool {
	return m.Latitude != 0 || m.Longitude != 0
}

// SentrySettings contains settings for error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"     mapstructure:"enabled"`
	DSN         string `yaml:"dsn"         mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// Settings is the root of the configuration tree.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Main         MainSettings         `yaml:"main"         mapstructure:"main"`
	Logging      logger.LoggingConfig `yaml:"logging"      mapstructure:"logging"`
	Audio        AudioSettings        `yaml:"audio"        mapstructure:"audio"`
	Analysis     AnalysisSettings     `yaml:"analysis"     mapstructure:"analysis"`
	Judge        JudgeSettings        `yaml:"judge"        mapstructure:"judge"`
	Face         FaceSettings         `yaml:"face"         mapstructure:"face"`
	Voice        VoiceSettings        `yaml:"voice"        mapstructure:"voice"`
	Snapshot     SnapshotSettings     `yaml:"snapshot"     mapstructure:"snapshot"`
	Storage      StorageSettings      `yaml:"storage"      mapstructure:"storage"`
	Output       OutputSettings       `yaml:"output"       mapstructure:"output"`
	Notification NotificationSettings `yaml:"notification" mapstructure:"notification"`
	MQTT         MQTTSettings         `yaml:"mqtt"         mapstructure:"mqtt"`
	WebServer    WebServerSettings    `yaml:"webserver"    mapstructure:"webserver"`
	Monitor      MonitorSettings      `yaml:"monitor"      mapstructure:"monitor"`
	Sentry       SentrySettings       `yaml:"sentry"       mapstructure:"sentry"`
}

// Thresholds returns the classifier thresholds.
func (s *Settings) Thresholds() audioanalysis.Thresholds {
	return s.Analysis.Thresholds
}

// Location returns the configured timezone, falling back to local time.
func (s *Settings) Location() *time.Location {
	if s.Main.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Main.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration from configFile, or from the default search paths
// when configFile is empty, overlays environment variables and validates the
// result. Running without any config.yaml in the search paths is allowed.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.GetViper()
	if err := initViper(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settings, nil
}

func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		paths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Context("config_file", v.ConfigFileUsed()).
			Build()
	}
	return nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultSettings returns a Settings populated only from built-in defaults.
func DefaultSettings() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	// defaults are static and always decode
	_ = v.Unmarshal(settings)
	return settings
}

// WriteYAML renders settings as YAML.
func WriteYAML(w io.Writer, settings *Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return enc.Close()
}

// WriteExample renders the default configuration as YAML.
func WriteExample(w io.Writer) error {
	return WriteYAML(w, DefaultSettings())
}

// SaveYAMLConfig writes settings to configPath through a temporary file and rename.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-config-dir").
			Build()
	}

	tmp, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-temp-config").
			Build()
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteYAML(tmp, settings); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tmpName, configPath); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "replace-config").
			FileContext(configPath, 0).
			Build()
	}
	return nil
}
