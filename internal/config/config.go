// Package config loads go-aura settings from defaults, an optional YAML
// file, a .env file and environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/connection"
)

// Environment variables read by Load.
const (
	EnvAPIKey        = "HUME_API_KEY"
	EnvSecretKey     = "HUME_SECRET_KEY"
	EnvConfigID      = "HUME_CONFIG_ID"
	EnvServiceURL    = "AURA_SERVICE_URL"
	EnvWakePhrase    = "AURA_WAKE_PHRASE"
	EnvDashboardAddr = "AURA_DASHBOARD_ADDR"
	EnvLogLevel      = "AURA_LOG_LEVEL"
	EnvAudioBackend  = "AURA_AUDIO_BACKEND"
	EnvConfigPath    = "AURA_CONFIG"
	EnvGoEnv         = "GO_ENV"
)

// ServiceConfig addresses the inference service.
type ServiceConfig struct {
	URL              string        `yaml:"url"`
	APIKey           string        `yaml:"api_key"`
	SecretKey        string        `yaml:"secret_key"`
	TokenURL         string        `yaml:"token_url"`
	ConfigID         string        `yaml:"config_id"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// WakeConfig configures the wake word detector.
type WakeConfig struct {
	Phrase           string        `yaml:"phrase"`
	Alternatives     []string      `yaml:"alternatives"`
	Threshold        float64       `yaml:"threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
	DetectionTimeout time.Duration `yaml:"detection_timeout"`
	Continuous       bool          `yaml:"continuous"`
	RestartDelay     time.Duration `yaml:"restart_delay"`
	MaxRestarts      int           `yaml:"max_restarts"`
}

// HistoryConfig bounds the emotion history.
type HistoryConfig struct {
	MaxFrames  int           `yaml:"max_frames"`
	TimeWindow time.Duration `yaml:"time_window"`
}

// SmoothingConfig configures exponential smoothing.
type SmoothingConfig struct {
	Alpha float64 `yaml:"alpha"`
}

// FusionConfig weights each score channel when fusing frames.
type FusionConfig struct {
	Face     float64 `yaml:"face"`
	Prosody  float64 `yaml:"prosody"`
	Burst    float64 `yaml:"burst"`
	Language float64 `yaml:"language"`
}

// Weight returns the weight of the named channel, 0 when unknown.
func (f FusionConfig) Weight(channel connection.Channel) float64 {
	switch channel {
	case connection.ChannelFace:
		return f.Face
	case connection.ChannelProsody:
		return f.Prosody
	case connection.ChannelBurst:
		return f.Burst
	case connection.ChannelLanguage:
		return f.Language
	default:
		return 0
	}
}

// QueueConfig bounds the outbound queue.
type QueueConfig struct {
	Limit int `yaml:"limit"`
}

// HeartbeatConfig configures keep-alive messages.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DashboardConfig configures the dashboard server.
type DashboardConfig struct {
	Addr string `yaml:"addr"`
	TopN int    `yaml:"top_n"`
}

// IngestConfig configures the capture client endpoint.
type IngestConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// Config is the complete go-aura configuration.
type Config struct {
	Service   ServiceConfig              `yaml:"service"`
	Reconnect connection.ReconnectPolicy `yaml:"reconnect"`
	Audio     audioio.Config             `yaml:"audio"`
	Wake      WakeConfig                 `yaml:"wake"`
	History   HistoryConfig              `yaml:"history"`
	Smoothing SmoothingConfig            `yaml:"smoothing"`
	Fusion    FusionConfig               `yaml:"fusion"`
	Queue     QueueConfig                `yaml:"queue"`
	Heartbeat HeartbeatConfig            `yaml:"heartbeat"`
	Dashboard DashboardConfig            `yaml:"dashboard"`
	Ingest    IngestConfig               `yaml:"ingest"`
	Log       LogConfig                  `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			URL:              connection.DefaultURL,
			TokenURL:         connection.DefaultTokenURL,
			HandshakeTimeout: 10 * time.Second,
		},
		Reconnect: connection.DefaultReconnectPolicy(),
		Audio:     audioio.DefaultConfig(),
		Wake: WakeConfig{
			Phrase:           "mirror mirror on the wall",
			Threshold:        0.7,
			Cooldown:         3 * time.Second,
			DetectionTimeout: 5 * time.Second,
			Continuous:       true,
			RestartDelay:     time.Second,
			MaxRestarts:      5,
		},
		History:   HistoryConfig{MaxFrames: 100},
		Smoothing: SmoothingConfig{Alpha: 0.3},
		Fusion:    FusionConfig{Face: 1, Prosody: 1, Burst: 0.5, Language: 0.5},
		Queue:     QueueConfig{Limit: 256},
		Heartbeat: HeartbeatConfig{Interval: 30 * time.Second},
		Dashboard: DashboardConfig{Addr: ":8080", TopN: 5},
		Ingest:    IngestConfig{Enabled: true},
		Log:       LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path names an optional YAML file; ""
// falls back to $AURA_CONFIG, and no file at all is fine. envFiles are
// loaded with godotenv without overriding variables already set; missing
// files are skipped. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto c. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvAPIKey, &c.Service.APIKey)
	set(EnvSecretKey, &c.Service.SecretKey)
	set(EnvConfigID, &c.Service.ConfigID)
	set(EnvServiceURL, &c.Service.URL)
	set(EnvWakePhrase, &c.Wake.Phrase)
	set(EnvDashboardAddr, &c.Dashboard.Addr)
	set(EnvLogLevel, &c.Log.Level)
	if v, ok := lookup(EnvAudioBackend); ok && strings.TrimSpace(v) != "" {
		c.Audio.Backend = audioio.Backend(strings.TrimSpace(v))
	}

	if v, ok := lookup(EnvGoEnv); ok {
		c.Log.Production = v == "production"
	}
}

// Validate checks the configuration and returns a *ConfigError naming the
// first bad field.
func (c *Config) Validate() error {
	if c.Service.URL == "" {
		return invalid("service.url", "is required")
	}
	if c.Service.APIKey == "" {
		return invalid("service.api_key", "is required (set %s)", EnvAPIKey)
	}
	if c.Service.SecretKey != "" && c.Service.TokenURL == "" {
		return invalid("service.token_url", "is required when a secret key is set")
	}
	if c.Service.HandshakeTimeout <= 0 {
		return invalid("service.handshake_timeout", "must be positive")
	}
	if err := c.Reconnect.Validate(); err != nil {
		return invalid("reconnect", "%v", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return invalid("audio", "%v", err)
	}
	if c.Audio.Channels != 1 {
		return invalid("audio.channels", "must be 1, got %d", c.Audio.Channels)
	}
	if strings.TrimSpace(c.Wake.Phrase) == "" {
		return invalid("wake.phrase", "is required")
	}
	if c.Wake.Threshold <= 0 || c.Wake.Threshold > 1 {
		return invalid("wake.threshold", "must be in (0, 1], got %v", c.Wake.Threshold)
	}
	if c.Wake.Cooldown < 0 || c.Wake.DetectionTimeout < 0 || c.Wake.RestartDelay < 0 {
		return invalid("wake", "durations must not be negative")
	}
	if c.Wake.MaxRestarts < 0 {
		return invalid("wake.max_restarts", "must not be negative")
	}
	if c.Smoothing.Alpha <= 0 || c.Smoothing.Alpha > 1 {
		return invalid("smoothing.alpha", "must be in (0, 1], got %v", c.Smoothing.Alpha)
	}
	if c.History.MaxFrames <= 0 {
		return invalid("history.max_frames", "must be positive")
	}
	if c.History.TimeWindow < 0 {
		return invalid("history.time_window", "must not be negative")
	}
	if c.Fusion.Face < 0 || c.Fusion.Prosody < 0 || c.Fusion.Burst < 0 || c.Fusion.Language < 0 {
		return invalid("fusion", "weights must not be negative")
	}
	if c.Queue.Limit <= 0 {
		return invalid("queue.limit", "must be positive")
	}
	if c.Heartbeat.Interval < 0 {
		return invalid("heartbeat.interval", "must not be negative")
	}
	if c.Dashboard.Addr == "" {
		return invalid("dashboard.addr", "is required")
	}
	if c.Dashboard.TopN <= 0 {
		return invalid("dashboard.top_n", "must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	return nil
}
