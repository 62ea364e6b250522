package connection

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/teslashibe/go-aura/internal/clock"
	"github.com/teslashibe/go-aura/pkg/audioio"
)

const (
	// DefaultURL is the inference service's duplex chat endpoint.
	DefaultURL = "wss://api.hume.ai/v0/evi/chat"

	// DefaultTokenURL issues access tokens for the client-credentials grant.
	DefaultTokenURL = "https://api.hume.ai/oauth2-cc/token"
)

// ReconnectPolicy bounds automatic reconnection.
type ReconnectPolicy struct {
	// Enabled turns automatic reconnection on.
	Enabled bool `yaml:"enabled"`

	// MaxAttempts counts every connection attempt in a failure streak,
	// including the first. 1 disables retries.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration `yaml:"max_delay"`

	// BackoffMultiplier grows the delay per retry.
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// DefaultReconnectPolicy returns the default policy.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:           true,
		MaxAttempts:       5,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

// Delay returns the wait before retry number attempt (1-based):
// min(InitialDelay * BackoffMultiplier^(attempt-1), MaxDelay).
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Validate checks the policy.
func (p ReconnectPolicy) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, p.MaxAttempts)
	}
	if p.InitialDelay <= 0 || p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("%w: need 0 < initial delay <= max delay", ErrInvalidConfig)
	}
	if p.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff multiplier must be >= 1, got %v", ErrInvalidConfig, p.BackoffMultiplier)
	}
	return nil
}

// Config holds Manager configuration.
type Config struct {
	// URL is the service's WebSocket endpoint.
	URL string

	// APIKey authenticates the session.
	APIKey string

	// SecretKey enables token authentication together with APIKey.
	SecretKey string

	// TokenURL is the client-credentials token endpoint.
	TokenURL string

	// ConfigID selects a server-side session configuration.
	ConfigID string

	// Reconnect is the reconnection policy.
	Reconnect ReconnectPolicy

	// Audio is the transmitted audio format.
	Audio audioio.Config

	// HandshakeTimeout bounds dial plus upgrade.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration

	// HeartbeatInterval is the period of the no-op keepalive.
	HeartbeatInterval time.Duration

	// QueueLimit bounds the outbound queue. When full the oldest message
	// is dropped.
	QueueLimit int

	// EventBuffer is the capacity of the event channel.
	EventBuffer int

	// Dialer overrides the WebSocket transport.
	Dialer Dialer

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		URL:               DefaultURL,
		TokenURL:          DefaultTokenURL,
		Reconnect:         DefaultReconnectPolicy(),
		Audio:             audioio.DefaultConfig(),
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		QueueLimit:        256,
		EventBuffer:       256,
		Clock:             clock.Real,
		Logger:            slog.Default(),
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.Dialer == nil {
		if c.URL == "" {
			return ErrMissingURL
		}
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
	}
	if err := c.Reconnect.Validate(); err != nil {
		return err
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("%w: audio: %v", ErrInvalidConfig, err)
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("%w: audio: the service takes mono audio, got %d channels", ErrInvalidConfig, c.Audio.Channels)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("%w: handshake timeout must be positive", ErrInvalidConfig)
	}
	if c.HeartbeatInterval < 0 {
		return fmt.Errorf("%w: heartbeat interval must not be negative", ErrInvalidConfig)
	}
	if c.QueueLimit <= 0 {
		return fmt.Errorf("%w: queue limit must be positive, got %d", ErrInvalidConfig, c.QueueLimit)
	}
	return nil
}

// Option is a functional option for configuring a Manager.
type Option func(*Config)

// WithURL sets the service endpoint.
func WithURL(url string) Option {
	return func(c *Config) {
		c.URL = url
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithSecretKey enables access-token authentication.
func WithSecretKey(secret string) Option {
	return func(c *Config) {
		c.SecretKey = secret
	}
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(url string) Option {
	return func(c *Config) {
		c.TokenURL = url
	}
}

// WithConfigID selects a server-side session configuration.
func WithConfigID(id string) Option {
	return func(c *Config) {
		c.ConfigID = id
	}
}

// WithReconnect sets the reconnection policy.
func WithReconnect(p ReconnectPolicy) Option {
	return func(c *Config) {
		c.Reconnect = p
	}
}

// WithAudio sets the transmitted audio format.
func WithAudio(cfg audioio.Config) Option {
	return func(c *Config) {
		c.Audio = cfg
	}
}

// WithHandshakeTimeout sets the handshake timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HandshakeTimeout = d
	}
}

// WithHeartbeatInterval sets the keepalive period. Zero disables it.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Config) {
		c.HeartbeatInterval = d
	}
}

// WithQueueLimit bounds the outbound queue.
func WithQueueLimit(n int) Option {
	return func(c *Config) {
		c.QueueLimit = n
	}
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(c *Config) {
		c.EventBuffer = n
	}
}

// WithDialer replaces the WebSocket transport.
func WithDialer(d Dialer) Option {
	return func(c *Config) {
		c.Dialer = d
	}
}

// WithClock sets the time source for timers.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
