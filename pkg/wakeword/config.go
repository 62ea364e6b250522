package wakeword

import (
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-aura/internal/clock"
)

// Config holds detector settings.
type Config struct {
	// Phrase is the primary trigger phrase.
	Phrase string

	// Alternatives are additional accepted phrasings.
	Alternatives []string

	// Threshold is the minimum similarity for a detection.
	Threshold float64

	// Cooldown suppresses every transcript after a detection.
	Cooldown time.Duration

	// DetectionTimeout bounds how long interim partial state is kept.
	DetectionTimeout time.Duration

	// Continuous restarts the source after errors.
	Continuous bool

	// RestartDelay is the wait before a restart.
	RestartDelay time.Duration

	// MaxRestarts bounds consecutive restarts. The count resets whenever
	// a segment arrives.
	MaxRestarts int

	// EventBuffer is the capacity of the event channel.
	EventBuffer int

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Phrase:           "mirror mirror on the wall",
		Threshold:        0.7,
		Cooldown:         3 * time.Second,
		DetectionTimeout: 5 * time.Second,
		Continuous:       true,
		RestartDelay:     time.Second,
		MaxRestarts:      5,
		EventBuffer:      64,
		Clock:            clock.Real,
		Logger:           slog.Default(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Phrase) == "" {
		return ErrMissingPhrase
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}

// phrases returns the primary phrase followed by the non-empty
// alternatives.
func (c *Config) phrases() []string {
	out := []string{c.Phrase}
	for _, alt := range c.Alternatives {
		if strings.TrimSpace(alt) != "" {
			out = append(out, alt)
		}
	}
	return out
}

// Option is a functional option for configuring a Detector.
type Option func(*Config)

// WithPhrase sets the primary trigger phrase.
func WithPhrase(phrase string) Option {
	return func(c *Config) {
		c.Phrase = phrase
	}
}

// WithAlternatives sets additional accepted phrasings.
func WithAlternatives(alts ...string) Option {
	return func(c *Config) {
		c.Alternatives = alts
	}
}

// WithThreshold sets the fuzzy-match threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Config) {
		c.Threshold = threshold
	}
}

// WithCooldown sets the post-detection cooldown.
func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		c.Cooldown = d
	}
}

// WithDetectionTimeout sets the interim partial-state timeout.
func WithDetectionTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.DetectionTimeout = d
	}
}

// WithContinuous enables or disables automatic restarts.
func WithContinuous(on bool) Option {
	return func(c *Config) {
		c.Continuous = on
	}
}

// WithRestartDelay sets the wait before restarting the source.
func WithRestartDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RestartDelay = d
	}
}

// WithMaxRestarts bounds consecutive restarts.
func WithMaxRestarts(n int) Option {
	return func(c *Config) {
		c.MaxRestarts = n
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
