package emotion

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-aura/internal/clock"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("emotion: invalid config")

// Config holds Processor settings.
type Config struct {
	// Alpha is the smoothing factor applied to new observations.
	Alpha float64

	// MaxHistory caps the number of retained frames.
	MaxHistory int

	// TimeWindow drops frames older than now-TimeWindow. Zero disables it.
	TimeWindow time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Alpha:      0.3,
		MaxHistory: 100,
		Clock:      clock.Real,
		Logger:     slog.Default(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: alpha must be in (0, 1], got %v", ErrInvalidConfig, c.Alpha)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("%w: max history must be positive, got %d", ErrInvalidConfig, c.MaxHistory)
	}
	if c.TimeWindow < 0 {
		return fmt.Errorf("%w: time window must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Option is a functional option for configuring a Processor.
type Option func(*Config)

// WithAlpha sets the smoothing factor.
func WithAlpha(alpha float64) Option {
	return func(c *Config) {
		c.Alpha = alpha
	}
}

// WithMaxHistory sets the history size cap.
func WithMaxHistory(n int) Option {
	return func(c *Config) {
		c.MaxHistory = n
	}
}

// WithTimeWindow sets the history age limit.
func WithTimeWindow(d time.Duration) Option {
	return func(c *Config) {
		c.TimeWindow = d
	}
}

// WithClock sets the time source used to stamp frames and prune history.
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
