package config

import (
	"github.com/teslashibe/go-aura/pkg/connection"
	"github.com/teslashibe/go-aura/pkg/emotion"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

// ConnectionOptions returns the connection manager options for c.
func (c *Config) ConnectionOptions() []connection.Option {
	return []connection.Option{
		connection.WithURL(c.Service.URL),
		connection.WithAPIKey(c.Service.APIKey),
		connection.WithSecretKey(c.Service.SecretKey),
		connection.WithTokenURL(c.Service.TokenURL),
		connection.WithConfigID(c.Service.ConfigID),
		connection.WithHandshakeTimeout(c.Service.HandshakeTimeout),
		connection.WithReconnect(c.Reconnect),
		connection.WithAudio(c.Audio),
		connection.WithQueueLimit(c.Queue.Limit),
		connection.WithHeartbeatInterval(c.Heartbeat.Interval),
	}
}

// EmotionOptions returns the emotion processor options for c.
func (c *Config) EmotionOptions() []emotion.Option {
	return []emotion.Option{
		emotion.WithAlpha(c.Smoothing.Alpha),
		emotion.WithMaxHistory(c.History.MaxFrames),
		emotion.WithTimeWindow(c.History.TimeWindow),
	}
}

// WakewordOptions returns the wake word detector options for c.
func (c *Config) WakewordOptions() []wakeword.Option {
	return []wakeword.Option{
		wakeword.WithPhrase(c.Wake.Phrase),
		wakeword.WithAlternatives(c.Wake.Alternatives...),
		wakeword.WithThreshold(c.Wake.Threshold),
		wakeword.WithCooldown(c.Wake.Cooldown),
		wakeword.WithDetectionTimeout(c.Wake.DetectionTimeout),
		wakeword.WithContinuous(c.Wake.Continuous),
		wakeword.WithRestartDelay(c.Wake.RestartDelay),
		wakeword.WithMaxRestarts(c.Wake.MaxRestarts),
	}
}
