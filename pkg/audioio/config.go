// Package audioio moves microphone audio as floating-point samples and
// quantizes it to the 16-bit PCM the inference service expects.
//
// Samples are float32 in [-1, 1], interleaved when Channels > 1. Sources
// include a synthetic MockSource for development runs and the ingest
// server's microphone view for real capture clients.
package audioio

import (
	"fmt"
	"time"
)

// Encoding names the wire encoding of transmitted audio.
type Encoding string

const (
	// EncodingLinear16 is signed 16-bit little-endian PCM.
	EncodingLinear16 Encoding = "linear16"
)

// Backend selects where captured audio comes from.
type Backend string

const (
	// BackendAuto uses capture-client audio when an ingest server runs
	// and captures nothing otherwise.
	BackendAuto Backend = "auto"
	// BackendIngest uses the ingest server's microphone stream.
	BackendIngest Backend = "ingest"
	// BackendMock generates a synthetic tone.
	BackendMock Backend = "mock"
	// BackendNone disables capture.
	BackendNone Backend = "none"
)

// Config holds audio configuration.
type Config struct {
	// Backend is the capture backend. Empty means BackendAuto.
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// Encoding is the transmitted sample encoding.
	// Default: linear16
	Encoding Encoding `yaml:"encoding" json:"encoding"`

	// BufferDuration is the length of one transmitted chunk.
	// Default: 100ms (1600 samples at 16kHz)
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		Encoding:       EncodingLinear16,
		BufferDuration: 100 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	if c.Encoding != EncodingLinear16 {
		return fmt.Errorf("unsupported encoding %q", c.Encoding)
	}
	switch c.Backend {
	case "", BackendAuto, BackendIngest, BackendMock, BackendNone:
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	return nil
}

// BufferSize returns the number of frames per buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferSamples returns the number of interleaved samples per buffer.
func (c *Config) BufferSamples() int {
	return c.BufferSize() * c.Channels
}

// BufferBytes returns the size of an encoded buffer in bytes.
func (c *Config) BufferBytes() int {
	return c.BufferSamples() * 2
}
