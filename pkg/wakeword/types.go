// Package wakeword recognizes a spoken trigger phrase in a live transcript
// stream.
//
// The Detector consumes finalized and interim transcript segments from a
// Source, fuzzy-matches finals against a primary phrase and its
// alternatives, and emits a detection at most once per cooldown window.
// State changes, detections and source errors are delivered on a single
// event channel.
package wakeword

import (
	"context"
	"time"
)

// State is the detector lifecycle state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateDetected
	StateCooldown
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateDetected:
		return "detected"
	case StateCooldown:
		return "cooldown"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Segment is one piece of live transcript.
type Segment struct {
	Text      string
	Final     bool
	Timestamp time.Time
}

// Source is a continuous speech-to-text transcript stream.
//
// Segments and Errors must return the same channels for the lifetime of
// the source, across Stop and Start. Sources report "no speech" with
// ErrNoSpeech.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Segments() <-chan Segment
	Errors() <-chan error
}

// Result describes one detection.
type Result struct {
	Detected   bool      `json:"detected"`
	Phrase     string    `json:"phrase"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`

	// AlternativeMatches lists the other phrases that also cleared the
	// threshold for the same transcript.
	AlternativeMatches []string `json:"alternative_matches,omitempty"`

	// Transcript is the finalized text that triggered the detection.
	Transcript string `json:"transcript"`
}

// EventKind discriminates Event.
type EventKind int

const (
	EventState EventKind = iota
	EventDetection
	EventError
)

// String returns a human-readable event kind.
func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventDetection:
		return "detection"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered on Detector.Events. Only the field matching Kind is
// set.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	State     State
	Result    *Result
	Err       error
}
