package ingest

import "errors"

var (
	// ErrClientNotFound is returned when addressing a capture client that
	// is not connected.
	ErrClientNotFound = errors.New("ingest: client not connected")

	// ErrUnsupportedFormat is returned for mic payloads in an unknown
	// format.
	ErrUnsupportedFormat = errors.New("ingest: unsupported audio format")

	// ErrSpeech wraps speech recognizer failures reported by a capture
	// client, other than "no speech".
	ErrSpeech = errors.New("ingest: speech recognition failed")
)
