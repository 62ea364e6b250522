package wakeword

import "errors"

var (
	// ErrNoSpeech is reported by a Source when a recognition window ends
	// without speech. It is not a failure.
	ErrNoSpeech = errors.New("wakeword: no speech")

	// ErrMissingPhrase indicates no wake phrase was configured.
	ErrMissingPhrase = errors.New("wakeword: phrase is required")

	// ErrMissingSource indicates New was called without a Source.
	ErrMissingSource = errors.New("wakeword: source is required")

	// ErrInvalidThreshold indicates a threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("wakeword: threshold must be in (0, 1]")

	// ErrAlreadyListening is returned by Start while listening.
	ErrAlreadyListening = errors.New("wakeword: already listening")
)
