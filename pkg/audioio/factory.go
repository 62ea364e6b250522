package audioio

import (
	"fmt"
	"log/slog"
)

// NewSource returns the capture source for cfg.Backend. mic is the ingest
// server's microphone stream, nil when no ingest server runs. A nil Source
// with a nil error means capture is disabled.
func NewSource(cfg Config, mic Source, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == "" || backend == BackendAuto {
		backend = BackendNone
		if mic != nil {
			backend = BackendIngest
		}
	}

	logger.Info("selecting audio source",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"buffer_ms", cfg.BufferDuration.Milliseconds(),
	)

	switch backend {
	case BackendIngest:
		if mic == nil {
			return nil, fmt.Errorf("%w: %s needs the ingest server", ErrBackendUnavailable, backend)
		}
		return mic, nil
	case BackendMock:
		return NewMockSource(cfg, logger, WithSineWave(220, 0.2)), nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, backend)
	}
}
