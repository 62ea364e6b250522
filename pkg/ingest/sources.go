package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

// TranscriptSource is the wakeword.Source view of capture clients'
// speech recognizers. Segments arriving while stopped are discarded.
type TranscriptSource struct {
	mu       sync.Mutex
	running  bool
	segments chan wakeword.Segment
	errs     chan error
	dropped  atomic.Uint64
	logger   *slog.Logger
}

func newTranscriptSource(logger *slog.Logger) *TranscriptSource {
	return &TranscriptSource{
		segments: make(chan wakeword.Segment, 64),
		errs:     make(chan error, 16),
		logger:   logger.With("component", "ingest.TranscriptSource"),
	}
}

// Start implements wakeword.Source.
func (t *TranscriptSource) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	return nil
}

// Stop implements wakeword.Source.
func (t *TranscriptSource) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	return nil
}

// Segments implements wakeword.Source.
func (t *TranscriptSource) Segments() <-chan wakeword.Segment {
	return t.segments
}

// Errors implements wakeword.Source.
func (t *TranscriptSource) Errors() <-chan error {
	return t.errs
}

// Running reports whether the source is started.
func (t *TranscriptSource) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Dropped returns how many segments and errors were discarded.
func (t *TranscriptSource) Dropped() uint64 {
	return t.dropped.Load()
}

func (t *TranscriptSource) pushSegment(seg wakeword.Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	select {
	case t.segments <- seg:
	default:
		t.dropped.Add(1)
		t.logger.Warn("transcript buffer full, dropping segment")
	}
}

func (t *TranscriptSource) pushError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	select {
	case t.errs <- err:
	default:
		t.dropped.Add(1)
	}
}

// MicSource is the audioio.Source view of capture clients' microphones.
// Chunks from every client are merged into one stream.
type MicSource struct {
	cfg    audioio.Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan audioio.Chunk
	stopCh   chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

func newMicSource(cfg audioio.Config, logger *slog.Logger) *MicSource {
	streamCh := make(chan audioio.Chunk)
	close(streamCh)
	return &MicSource{
		cfg:      cfg,
		logger:   logger.With("component", "ingest.MicSource"),
		streamCh: streamCh,
	}
}

// Start begins accepting chunks from capture clients.
func (m *MicSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return audioio.ErrSourceClosed
	}
	if m.running {
		return nil
	}
	m.running = true
	m.streamCh = make(chan audioio.Chunk, 32)
	m.stopCh = make(chan struct{})

	go func(stopCh <-chan struct{}) {
		select {
		case <-ctx.Done():
			m.Stop()
		case <-stopCh:
		}
	}(m.stopCh)

	m.logger.Info("microphone ingest started", "sample_rate", m.cfg.SampleRate)
	return nil
}

// Stop closes the stream. It is safe to call Stop multiple times.
func (m *MicSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	close(m.streamCh)
	m.logger.Info("microphone ingest stopped")
	return nil
}

// Read reads the next chunk.
func (m *MicSource) Read(ctx context.Context) (audioio.Chunk, error) {
	stream := m.Stream()
	select {
	case <-ctx.Done():
		return audioio.Chunk{}, ctx.Err()
	case chunk, ok := <-stream:
		if !ok {
			return audioio.Chunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the chunk channel of the current run.
func (m *MicSource) Stream() <-chan audioio.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCh
}

// Config returns the expected client audio format. Chunks carry their own
// rate and channel count, which may differ.
func (m *MicSource) Config() audioio.Config {
	return m.cfg
}

// Name returns "ingest".
func (m *MicSource) Name() string {
	return "ingest"
}

// Close stops the source for good.
func (m *MicSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Stop()
}

// Stats returns source statistics.
func (m *MicSource) Stats() audioio.SourceStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return audioio.SourceStats{
		ChunksRead:  m.chunksRead.Load(),
		SamplesRead: m.samplesRead.Load(),
		Overruns:    m.overruns.Load(),
		Running:     running,
		Backend:     "ingest",
	}
}

func (m *MicSource) push(chunk audioio.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	select {
	case m.streamCh <- chunk:
		m.chunksRead.Add(1)
		m.samplesRead.Add(int64(len(chunk.Samples)))
	default:
		m.overruns.Add(1)
		m.logger.Debug("mic buffer full, dropping chunk")
	}
}

var (
	_ wakeword.Source         = (*TranscriptSource)(nil)
	_ audioio.SourceWithStats = (*MicSource)(nil)
)
