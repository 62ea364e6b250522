package connection

import (
	"context"
	"errors"

	"github.com/teslashibe/go-aura/pkg/audioio"
)

type capture struct {
	src    audioio.Source
	cancel context.CancelFunc
	done   chan struct{}
}

func (c *capture) stop() {
	c.cancel()
	_ = c.src.Stop()
	<-c.done
}

// StartCapture starts src and streams its audio to the service until ctx
// is done, StopCapture or Disconnect is called, or the source stops.
// Chunks are downmixed and resampled to the configured format when they
// differ. Chunks captured while the session is not CONNECTED are dropped
// and counted in Stats.AudioSkipped.
//
// A failure to start src is a device failure: it is reported as
// EventError, returned as *audioio.DeviceError, and never retried.
func (m *Manager) StartCapture(ctx context.Context, src audioio.Source) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.capture != nil {
		m.mu.Unlock()
		return ErrCaptureActive
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &capture{src: src, cancel: cancel, done: make(chan struct{})}
	m.capture = c
	m.mu.Unlock()

	if err := src.Start(ctx); err != nil {
		cancel()
		close(c.done)

		var devErr *audioio.DeviceError
		if !errors.As(err, &devErr) {
			devErr = &audioio.DeviceError{Device: src.Name(), Cause: err}
		}

		m.mu.Lock()
		if m.capture == c {
			m.capture = nil
		}
		m.emitLocked(Event{Kind: EventError, Err: devErr})
		m.mu.Unlock()

		m.logger.Error("audio capture failed to start", "device", src.Name(), "error", err)
		return devErr
	}

	m.logger.Info("audio capture started", "device", src.Name(), "sample_rate", src.Config().SampleRate)
	go m.captureLoop(ctx, c)
	return nil
}

// StopCapture stops the active capture, if any, and waits for it to end.
func (m *Manager) StopCapture() {
	m.mu.Lock()
	c := m.capture
	m.capture = nil
	m.mu.Unlock()

	if c != nil {
		c.stop()
		m.logger.Info("audio capture stopped")
	}
}

func (m *Manager) captureLoop(ctx context.Context, c *capture) {
	defer close(c.done)
	defer func() {
		m.mu.Lock()
		if m.capture == c {
			m.capture = nil
		}
		m.mu.Unlock()
	}()

	target := m.cfg.Audio
	stream := c.src.Stream()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-stream:
			if !ok {
				return
			}
			live, closed := m.captureLive()
			if closed {
				return
			}
			if !live {
				continue
			}
			samples := chunk.Samples
			if chunk.SampleRate != target.SampleRate || chunk.Channels != target.Channels {
				samples = audioio.Conform(chunk, target.SampleRate)
			}
			if err := m.SendAudio(samples); err != nil {
				if errors.Is(err, ErrManagerClosed) {
					return
				}
				m.logger.Debug("dropping captured audio", "error", err)
			}
		}
	}
}

// captureLive reports whether captured audio should go out now. Chunks
// captured outside CONNECTED are dropped rather than queued, so a
// reconnect does not flush stale audio.
func (m *Manager) captureLive() (live, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, true
	}
	if m.status.State != StateConnected {
		m.stats.AudioSkipped++
		return false, false
	}
	return true, false
}
