// Package connection owns the duplex session to the emotion-inference
// service.
//
// A Manager dials the service, keeps the session alive with a heartbeat,
// queues outbound messages while disconnected and routes inbound payloads
// to a single event channel. Failures drive a bounded exponential-backoff
// reconnection machine:
//
//	DISCONNECTED --Connect--> CONNECTING --handshake--> CONNECTED
//	CONNECTING, CONNECTED --failure--> ERROR
//	ERROR --attempts left--> RECONNECTING --handshake--> CONNECTED
//	ERROR --attempts spent or fatal error--> CLOSED
//	any --Disconnect--> DISCONNECTED
//
// All public methods are non-blocking; the handshake and every backoff
// wait run on background goroutines and cancelable timers.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-aura/internal/clock"
	"github.com/teslashibe/go-aura/pkg/audioio"
)

// Manager owns one logical session to the inference service.
//
// State is only mutated under mu. Every connection attempt, timer and read
// loop carries the epoch it was started in; teardown bumps the epoch so
// late callbacks from an abandoned attempt are ignored.
type Manager struct {
	cfg    Config
	dialer Dialer
	clock  clock.Clock
	logger *slog.Logger
	events chan Event

	mu     sync.Mutex
	status Status
	epoch  uint64
	conn   Conn
	closed bool
	queue  *queue
	stats  Stats

	dialCancel     context.CancelFunc
	retryTimer     clock.Timer
	heartbeatTimer clock.Timer
	capture        *capture
}

// New creates a Manager. It does not connect.
func New(opts ...Option) (*Manager, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = NewWebSocketDialer(cfg)
	}

	return &Manager{
		cfg:    *cfg,
		dialer: dialer,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("component", "connection.Manager"),
		events: make(chan Event, cfg.EventBuffer),
		status: Status{State: StateDisconnected},
		queue:  newQueue(cfg.QueueLimit),
	}, nil
}

// Events returns the event channel. It is closed by Close.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Status returns a snapshot of the session record.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Stats returns a snapshot of the manager counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Queued = m.queue.len()
	return s
}

// Connect starts a session. It returns immediately; progress is reported
// through status events. Connect is accepted from DISCONNECTED, ERROR and
// CLOSED (after retry exhaustion).
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	switch m.status.State {
	case StateConnecting, StateReconnecting, StateConnected:
		return ErrAlreadyConnected
	}

	m.status.ReconnectAttempt = 0
	m.setStateLocked(StateConnecting)
	m.startAttemptLocked()
	return nil
}

// Disconnect cancels every pending timer and in-flight handshake, closes
// the session, stops audio capture and moves to DISCONNECTED. Queued
// messages are kept for the next session. It is idempotent.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	c := m.disconnectLocked()
	m.mu.Unlock()

	if c != nil {
		c.stop()
	}
	return nil
}

// Close disconnects, drops the outbound queue and closes the event
// channel. The manager cannot be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	c := m.disconnectLocked()
	m.setStateLocked(StateClosed)
	m.closed = true
	m.queue.clear()
	close(m.events)
	m.mu.Unlock()

	if c != nil {
		c.stop()
	}
	m.logger.Info("connection manager closed")
	return nil
}

func (m *Manager) disconnectLocked() *capture {
	wasActive := m.status.State != StateDisconnected && m.status.State != StateClosed
	m.teardownLocked()
	m.status.ReconnectAttempt = 0
	m.status.SessionID = ""
	m.setStateLocked(StateDisconnected)
	if wasActive {
		m.logger.Info("disconnected")
	}

	c := m.capture
	m.capture = nil
	return c
}

// Send transmits msg. While connected it is written synchronously and a
// write failure is returned and reported as EventError. Otherwise msg is
// queued until the next successful handshake.
func (m *Manager) Send(msg Outbound) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendLocked(msg.Type(), data)
}

func (m *Manager) sendLocked(kind string, data []byte) error {
	if m.closed {
		return ErrManagerClosed
	}

	if m.status.State == StateConnected && m.conn != nil {
		if err := m.conn.WriteMessage(data); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrSendFailed, kind, err)
			m.status.LastError = err
			m.emitLocked(Event{Kind: EventError, Err: err})
			m.logger.Warn("send failed", "type", kind, "error", err)
			return err
		}
		m.stats.MessagesSent++
		return nil
	}

	if m.queue.push(data) {
		m.stats.QueueDropped++
		m.logger.Warn("outbound queue full, dropped oldest message", "limit", m.cfg.QueueLimit)
	}
	return nil
}

// SendText sends a user text turn.
func (m *Manager) SendText(text string) error {
	return m.Send(UserInput{Text: text})
}

// SendAudio quantizes samples to PCM16 and sends them as audio_input
// messages of at most one buffer length each. Samples must already be at
// the configured sample rate and channel count.
func (m *Manager) SendAudio(samples []float32) error {
	audio := m.cfg.Audio
	for _, chunk := range audioio.Split(samples, audio.BufferSamples()) {
		pcm := audioio.EncodePCM16(chunk)
		msg := AudioInput{
			Data:       pcm,
			Encoding:   string(audio.Encoding),
			SampleRate: audio.SampleRate,
			Channels:   audio.Channels,
		}
		data, err := encode(msg)
		if err != nil {
			return err
		}

		m.mu.Lock()
		err = m.sendLocked(msg.Type(), data)
		if err == nil {
			m.stats.AudioBytesSent += uint64(len(pcm))
		}
		m.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) startAttemptLocked() {
	m.epoch++
	epoch := m.epoch
	ctx, cancel := context.WithCancel(context.Background())
	m.dialCancel = cancel

	m.logger.Info("connecting", "url", m.cfg.URL, "attempt", m.status.ReconnectAttempt+1)
	go m.dial(ctx, cancel, epoch)
}

func (m *Manager) dial(ctx context.Context, cancel context.CancelFunc, epoch uint64) {
	defer cancel()
	conn, err := m.dialer.Dial(ctx)

	m.mu.Lock()
	if epoch != m.epoch || m.closed {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	defer m.mu.Unlock()

	m.dialCancel = nil
	if err != nil {
		m.logger.Warn("handshake failed", "error", err)
		m.failLocked(err)
		return
	}
	m.onOpenLocked(conn, epoch)
}

func (m *Manager) onOpenLocked(conn Conn, epoch uint64) {
	if m.status.State == StateReconnecting {
		m.stats.Reconnects++
	}
	m.conn = conn
	m.status.ConnectedAt = m.clock.Now()
	m.status.ReconnectAttempt = 0
	m.status.SessionID = uuid.NewString()
	m.setStateLocked(StateConnected)
	m.logger.Info("connected", "session_id", m.status.SessionID, "queued", m.queue.len())

	go m.readLoop(conn, epoch)

	if err := m.flushLocked(); err != nil {
		m.failLocked(err)
		return
	}
	m.scheduleHeartbeatLocked(epoch)
}

// flushLocked writes queued messages in FIFO order. A failed write puts
// the message back at the head of the queue.
func (m *Manager) flushLocked() error {
	for {
		data, ok := m.queue.pop()
		if !ok {
			return nil
		}
		if err := m.conn.WriteMessage(data); err != nil {
			if m.queue.pushFront(data) {
				m.stats.QueueDropped++
			}
			return err
		}
		m.stats.MessagesSent++
	}
}

func (m *Manager) readLoop(conn Conn, epoch uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleClosure(err, epoch)
			return
		}
		if !m.route(data, epoch) {
			return
		}
	}
}

func (m *Manager) handleClosure(err error, epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch || m.closed {
		return
	}

	if errors.Is(err, ErrClosedNormally) {
		m.teardownLocked()
		m.status.ReconnectAttempt = 0
		m.setStateLocked(StateDisconnected)
		m.logger.Info("session closed by service")
		return
	}

	m.logger.Warn("session lost", "error", err)
	m.failLocked(err)
}

// route decodes and delivers one inbound payload. It reports false once
// the read loop's session has been torn down.
func (m *Manager) route(data []byte, epoch uint64) bool {
	events, err := decodeInbound(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch || m.closed {
		return false
	}

	m.stats.MessagesReceived++
	if err != nil {
		m.stats.RoutedDropped++
		m.logger.Debug("dropping inbound payload", "error", err, "bytes", len(data))
		return true
	}

	for _, ev := range events {
		switch ev.Kind {
		case EventSessionBegin:
			if ev.SessionID != "" {
				m.status.SessionID = ev.SessionID
			}
		case EventError:
			m.status.LastError = ev.Err
			m.logger.Warn("service reported error", "error", ev.Err)
		}
		m.emitLocked(ev)
	}
	return true
}

// failLocked handles a failed handshake or abnormal closure: ERROR, then
// either RECONNECTING with a scheduled retry or CLOSED.
func (m *Manager) failLocked(err error) {
	m.teardownLocked()
	m.status.LastError = err
	m.setStateLocked(StateError)
	m.emitLocked(Event{Kind: EventError, Err: err})

	if IsTerminal(err) {
		m.logger.Error("session failed permanently", "error", err)
		m.setStateLocked(StateClosed)
		return
	}

	policy := m.cfg.Reconnect
	next := m.status.ReconnectAttempt + 1
	if policy.Enabled && next < policy.MaxAttempts {
		m.status.ReconnectAttempt = next
		delay := policy.Delay(next)
		m.setStateLocked(StateReconnecting)

		epoch := m.epoch
		m.retryTimer = m.clock.AfterFunc(delay, func() {
			m.retry(epoch)
		})
		m.logger.Warn("reconnect scheduled", "attempt", next, "max_attempts", policy.MaxAttempts, "delay", delay)
		return
	}

	exhausted := fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, next, err)
	m.status.LastError = exhausted
	m.setStateLocked(StateClosed)
	m.emitLocked(Event{Kind: EventError, Err: exhausted})
	m.logger.Error("giving up on session", "attempts", next, "error", err)
}

func (m *Manager) retry(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch || m.closed || m.status.State != StateReconnecting {
		return
	}
	m.retryTimer = nil
	m.startAttemptLocked()
}

func (m *Manager) scheduleHeartbeatLocked(epoch uint64) {
	if m.cfg.HeartbeatInterval <= 0 {
		return
	}
	m.heartbeatTimer = m.clock.AfterFunc(m.cfg.HeartbeatInterval, func() {
		m.heartbeat(epoch)
	})
}

func (m *Manager) heartbeat(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch || m.closed || m.status.State != StateConnected {
		return
	}
	m.heartbeatTimer = nil

	data, err := encode(Heartbeat{})
	if err != nil {
		return
	}
	if err := m.conn.WriteMessage(data); err != nil {
		m.failLocked(NewConnectionError("heartbeat", err, true))
		return
	}
	m.stats.MessagesSent++
	m.scheduleHeartbeatLocked(epoch)
}

// teardownLocked abandons the current attempt or session: it invalidates
// the epoch, cancels the handshake and every timer, and closes the socket.
func (m *Manager) teardownLocked() {
	m.epoch++
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	clock.Stop(m.retryTimer)
	m.retryTimer = nil
	clock.Stop(m.heartbeatTimer)
	m.heartbeatTimer = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.status.ConnectedAt = time.Time{}
}

func (m *Manager) setStateLocked(s State) {
	if m.status.State == s {
		return
	}
	m.logger.Debug("state change", "from", m.status.State.String(), "to", s.String())
	m.status.State = s
	m.emitLocked(Event{Kind: EventStatus, Status: m.status})
}

func (m *Manager) emitLocked(ev Event) {
	if m.closed {
		return
	}
	ev.Timestamp = m.clock.Now()
	select {
	case m.events <- ev:
	default:
		m.stats.EventsDropped++
		m.logger.Warn("event channel full, dropping event", "kind", ev.Kind.String())
	}
}
