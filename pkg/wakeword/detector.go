package wakeword

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/go-aura/internal/clock"
)

// Detector is the phrase-activation state machine.
//
// Every timer it arms (cooldown, detection timeout, restart) is held as a
// handle and canceled on Stop. Callbacks also carry the generation they
// were armed in, so a callback that races a Stop never mutates state.
type Detector struct {
	cfg     Config
	phrases []string
	tokens  []string
	src     Source
	clock   clock.Clock
	logger  *slog.Logger
	events  chan Event

	mu       sync.Mutex
	state    State
	gen      uint64
	running  bool
	runCtx   context.Context
	cancel   context.CancelFunc
	restarts int
	partial  string

	cooldownTimer clock.Timer
	timeoutTimer  clock.Timer
	restartTimer  clock.Timer
}

// New creates a Detector reading from src.
func New(src Source, opts ...Option) (*Detector, error) {
	if src == nil {
		return nil, ErrMissingSource
	}

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
		cfg.EventBuffer = 64
	}

	phrases := cfg.phrases()
	tokens := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if tok := firstToken(p); tok != "" {
			tokens = append(tokens, tok)
		}
	}

	return &Detector{
		cfg:     *cfg,
		phrases: phrases,
		tokens:  tokens,
		src:     src,
		clock:   cfg.Clock,
		logger:  cfg.Logger.With("component", "wakeword.Detector"),
		events:  make(chan Event, cfg.EventBuffer),
		state:   StateIdle,
	}, nil
}

// Events returns the event channel.
func (d *Detector) Events() <-chan Event {
	return d.events
}

// State returns the current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Phrase returns the primary trigger phrase.
func (d *Detector) Phrase() string {
	return d.cfg.Phrase
}

// Start begins consuming the transcript source. From cooldown it simply
// resumes listening.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case StateListening, StateDetected:
		d.mu.Unlock()
		return ErrAlreadyListening
	case StateCooldown:
		clock.Stop(d.cooldownTimer)
		d.cooldownTimer = nil
		d.setStateLocked(StateListening)
		d.mu.Unlock()
		return nil
	}

	d.gen++
	gen := d.gen
	d.cancelTimersLocked()
	if d.cancel != nil {
		d.cancel()
	}
	wasRunning := d.running
	d.running = false
	runCtx, cancel := context.WithCancel(ctx)
	d.runCtx = runCtx
	d.cancel = cancel
	d.restarts = 0
	d.mu.Unlock()

	if wasRunning {
		_ = d.src.Stop()
	}
	if err := d.src.Start(runCtx); err != nil {
		cancel()
		d.mu.Lock()
		if d.gen == gen {
			d.setStateLocked(StateError)
			d.emitLocked(Event{Kind: EventError, Err: err})
		}
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	if d.gen != gen {
		// Stopped while the source was starting. Undo the start unless a
		// newer Start already owns the source.
		owned := d.running
		d.mu.Unlock()
		cancel()
		if owned {
			return nil
		}
		return d.src.Stop()
	}
	defer d.mu.Unlock()
	d.running = true
	d.setStateLocked(StateListening)
	go d.consume(runCtx, gen)

	d.logger.Info("wake word detection started", "phrase", d.cfg.Phrase, "alternatives", len(d.phrases)-1)
	return nil
}

// Stop returns to idle, cancels every pending timer and stops the source.
// It is idempotent.
func (d *Detector) Stop() error {
	d.mu.Lock()
	d.gen++
	d.cancelTimersLocked()
	d.partial = ""
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	wasRunning := d.running
	d.running = false
	if d.state != StateIdle {
		d.setStateLocked(StateIdle)
	}
	d.mu.Unlock()

	if !wasRunning {
		return nil
	}
	d.logger.Info("wake word detection stopped")
	return d.src.Stop()
}

func (d *Detector) consume(ctx context.Context, gen uint64) {
	segments := d.src.Segments()
	errs := d.src.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case seg, ok := <-segments:
			if !ok {
				return
			}
			d.handleSegment(seg, gen)
		case err, ok := <-errs:
			if !ok {
				return
			}
			d.handleError(err, gen)
		}
	}
}

// HandleSegment feeds one transcript segment to the detector.
func (d *Detector) HandleSegment(seg Segment) {
	d.mu.Lock()
	gen := d.gen
	d.mu.Unlock()
	d.handleSegment(seg, gen)
}

func (d *Detector) handleSegment(seg Segment, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		return
	}

	// Cooldown is checked before any matching.
	if d.state == StateCooldown {
		d.logger.Debug("segment ignored during cooldown", "text", seg.Text)
		return
	}
	if d.state != StateListening {
		return
	}
	d.restarts = 0

	if !seg.Final {
		d.handleInterimLocked(seg)
		return
	}

	clock.Stop(d.timeoutTimer)
	d.timeoutTimer = nil
	d.partial = ""

	m := bestMatch(seg.Text, d.phrases, d.cfg.Threshold)
	d.logger.Debug("final transcript scored", "text", seg.Text, "phrase", m.phrase, "score", m.score)
	if m.score < d.cfg.Threshold {
		return
	}

	ts := seg.Timestamp
	if ts.IsZero() {
		ts = d.clock.Now()
	}
	result := &Result{
		Detected:           true,
		Phrase:             m.phrase,
		Confidence:         m.score,
		Timestamp:          ts,
		AlternativeMatches: m.others,
		Transcript:         seg.Text,
	}

	d.setStateLocked(StateDetected)
	d.emitLocked(Event{Kind: EventDetection, Result: result})
	d.logger.Info("wake phrase detected", "phrase", m.phrase, "confidence", m.score)

	d.setStateLocked(StateCooldown)
	d.cooldownTimer = d.clock.AfterFunc(d.cfg.Cooldown, func() {
		d.endCooldown(gen)
	})
}

func (d *Detector) handleInterimLocked(seg Segment) {
	text := strings.ToLower(seg.Text)
	hit := false
	for _, tok := range d.tokens {
		if strings.Contains(text, tok) {
			hit = true
			break
		}
	}
	if !hit {
		return
	}

	d.partial = seg.Text
	clock.Stop(d.timeoutTimer)
	gen := d.gen
	d.timeoutTimer = d.clock.AfterFunc(d.cfg.DetectionTimeout, func() {
		d.expirePartial(gen)
	})
}

func (d *Detector) expirePartial(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return
	}
	if d.partial != "" {
		d.logger.Debug("partial transcript expired", "text", d.partial)
	}
	d.partial = ""
	d.timeoutTimer = nil
}

func (d *Detector) endCooldown(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen || d.state != StateCooldown {
		return
	}
	d.cooldownTimer = nil
	d.setStateLocked(StateListening)
}

// HandleError feeds one source error to the detector.
func (d *Detector) HandleError(err error) {
	d.mu.Lock()
	gen := d.gen
	d.mu.Unlock()
	d.handleError(err, gen)
}

func (d *Detector) handleError(err error, gen uint64) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoSpeech) {
		d.logger.Debug("no speech detected, still listening")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen || d.state == StateIdle {
		return
	}
	d.failLocked(err)
}

func (d *Detector) failLocked(err error) {
	clock.Stop(d.timeoutTimer)
	d.timeoutTimer = nil
	clock.Stop(d.cooldownTimer)
	d.cooldownTimer = nil
	d.partial = ""

	d.logger.Warn("transcript source error", "error", err)
	d.setStateLocked(StateError)
	d.emitLocked(Event{Kind: EventError, Err: err})

	if !d.cfg.Continuous || !d.running {
		return
	}
	if d.restarts >= d.cfg.MaxRestarts {
		d.logger.Error("transcript source restart limit reached", "restarts", d.restarts)
		return
	}
	d.restarts++
	gen := d.gen
	clock.Stop(d.restartTimer)
	d.restartTimer = d.clock.AfterFunc(d.cfg.RestartDelay, func() {
		d.restart(gen)
	})
}

func (d *Detector) restart(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.state != StateError {
		d.mu.Unlock()
		return
	}
	d.restartTimer = nil
	ctx := d.runCtx
	attempt := d.restarts
	d.mu.Unlock()

	d.logger.Info("restarting transcript source", "attempt", attempt)
	_ = d.src.Stop()
	err := d.src.Start(ctx)

	d.mu.Lock()
	if gen != d.gen {
		// Stopped while the source was restarting.
		owned := d.running
		d.mu.Unlock()
		if err == nil && !owned {
			_ = d.src.Stop()
		}
		return
	}
	defer d.mu.Unlock()
	if err != nil {
		d.failLocked(err)
		return
	}
	d.setStateLocked(StateListening)
}

func (d *Detector) cancelTimersLocked() {
	clock.Stop(d.cooldownTimer)
	clock.Stop(d.timeoutTimer)
	clock.Stop(d.restartTimer)
	d.cooldownTimer = nil
	d.timeoutTimer = nil
	d.restartTimer = nil
}

func (d *Detector) setStateLocked(s State) {
	if d.state == s {
		return
	}
	d.state = s
	d.emitLocked(Event{Kind: EventState, State: s})
}

func (d *Detector) emitLocked(ev Event) {
	ev.Timestamp = d.clock.Now()
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("event channel full, dropping event", "kind", ev.Kind.String())
	}
}
