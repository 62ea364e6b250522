// Package aura wires the connection manager, emotion processor, wake word
// detector, capture ingest and dashboard into one running application.
package aura

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-aura/internal/clock"
	"github.com/teslashibe/go-aura/internal/config"
	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/connection"
	"github.com/teslashibe/go-aura/pkg/dashboard"
	"github.com/teslashibe/go-aura/pkg/emotion"
	"github.com/teslashibe/go-aura/pkg/ingest"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

// DefaultFusionWindow is how long a channel's latest scores keep
// contributing to fused frames.
const DefaultFusionWindow = 2 * time.Second

// ErrNoTranscripts is returned by New when ingest is disabled and no
// transcript source was given.
var ErrNoTranscripts = errors.New("aura: no transcript source")

// Option customizes an App beyond its configuration.
type Option func(*App)

// WithDialer replaces the WebSocket dialer, e.g. with a mock.
func WithDialer(d connection.Dialer) Option {
	return func(a *App) {
		a.dialer = d
	}
}

// WithAudioSource streams src to the service instead of the ingest
// microphone.
func WithAudioSource(src audioio.Source) Option {
	return func(a *App) {
		a.audio = src
	}
}

// WithTranscripts feeds the wake word detector from src instead of the
// ingest transcripts.
func WithTranscripts(src wakeword.Source) Option {
	return func(a *App) {
		a.transcripts = src
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(a *App) {
		a.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

type channelFrame struct {
	frame emotion.Frame
	at    time.Time
}

// App is the main application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	cfg    *config.Config
	clock  clock.Clock
	logger *slog.Logger

	dialer      connection.Dialer
	audio       audioio.Source
	transcripts wakeword.Source

	// Core components
	manager   *connection.Manager
	processor *emotion.Processor
	detector  *wakeword.Detector
	ingest    *ingest.Server
	dashboard *dashboard.Server

	fusionWindow time.Duration

	mu       sync.Mutex
	channels map[connection.Channel]channelFrame
}

// New builds every component from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:          cfg,
		clock:        clock.Real,
		logger:       slog.Default(),
		fusionWindow: DefaultFusionWindow,
		channels:     make(map[connection.Channel]channelFrame),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "aura.App")
	base := a.logger

	var err error
	a.processor, err = emotion.NewValidated(append(cfg.EmotionOptions(),
		emotion.WithClock(a.clock),
		emotion.WithLogger(base),
	)...)
	if err != nil {
		return nil, err
	}

	connOpts := append(cfg.ConnectionOptions(),
		connection.WithClock(a.clock),
		connection.WithLogger(base),
	)
	if a.dialer != nil {
		connOpts = append(connOpts, connection.WithDialer(a.dialer))
	}
	a.manager, err = connection.New(connOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.Ingest.Enabled {
		a.ingest = ingest.New(
			ingest.WithAudio(cfg.Audio),
			ingest.WithClock(a.clock),
			ingest.WithLogger(base),
		)
		if a.transcripts == nil {
			a.transcripts = a.ingest.Transcripts()
		}
	}
	if a.transcripts == nil {
		return nil, ErrNoTranscripts
	}
	if a.audio == nil {
		var mic audioio.Source
		if a.ingest != nil {
			mic = a.ingest.Microphone()
		}
		a.audio, err = audioio.NewSource(cfg.Audio, mic, base)
		if err != nil {
			return nil, err
		}
	}

	a.detector, err = wakeword.New(a.transcripts, append(cfg.WakewordOptions(),
		wakeword.WithClock(a.clock),
		wakeword.WithLogger(base),
	)...)
	if err != nil {
		return nil, err
	}

	a.dashboard = dashboard.New(
		dashboard.WithAddr(cfg.Dashboard.Addr),
		dashboard.WithTopN(cfg.Dashboard.TopN),
		dashboard.WithStatus(a.manager),
		dashboard.WithEmotions(a.processor),
		dashboard.WithWakeword(a.detector),
		dashboard.WithLogger(base),
	)
	if a.ingest != nil {
		a.ingest.RegisterRoutes(a.dashboard.App())
		a.ingest.RegisterAPIRoutes(a.dashboard.App().Group("/api"))
	}

	return a, nil
}

// Manager returns the connection manager.
func (a *App) Manager() *connection.Manager { return a.manager }

// Processor returns the emotion processor.
func (a *App) Processor() *emotion.Processor { return a.processor }

// Detector returns the wake word detector.
func (a *App) Detector() *wakeword.Detector { return a.detector }

// Dashboard returns the dashboard server.
func (a *App) Dashboard() *dashboard.Server { return a.dashboard }

// Ingest returns the capture ingest server, nil when disabled.
func (a *App) Ingest() *ingest.Server { return a.ingest }

// Run starts listening for the wake word and serving the dashboard, and
// blocks until ctx is done or the dashboard fails.
func (a *App) Run(ctx context.Context) error {
	go a.consumeConnection(ctx)
	go a.consumeWakeword(ctx)

	if err := a.detector.Start(ctx); err != nil {
		return fmt.Errorf("aura: start wake word detector: %w", err)
	}

	a.logger.Info("listening for wake phrase", "phrase", a.detector.Phrase(), "dashboard", a.cfg.Dashboard.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.dashboard.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		<-errCh
		return nil
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("aura: dashboard: %w", err)
	}
}

// Connect opens the session without waiting for the wake phrase.
func (a *App) Connect() error {
	err := a.manager.Connect()
	if errors.Is(err, connection.ErrAlreadyConnected) {
		return nil
	}
	return err
}

// Shutdown releases every component.
func (a *App) Shutdown() {
	if err := a.detector.Stop(); err != nil {
		a.logger.Debug("detector stop", "error", err)
	}
	a.manager.Close()
	if a.ingest != nil {
		a.ingest.Microphone().Close()
	}
	a.logger.Info("shut down")
}

func (a *App) consumeConnection(ctx context.Context) {
	events := a.manager.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handleConnectionEvent(ctx, ev)
		}
	}
}

func (a *App) consumeWakeword(ctx context.Context) {
	events := a.detector.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handleWakewordEvent(ev)
		}
	}
}
