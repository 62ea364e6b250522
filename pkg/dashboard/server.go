// Package dashboard serves the live view of the emotion session: REST
// snapshots of connection status, emotion frames, aura and wake-word state,
// plus a WebSocket feed carrying every change as a protocol message.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-aura/pkg/connection"
	"github.com/teslashibe/go-aura/pkg/emotion"
	"github.com/teslashibe/go-aura/pkg/hub"
	"github.com/teslashibe/go-aura/pkg/protocol"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

// StatusSource reports the inference session status.
// *connection.Manager satisfies it.
type StatusSource interface {
	Status() connection.Status
	Stats() connection.Stats
}

// EmotionSource reports processed emotion frames.
// *emotion.Processor satisfies it.
type EmotionSource interface {
	Latest() (emotion.Frame, bool)
	Statistics() emotion.Statistics
}

// WakewordSource reports wake-word detector state.
// *wakeword.Detector satisfies it.
type WakewordSource interface {
	State() wakeword.State
	Phrase() string
}

// Config holds dashboard configuration.
type Config struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string

	// TopN is the default number of ranked emotions in /api/emotions.
	// Default: 5
	TopN int

	// ConversationLimit bounds the retained conversation turns.
	// Default: 100
	ConversationLimit int

	Status   StatusSource
	Emotions EmotionSource
	Wakeword WakewordSource
	Logger   *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		TopN:              5,
		ConversationLimit: 100,
	}
}

// Option configures a Server.
type Option func(*Config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithTopN sets the default ranked emotion count.
func WithTopN(n int) Option {
	return func(c *Config) {
		c.TopN = n
	}
}

// WithStatus sets the session status source.
func WithStatus(src StatusSource) Option {
	return func(c *Config) {
		c.Status = src
	}
}

// WithEmotions sets the emotion frame source.
func WithEmotions(src EmotionSource) Option {
	return func(c *Config) {
		c.Emotions = src
	}
}

// WithWakeword sets the wake-word state source.
func WithWakeword(src WakewordSource) Option {
	return func(c *Config) {
		c.Wakeword = src
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// ConversationEntry is one retained conversation turn.
type ConversationEntry struct {
	Time  time.Time `json:"time"`
	Role  string    `json:"role"`
	Text  string    `json:"text"`
	Final bool      `json:"final"`
}

// Server is the dashboard server
type Server struct {
	cfg    *Config
	app    *fiber.App
	logger *slog.Logger

	// Hub for websocket broadcast
	events *hub.Hub

	mu            sync.RWMutex
	aura          *protocol.AuraData
	lastDetection *wakeword.Result
	conversation  []ConversationEntry
}

// New creates a new dashboard server
func New(opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.ConversationLimit <= 0 {
		cfg.ConversationLimit = 100
	}

	s := &Server{
		cfg:          cfg,
		logger:       cfg.Logger.With("component", "dashboard.Server"),
		events:       hub.New("events", cfg.Logger),
		conversation: make([]ConversationEntry, 0, cfg.ConversationLimit),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Aura Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/emotions", s.handleEmotions)
	api.Get("/aura", s.handleAura)
	api.Get("/wakeword", s.handleWakeword)
	api.Get("/conversation", s.handleConversation)

	// WebSocket upgrade middleware
	app.Use("/ws/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App returns the underlying Fiber app so other packages can mount routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the event hub.
func (s *Server) Hub() *hub.Hub {
	return s.events
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.events.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		stopHub()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.events, c).Run()
}

// PublishStatus broadcasts a connection status change.
func (s *Server) PublishStatus(st connection.Status) {
	msg, err := protocol.NewStatusMessage(StatusData(st))
	s.publish(msg, err)
}

// PublishFrame broadcasts a processed frame and its aura.
func (s *Server) PublishFrame(f emotion.Frame, aura emotion.AuraColor) {
	data := AuraData(f, aura)
	s.mu.Lock()
	s.aura = &data
	s.mu.Unlock()

	msg, err := protocol.NewEmotionMessage(EmotionData(f))
	s.publish(msg, err)
	msg, err = protocol.NewAuraMessage(data)
	s.publish(msg, err)
}

// PublishWakeword broadcasts a detector state change or detection.
func (s *Server) PublishWakeword(ev wakeword.Event) {
	state := wakeword.StateIdle
	if s.cfg.Wakeword != nil {
		state = s.cfg.Wakeword.State()
	}
	data, ok := WakewordData(ev, state)
	if !ok {
		return
	}
	if ev.Kind == wakeword.EventDetection {
		result := *ev.Result
		s.mu.Lock()
		s.lastDetection = &result
		s.mu.Unlock()
	}

	msg, err := protocol.NewWakewordMessage(data)
	s.publish(msg, err)
}

// AddConversation records a conversation turn and broadcasts it.
func (s *Server) AddConversation(role, text string, final bool) {
	entry := ConversationEntry{Time: time.Now(), Role: role, Text: text, Final: final}

	s.mu.Lock()
	s.conversation = append(s.conversation, entry)
	if len(s.conversation) > s.cfg.ConversationLimit {
		s.conversation = s.conversation[1:]
	}
	s.mu.Unlock()

	msg, err := protocol.NewChatMessage(role, text, final)
	s.publish(msg, err)
}

func (s *Server) publish(msg *protocol.Message, err error) {
	if err == nil {
		err = s.events.Publish(msg)
	}
	if err != nil {
		s.logger.Warn("failed to publish dashboard event", "error", err)
	}
}

// Shutdown gracefully stops the dashboard server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
