// Package ingest accepts capture clients over WebSocket. Clients push live
// transcripts, microphone audio and recognizer errors; the server exposes
// them as a wakeword.Source and an audioio.Source so the detector and the
// connection manager consume them directly.
package ingest

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-aura/internal/clock"
	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/protocol"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

// Config holds ingest configuration.
type Config struct {
	// Audio is the format clients are expected to send.
	Audio audioio.Config

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Audio: audioio.DefaultConfig(),
		Clock: clock.Real,
	}
}

// Option configures a Server.
type Option func(*Config)

// WithAudio sets the expected client audio format.
func WithAudio(cfg audioio.Config) Option {
	return func(c *Config) {
		c.Audio = cfg
	}
}

// WithClock sets the time source for client bookkeeping.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Server manages WebSocket connections from capture clients
type Server struct {
	cfg    *Config
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	transcripts *TranscriptSource
	mic         *MicSource

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	chunksReceived   atomic.Uint64
	rejected         atomic.Uint64
}

// New creates a new ingest server
func New(opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real
	}

	logger := cfg.Logger.With("component", "ingest.Server")
	return &Server{
		cfg:         cfg,
		logger:      logger,
		clients:     make(map[string]*Client),
		transcripts: newTranscriptSource(cfg.Logger),
		mic:         newMicSource(cfg.Audio, cfg.Logger),
	}
}

// Transcripts returns the transcript stream of all capture clients.
func (s *Server) Transcripts() *TranscriptSource {
	return s.transcripts
}

// Microphone returns the merged microphone stream of all capture clients.
func (s *Server) Microphone() *MicSource {
	return s.mic
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (s *Server) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws/capture", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Capture client endpoint
	app.Get("/ws/capture", websocket.New(s.handleClient))
	app.Get("/ws/capture/:id", websocket.New(s.handleClient))
}

// RegisterAPIRoutes registers API routes for client management
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	clients := api.Group("/clients")

	// List connected clients
	clients.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"clients": s.ClientInfos(),
			"count":   s.ClientCount(),
		})
	})

	// Get ingest stats
	clients.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.GetStats())
	})
}

// handleClient handles a capture client WebSocket connection
func (s *Server) handleClient(c *websocket.Conn) {
	// Get client ID from path or generate one
	clientID := c.Params("id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	now := s.cfg.Clock.Now()
	client := &Client{
		ID:        clientID,
		Conn:      c,
		Connected: now,
		LastSeen:  now,
	}

	s.mu.Lock()
	s.clients[clientID] = client
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("capture client connected", "client", clientID, "clients", count)

	defer func() {
		s.mu.Lock()
		if s.clients[clientID] == client {
			delete(s.clients, clientID)
		}
		count := len(s.clients)
		s.mu.Unlock()

		s.logger.Info("capture client disconnected", "client", clientID, "clients", count)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("capture client read ended", "client", clientID, "error", err)
			return
		}

		client.touch(s.cfg.Clock.Now())
		s.messagesReceived.Add(1)
		if err := s.handleMessage(client, data); err != nil {
			s.rejected.Add(1)
			s.logger.Debug("dropping capture message", "client", clientID, "error", err)
		}
	}
}

// handleMessage processes an incoming message from a capture client
func (s *Server) handleMessage(client *Client, data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case protocol.TypeHello:
		hello, err := msg.GetHelloData()
		if err != nil {
			return err
		}
		client.mu.Lock()
		client.Name = hello.Name
		client.mu.Unlock()

	case protocol.TypeTranscript:
		tr, err := msg.GetTranscriptData()
		if err != nil {
			return err
		}
		s.transcripts.pushSegment(wakeword.Segment{
			Text:      tr.Text,
			Final:     tr.Final,
			Timestamp: s.cfg.Clock.Now(),
		})

	case protocol.TypeMic:
		mic, err := msg.GetMicData()
		if err != nil {
			return err
		}
		chunk, err := client.decode(mic)
		if err != nil {
			return err
		}
		s.chunksReceived.Add(1)
		s.mic.push(chunk)

	case protocol.TypeSpeechError:
		se, err := msg.GetSpeechErrorData()
		if err != nil {
			return err
		}
		s.transcripts.pushError(speechError(se))

	case protocol.TypePing:
		// Respond with pong
		return s.sendPong(client, msg.Timestamp)

	default:
		return fmt.Errorf("ingest: unexpected message type %q", msg.Type)
	}
	return nil
}

func speechError(se *protocol.SpeechErrorData) error {
	if se.Code == protocol.SpeechErrorCodeNoSpeech {
		return wakeword.ErrNoSpeech
	}
	if se.Message != "" {
		return fmt.Errorf("%w: %s: %s", ErrSpeech, se.Code, se.Message)
	}
	return fmt.Errorf("%w: %s", ErrSpeech, se.Code)
}

func (s *Server) sendPong(client *Client, pingTS int64) error {
	msg, err := protocol.NewPongMessage("", pingTS, s.cfg.Clock.Now().UnixMilli())
	if err != nil {
		return err
	}
	s.messagesSent.Add(1)
	return client.Send(msg)
}

// SendTo sends a message to a specific client
func (s *Server) SendTo(clientID string, msg *protocol.Message) error {
	s.mu.RLock()
	client, ok := s.clients[clientID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}

	s.messagesSent.Add(1)
	return client.Send(msg)
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg *protocol.Message) {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		s.messagesSent.Add(1)
		if err := client.Send(msg); err != nil {
			s.logger.Warn("broadcast failed", "client", client.ID, "error", err)
		}
	}
}

// SendSpeak broadcasts synthesized audio for playback on capture clients.
func (s *Server) SendSpeak(id string, index int, audio []byte, format string) error {
	msg, err := protocol.NewSpeakMessage(id, index, audio, format)
	if err != nil {
		return err
	}
	s.Broadcast(msg)
	return nil
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Stats contains ingest statistics
type Stats struct {
	ClientCount        int    `json:"client_count"`
	MessagesReceived   uint64 `json:"messages_received"`
	MessagesSent       uint64 `json:"messages_sent"`
	ChunksReceived     uint64 `json:"chunks_received"`
	MessagesRejected   uint64 `json:"messages_rejected"`
	TranscriptsDropped uint64 `json:"transcripts_dropped"`
}

// GetStats returns ingest statistics
func (s *Server) GetStats() Stats {
	return Stats{
		ClientCount:        s.ClientCount(),
		MessagesReceived:   s.messagesReceived.Load(),
		MessagesSent:       s.messagesSent.Load(),
		ChunksReceived:     s.chunksReceived.Load(),
		MessagesRejected:   s.rejected.Load(),
		TranscriptsDropped: s.transcripts.Dropped(),
	}
}

// ClientInfo contains info about a connected client
type ClientInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// ClientInfos returns info about all connected clients, oldest first
func (s *Server) ClientInfos() []ClientInfo {
	s.mu.RLock()
	infos := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		c.mu.Lock()
		infos = append(infos, ClientInfo{
			ID:        c.ID,
			Name:      c.Name,
			Connected: c.Connected,
			LastSeen:  c.LastSeen,
		})
		c.mu.Unlock()
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Connected.Equal(infos[j].Connected) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Connected.Before(infos[j].Connected)
	})
	return infos
}
