package dashboard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-aura/pkg/emotion"
	"github.com/teslashibe/go-aura/pkg/protocol"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " not configured",
	})
}

// handleStatus returns the session status and counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.cfg.Status == nil {
		return unavailable(c, "status source")
	}
	return c.JSON(fiber.Map{
		"status": StatusData(s.cfg.Status.Status()),
		"stats":  s.cfg.Status.Stats(),
	})
}

// EmotionsResponse is the body of GET /api/emotions
type EmotionsResponse struct {
	Latest     *protocol.EmotionData `json:"latest"`
	Top        []protocol.ScoreData  `json:"top"`
	Statistics emotion.Statistics    `json:"statistics"`
}

// handleEmotions returns the latest frame, its top-N view and statistics
func (s *Server) handleEmotions(c *fiber.Ctx) error {
	if s.cfg.Emotions == nil {
		return unavailable(c, "emotion source")
	}

	n := c.QueryInt("top", s.cfg.TopN)
	if n <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "top must be positive",
		})
	}

	resp := EmotionsResponse{
		Top:        []protocol.ScoreData{},
		Statistics: s.cfg.Emotions.Statistics(),
	}
	if frame, ok := s.cfg.Emotions.Latest(); ok {
		data := EmotionData(frame)
		resp.Latest = &data
		resp.Top = Scores(emotion.TopN(frame, n))
	}
	return c.JSON(resp)
}

// handleAura returns the current aura, neutral before the first frame
func (s *Server) handleAura(c *fiber.Ctx) error {
	s.mu.RLock()
	aura := s.aura
	s.mu.RUnlock()

	if aura == nil {
		return c.JSON(AuraData(emotion.Frame{}, emotion.Neutral))
	}
	return c.JSON(aura)
}

// WakewordResponse is the body of GET /api/wakeword
type WakewordResponse struct {
	State         string           `json:"state"`
	Phrase        string           `json:"phrase"`
	LastDetection *wakeword.Result `json:"last_detection"`
}

// handleWakeword returns detector state and the last detection
func (s *Server) handleWakeword(c *fiber.Ctx) error {
	if s.cfg.Wakeword == nil {
		return unavailable(c, "wake word detector")
	}

	s.mu.RLock()
	last := s.lastDetection
	s.mu.RUnlock()

	return c.JSON(WakewordResponse{
		State:         s.cfg.Wakeword.State().String(),
		Phrase:        s.cfg.Wakeword.Phrase(),
		LastDetection: last,
	})
}

// handleConversation returns the retained conversation turns
func (s *Server) handleConversation(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.conversation)
}
