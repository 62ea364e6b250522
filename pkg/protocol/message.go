// Package protocol defines the WebSocket message envelope shared by capture
// clients (which feed microphone audio and live transcripts in) and
// dashboard consumers (which render emotion, aura, connection and wake-word
// state).
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Capture client → server
	TypeHello       MessageType = "hello"        // Client introduction
	TypeTranscript  MessageType = "transcript"   // Live speech-to-text fragment
	TypeMic         MessageType = "mic"          // Microphone audio
	TypeSpeechError MessageType = "speech_error" // Speech recognizer failure

	// Server → consumers
	TypeStatus   MessageType = "status"   // Connection status
	TypeEmotion  MessageType = "emotion"  // Processed emotion frame
	TypeAura     MessageType = "aura"     // Aura color for the dominant emotion
	TypeWakeword MessageType = "wakeword" // Wake-word state or detection
	TypeChat     MessageType = "chat"     // Conversation turn
	TypeSpeak    MessageType = "speak"    // Synthesized audio for playback

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Capture Client → Server Message Types
// =============================================================================

// HelloData introduces a capture client
type HelloData struct {
	Name      string `json:"name,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// TranscriptData is one speech-to-text result
type TranscriptData struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Microphone audio formats
const (
	FormatPCM16 = "pcm16" // little-endian signed 16-bit
	FormatF32   = "f32"   // little-endian float32
	FormatOpus  = "opus"  // one Opus packet per message
)

// MicData contains microphone audio
type MicData struct {
	Format     string `json:"format"`      // "pcm16", "f32", "opus"
	SampleRate int    `json:"sample_rate"` // e.g., 16000
	Channels   int    `json:"channels"`    // 1 for mono
	Data       string `json:"data"`        // base64 encoded
}

// SpeechErrorCodeNoSpeech is reported when the recognizer heard nothing.
const SpeechErrorCodeNoSpeech = "no-speech"

// SpeechErrorData reports a speech recognizer failure
type SpeechErrorData struct {
	Code    string `json:"code"` // "no-speech", "network", "not-allowed", ...
	Message string `json:"message,omitempty"`
}

// =============================================================================
// Server → Consumer Message Types
// =============================================================================

// StatusData mirrors the inference session status
type StatusData struct {
	State            string     `json:"state"`
	SessionID        string     `json:"session_id,omitempty"`
	ConnectedAt      *time.Time `json:"connected_at,omitempty"`
	ReconnectAttempt int        `json:"reconnect_attempt"`
	LastError        string     `json:"last_error,omitempty"`
}

// ScoreData is one category's score
type ScoreData struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// EmotionData is one processed emotion frame, ranked highest first
type EmotionData struct {
	Emotions   []ScoreData `json:"emotions"`
	Dominant   string      `json:"dominant,omitempty"`
	Confidence float64     `json:"confidence"`
	Timestamp  int64       `json:"timestamp"` // Unix milliseconds
}

// AuraData is the color treatment for the current emotion
type AuraData struct {
	Emotion   string  `json:"emotion,omitempty"`
	Primary   string  `json:"primary"`
	Secondary string  `json:"secondary"`
	Accent    string  `json:"accent"`
	Intensity float64 `json:"intensity"`
	PulseRate float64 `json:"pulse_rate"`
}

// WakewordData carries a wake-word state change or detection
type WakewordData struct {
	State      string  `json:"state"`
	Detected   bool    `json:"detected"`
	Phrase     string  `json:"phrase,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
}

// ChatData is one conversation turn
type ChatData struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// SpeakData contains synthesized audio to play
type SpeakData struct {
	ID         string `json:"id,omitempty"`
	Index      int    `json:"index"`
	Format     string `json:"format"`                // "wav", "pcm16"
	SampleRate int    `json:"sample_rate,omitempty"` // 0 when the container carries it
	Data       string `json:"data"`                  // base64 encoded
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
