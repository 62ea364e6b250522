package connection

import (
	"encoding/json"
	"fmt"
)

// Outbound wire kinds.
const (
	TypeAudioInput      = "audio_input"
	TypeUserInput       = "user_input"
	TypeHeartbeat       = "heartbeat"
	TypeSessionSettings = "session_settings"
	TypeSessionEnd      = "session_end"
)

// Outbound is a message the manager can send to the service.
type Outbound interface {
	Type() string
}

// AudioInput carries one chunk of PCM16 audio. Data is base64 on the wire.
type AudioInput struct {
	Data       []byte `json:"data"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func (AudioInput) Type() string { return TypeAudioInput }

func (m AudioInput) MarshalJSON() ([]byte, error) {
	type alias AudioInput
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{m.Type(), alias(m)})
}

// UserInput is a text turn from the user.
type UserInput struct {
	Text string `json:"text"`
}

func (UserInput) Type() string { return TypeUserInput }

func (m UserInput) MarshalJSON() ([]byte, error) {
	type alias UserInput
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{m.Type(), alias(m)})
}

// Heartbeat is the periodic keepalive.
type Heartbeat struct{}

func (Heartbeat) Type() string { return TypeHeartbeat }

func (m Heartbeat) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{m.Type()})
}

// AudioSettings describes the format of AudioInput payloads.
type AudioSettings struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// SessionSettings configures the session once it is open.
type SessionSettings struct {
	Audio           *AudioSettings `json:"audio,omitempty"`
	SystemPrompt    string         `json:"system_prompt,omitempty"`
	CustomSessionID string         `json:"custom_session_id,omitempty"`
}

func (SessionSettings) Type() string { return TypeSessionSettings }

func (m SessionSettings) MarshalJSON() ([]byte, error) {
	type alias SessionSettings
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{m.Type(), alias(m)})
}

// SessionEnd asks the service to end the session.
type SessionEnd struct {
	Reason string `json:"reason,omitempty"`
}

func (SessionEnd) Type() string { return TypeSessionEnd }

func (m SessionEnd) MarshalJSON() ([]byte, error) {
	type alias SessionEnd
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{m.Type(), alias(m)})
}

func encode(msg Outbound) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("connection: encode %s: %w", msg.Type(), err)
	}
	return data, nil
}
