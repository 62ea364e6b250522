package protocol

import (
	"encoding/base64"
	"time"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewTranscriptMessage creates a transcript message
func NewTranscriptMessage(text string, final bool) (*Message, error) {
	return NewMessage(TypeTranscript, TranscriptData{Text: text, Final: final})
}

// NewMicMessage creates a microphone audio message from PCM16 data
func NewMicMessage(pcmData []byte, sampleRate int) (*Message, error) {
	return NewMessage(TypeMic, MicData{
		Format:     FormatPCM16,
		SampleRate: sampleRate,
		Channels:   1,
		Data:       base64.StdEncoding.EncodeToString(pcmData),
	})
}

// NewSpeechErrorMessage creates a speech error message
func NewSpeechErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeSpeechError, SpeechErrorData{Code: code, Message: message})
}

// NewStatusMessage creates a connection status message
func NewStatusMessage(status StatusData) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewEmotionMessage creates an emotion frame message
func NewEmotionMessage(frame EmotionData) (*Message, error) {
	return NewMessage(TypeEmotion, frame)
}

// NewAuraMessage creates an aura message
func NewAuraMessage(aura AuraData) (*Message, error) {
	return NewMessage(TypeAura, aura)
}

// NewWakewordMessage creates a wake-word message
func NewWakewordMessage(data WakewordData) (*Message, error) {
	return NewMessage(TypeWakeword, data)
}

// NewChatMessage creates a conversation turn message
func NewChatMessage(role, text string, final bool) (*Message, error) {
	return NewMessage(TypeChat, ChatData{Role: role, Text: text, Final: final})
}

// NewSpeakMessage creates a speak message with audio data
func NewSpeakMessage(id string, index int, audioData []byte, format string) (*Message, error) {
	return NewMessage(TypeSpeak, SpeakData{
		ID:     id,
		Index:  index,
		Format: format,
		Data:   base64.StdEncoding.EncodeToString(audioData),
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetHelloData extracts hello data from a message
func (m *Message) GetHelloData() (*HelloData, error) {
	var data HelloData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTranscriptData extracts transcript data from a message
func (m *Message) GetTranscriptData() (*TranscriptData, error) {
	var data TranscriptData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMicData extracts mic data from a message
func (m *Message) GetMicData() (*MicData, error) {
	var data MicData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeMicData decodes the base64 audio data
func (mic *MicData) DecodeMicData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(mic.Data)
}

// GetSpeechErrorData extracts speech error data from a message
func (m *Message) GetSpeechErrorData() (*SpeechErrorData, error) {
	var data SpeechErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEmotionData extracts an emotion frame from a message
func (m *Message) GetEmotionData() (*EmotionData, error) {
	var data EmotionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAuraData extracts aura data from a message
func (m *Message) GetAuraData() (*AuraData, error) {
	var data AuraData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWakewordData extracts wake-word data from a message
func (m *Message) GetWakewordData() (*WakewordData, error) {
	var data WakewordData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeakData extracts speak data from a message
func (m *Message) GetSpeakData() (*SpeakData, error) {
	var data SpeakData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeSpeakData decodes the base64 audio data
func (s *SpeakData) DecodeSpeakData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Data)
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
