package connection

import "time"

// State is the session lifecycle state.
type State int

const (
	// StateDisconnected is the initial state and the result of Disconnect.
	StateDisconnected State = iota
	// StateConnecting means the first handshake of a session is in flight.
	StateConnecting
	// StateConnected means the session is live.
	StateConnected
	// StateReconnecting means a retry is scheduled or in flight.
	StateReconnecting
	// StateError is entered on every abnormal closure or failed handshake.
	StateError
	// StateClosed means retries are exhausted or the manager was closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a read-only snapshot of the manager's session record.
type Status struct {
	State State `json:"state"`

	// SessionID is "" until a session has been established.
	SessionID string `json:"session_id,omitempty"`

	// ConnectedAt is zero when not connected.
	ConnectedAt time.Time `json:"connected_at,omitzero"`

	LastError        error `json:"-"`
	ReconnectAttempt int   `json:"reconnect_attempt"`
}

// EventKind discriminates Event.
type EventKind int

const (
	EventStatus EventKind = iota
	EventEmotion
	EventProsody
	EventVocalBurst
	EventTranscript
	EventAssistantMessage
	EventUserMessage
	EventAudioOutput
	EventSessionBegin
	EventSessionEnd
	EventHeartbeat
	EventError
)

var eventKindNames = [...]string{
	EventStatus:           "status",
	EventEmotion:          "emotion",
	EventProsody:          "prosody",
	EventVocalBurst:       "vocal_burst",
	EventTranscript:       "transcript",
	EventAssistantMessage: "assistant_message",
	EventUserMessage:      "user_message",
	EventAudioOutput:      "audio_output",
	EventSessionBegin:     "session_begin",
	EventSessionEnd:       "session_end",
	EventHeartbeat:        "heartbeat",
	EventError:            "error",
}

// String returns the event kind's wire-style name.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is delivered on Manager.Events. Kind selects which payload field
// is set.
type Event struct {
	Kind      EventKind
	Timestamp time.Time

	Status     Status       // EventStatus
	Scores     *Scores      // EventEmotion, EventProsody, EventVocalBurst
	Transcript *Transcript  // EventTranscript
	Message    *Message     // EventAssistantMessage, EventUserMessage
	Audio      *AudioOutput // EventAudioOutput
	SessionID  string       // EventSessionBegin, EventSessionEnd
	Err        error        // EventError
}

// Score is one category's intensity as reported by the service.
type Score struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Channel names the modality a score list came from.
type Channel string

const (
	ChannelFace     Channel = "face"
	ChannelProsody  Channel = "prosody"
	ChannelBurst    Channel = "burst"
	ChannelLanguage Channel = "language"
)

// Scores is a ranked list of category scores from one channel.
type Scores struct {
	Channel Channel `json:"channel"`
	Scores  []Score `json:"scores"`
}

// Transcript is a partial or final speech transcript.
type Transcript struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Message is a conversational turn, optionally carrying prosody scores.
type Message struct {
	Role   string  `json:"role"`
	Text   string  `json:"text"`
	Scores []Score `json:"scores,omitempty"`
}

// AudioOutput is one chunk of synthesized speech.
type AudioOutput struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Data  []byte `json:"data"`
}

// ServiceError is the structured error payload sent by the service.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Stats holds manager counters.
type Stats struct {
	MessagesSent     uint64 `json:"messages_sent"`
	MessagesReceived uint64 `json:"messages_received"`
	AudioBytesSent   uint64 `json:"audio_bytes_sent"`
	AudioSkipped     uint64 `json:"audio_skipped"`
	QueueDropped     uint64 `json:"queue_dropped"`
	RoutedDropped    uint64 `json:"routed_dropped"`
	EventsDropped    uint64 `json:"events_dropped"`
	Reconnects       uint64 `json:"reconnects"`
	Queued           int    `json:"queued"`
}
