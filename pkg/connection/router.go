package connection

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Feature payloads carry no type tag; the channel is the top-level key.
var featureChannels = []struct {
	channel Channel
	kind    EventKind
}{
	{ChannelFace, EventEmotion},
	{ChannelProsody, EventProsody},
	{ChannelBurst, EventVocalBurst},
	{ChannelLanguage, EventEmotion},
}

type featurePayload struct {
	Predictions []struct {
		Emotions []Score `json:"emotions"`
	} `json:"predictions"`
}

type scoresPayload struct {
	Channel  Channel         `json:"channel"`
	Scores   json.RawMessage `json:"scores"`
	Emotions json.RawMessage `json:"emotions"`
}

type transcriptPayload struct {
	Role    string `json:"role"`
	Text    string `json:"text"`
	Final   bool   `json:"final"`
	IsFinal bool   `json:"is_final"`
}

type messagePayload struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Models struct {
		Prosody struct {
			Scores json.RawMessage `json:"scores"`
		} `json:"prosody"`
	} `json:"models"`
}

type sessionPayload struct {
	SessionID string `json:"session_id"`
	ChatID    string `json:"chat_id"`
}

// decodeInbound routes one payload. Errors wrap ErrInvalidMessage and
// mean the payload should be dropped.
//
// Precedence: a bare error field, then a feature-shaped payload, then the
// type tag.
func decodeInbound(data []byte) ([]Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}

	rawType, tagged := fields["type"]
	if _, ok := fields["error"]; ok && !tagged {
		return decodeBareError(data)
	}
	if !tagged {
		return decodeFeatures(fields)
	}

	var tag string
	if err := json.Unmarshal(rawType, &tag); err != nil || tag == "" {
		return nil, fmt.Errorf("%w: bad type tag", ErrInvalidMessage)
	}

	switch tag {
	case "emotion":
		return decodeScores(data, EventEmotion, ChannelFace)
	case "prosody":
		return decodeScores(data, EventProsody, ChannelProsody)
	case "vocal_burst", "burst":
		return decodeScores(data, EventVocalBurst, ChannelBurst)
	case "transcript":
		var p transcriptPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: transcript: %v", ErrInvalidMessage, err)
		}
		if p.Role == "" {
			p.Role = "user"
		}
		return []Event{{
			Kind:       EventTranscript,
			Transcript: &Transcript{Role: p.Role, Text: p.Text, Final: p.Final || p.IsFinal},
		}}, nil
	case "assistant_message", "user_message":
		return decodeMessage(data, tag)
	case "audio_output":
		var out AudioOutput
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%w: audio_output: %v", ErrInvalidMessage, err)
		}
		return []Event{{Kind: EventAudioOutput, Audio: &out}}, nil
	case "session_begin", "chat_metadata":
		var p sessionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, tag, err)
		}
		id := p.SessionID
		if id == "" {
			id = p.ChatID
		}
		return []Event{{Kind: EventSessionBegin, SessionID: id}}, nil
	case "session_end":
		var p sessionPayload
		_ = json.Unmarshal(data, &p)
		return []Event{{Kind: EventSessionEnd, SessionID: p.SessionID}}, nil
	case "heartbeat", "pong":
		return []Event{{Kind: EventHeartbeat}}, nil
	case "error":
		var se ServiceError
		if err := json.Unmarshal(data, &se); err != nil {
			return nil, fmt.Errorf("%w: error: %v", ErrInvalidMessage, err)
		}
		return []Event{{Kind: EventError, Err: se.err()}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, tag)
	}
}

func decodeBareError(data []byte) ([]Event, error) {
	var p struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: error: %v", ErrInvalidMessage, err)
	}
	se := ServiceError{Code: p.Code, Message: p.Error, Details: p.Details}
	return []Event{{Kind: EventError, Err: se.err()}}, nil
}

func decodeFeatures(fields map[string]json.RawMessage) ([]Event, error) {
	var events []Event
	for _, fc := range featureChannels {
		raw, ok := fields[string(fc.channel)]
		if !ok {
			continue
		}
		var p featurePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		lists := make([][]Score, 0, len(p.Predictions))
		for _, pred := range p.Predictions {
			lists = append(lists, pred.Emotions)
		}
		scores := averageScores(lists)
		if len(scores) == 0 {
			continue
		}
		events = append(events, Event{
			Kind:   fc.kind,
			Scores: &Scores{Channel: fc.channel, Scores: scores},
		})
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: unrecognized shape", ErrInvalidMessage)
	}
	return events, nil
}

func decodeScores(data []byte, kind EventKind, def Channel) ([]Event, error) {
	var p scoresPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: scores: %v", ErrInvalidMessage, err)
	}
	raw := p.Scores
	if len(raw) == 0 {
		raw = p.Emotions
	}
	scores, err := parseScores(raw)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: no scores", ErrInvalidMessage)
	}
	ch := p.Channel
	if ch == "" {
		ch = def
	}
	return []Event{{Kind: kind, Scores: &Scores{Channel: ch, Scores: scores}}}, nil
}

func decodeMessage(data []byte, tag string) ([]Event, error) {
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, tag, err)
	}
	kind, role := EventAssistantMessage, "assistant"
	if tag == "user_message" {
		kind, role = EventUserMessage, "user"
	}
	if p.Message.Role != "" {
		role = p.Message.Role
	}
	msg := &Message{Role: role, Text: p.Message.Content}
	if len(p.Models.Prosody.Scores) > 0 {
		scores, err := parseScores(p.Models.Prosody.Scores)
		if err == nil {
			msg.Scores = scores
		}
	}
	return []Event{{Kind: kind, Message: msg}}, nil
}

// parseScores accepts either a ranked list of {name, score} or a
// name→score object. Objects carry no order, so they are ranked by
// descending score.
func parseScores(raw json.RawMessage) ([]Score, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []Score
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: scores: %v", ErrInvalidMessage, err)
	}
	list = make([]Score, 0, len(m))
	for name, score := range m {
		list = append(list, Score{Name: name, Score: score})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

// averageScores merges several prediction lists into one, keeping the
// order in which categories were first seen.
func averageScores(lists [][]Score) []Score {
	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, list := range lists {
		for _, s := range list {
			if _, seen := counts[s.Name]; !seen {
				order = append(order, s.Name)
			}
			sums[s.Name] += s.Score
			counts[s.Name]++
		}
	}
	out := make([]Score, 0, len(order))
	for _, name := range order {
		out = append(out, Score{Name: name, Score: sums[name] / float64(counts[name])})
	}
	return out
}

func (e ServiceError) err() error {
	return &APIError{Code: e.Code, Message: e.Message, Details: e.Details}
}
