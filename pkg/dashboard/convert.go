package dashboard

import (
	"github.com/teslashibe/go-aura/pkg/connection"
	"github.com/teslashibe/go-aura/pkg/emotion"
	"github.com/teslashibe/go-aura/pkg/protocol"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

// StatusData converts a connection status snapshot to its wire form.
func StatusData(st connection.Status) protocol.StatusData {
	data := protocol.StatusData{
		State:            st.State.String(),
		SessionID:        st.SessionID,
		ReconnectAttempt: st.ReconnectAttempt,
	}
	if !st.ConnectedAt.IsZero() {
		at := st.ConnectedAt
		data.ConnectedAt = &at
	}
	if st.LastError != nil {
		data.LastError = st.LastError.Error()
	}
	return data
}

// Scores converts emotion scores to their wire form.
func Scores(scores []emotion.Score) []protocol.ScoreData {
	out := make([]protocol.ScoreData, len(scores))
	for i, s := range scores {
		out[i] = protocol.ScoreData{Name: s.Name, Score: s.Score}
	}
	return out
}

// EmotionData converts a processed frame to its wire form.
func EmotionData(f emotion.Frame) protocol.EmotionData {
	return protocol.EmotionData{
		Emotions:   Scores(f.Emotions),
		Dominant:   f.Dominant,
		Confidence: f.ConfidenceOr(0),
		Timestamp:  f.Timestamp.UnixMilli(),
	}
}

// AuraData converts an aura color for the given frame to its wire form.
func AuraData(f emotion.Frame, aura emotion.AuraColor) protocol.AuraData {
	return protocol.AuraData{
		Emotion:   f.Dominant,
		Primary:   aura.Primary,
		Secondary: aura.Secondary,
		Accent:    aura.Accent,
		Intensity: aura.Intensity,
		PulseRate: aura.PulseRate,
	}
}

// WakewordData converts a detector event to its wire form. The second
// return is false for events with nothing to show.
func WakewordData(ev wakeword.Event, state wakeword.State) (protocol.WakewordData, bool) {
	data := protocol.WakewordData{State: state.String()}
	switch ev.Kind {
	case wakeword.EventState:
		data.State = ev.State.String()
	case wakeword.EventDetection:
		if ev.Result == nil {
			return data, false
		}
		data.Detected = ev.Result.Detected
		data.Phrase = ev.Result.Phrase
		data.Confidence = ev.Result.Confidence
		data.Transcript = ev.Result.Transcript
	default:
		return data, false
	}
	return data, true
}
