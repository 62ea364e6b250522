package aura

import (
	"context"
	"errors"

	"github.com/teslashibe/go-aura/pkg/connection"
	"github.com/teslashibe/go-aura/pkg/emotion"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

// speakFormat is the container of the service's synthesized audio.
const speakFormat = "wav"

func (a *App) handleConnectionEvent(ctx context.Context, ev connection.Event) {
	switch ev.Kind {
	case connection.EventStatus:
		a.dashboard.PublishStatus(ev.Status)
		if ev.Status.State == connection.StateConnected {
			a.startCapture(ctx)
		}

	case connection.EventEmotion, connection.EventProsody, connection.EventVocalBurst:
		if ev.Scores != nil {
			a.fuse(ev.Scores.Channel, ev.Scores.Scores)
		}

	case connection.EventUserMessage, connection.EventAssistantMessage:
		if ev.Message == nil {
			return
		}
		a.dashboard.AddConversation(ev.Message.Role, ev.Message.Text, true)
		if len(ev.Message.Scores) > 0 && ev.Message.Role == "user" {
			a.fuse(connection.ChannelProsody, ev.Message.Scores)
		}

	case connection.EventTranscript:
		if ev.Transcript != nil && ev.Transcript.Final {
			a.dashboard.AddConversation(ev.Transcript.Role, ev.Transcript.Text, true)
		}

	case connection.EventAudioOutput:
		if a.ingest != nil && ev.Audio != nil {
			if err := a.ingest.SendSpeak(ev.Audio.ID, ev.Audio.Index, ev.Audio.Data, speakFormat); err != nil {
				a.logger.Warn("failed to forward audio output", "error", err)
			}
		}

	case connection.EventSessionBegin:
		a.logger.Info("session started", "session_id", ev.SessionID)

	case connection.EventSessionEnd:
		a.logger.Info("session ended", "session_id", ev.SessionID)

	case connection.EventError:
		a.logger.Warn("session error", "error", ev.Err)
	}
}

// startCapture streams the configured audio source once a session is up.
// Capture outlives reconnects and stops on Disconnect.
func (a *App) startCapture(ctx context.Context) {
	if a.audio == nil {
		return
	}
	err := a.manager.StartCapture(ctx, a.audio)
	if err != nil && !errors.Is(err, connection.ErrCaptureActive) {
		a.logger.Error("audio capture unavailable", "error", err)
	}
}

// fuse records the latest scores of one channel and folds every channel
// still inside the fusion window into a single processed frame.
func (a *App) fuse(channel connection.Channel, scores []connection.Score) {
	now := a.clock.Now()
	frame := emotion.Frame{Emotions: make([]emotion.Score, len(scores)), Timestamp: now}
	for i, s := range scores {
		frame.Emotions[i] = emotion.Score{Name: s.Name, Score: s.Score}
	}

	a.mu.Lock()
	a.channels[channel] = channelFrame{frame: frame, at: now}
	sources := make([]emotion.Source, 0, len(a.channels))
	for _, ch := range []connection.Channel{
		connection.ChannelFace,
		connection.ChannelProsody,
		connection.ChannelBurst,
		connection.ChannelLanguage,
	} {
		cf, ok := a.channels[ch]
		if !ok {
			continue
		}
		if now.Sub(cf.at) > a.fusionWindow {
			delete(a.channels, ch)
			continue
		}
		sources = append(sources, emotion.Source{Frame: cf.frame, Weight: a.cfg.Fusion.Weight(ch)})
	}
	a.mu.Unlock()

	fused := a.processor.Fuse(sources)
	a.dashboard.PublishFrame(fused, a.processor.EmotionToAura(fused))
}

func (a *App) handleWakewordEvent(ev wakeword.Event) {
	a.dashboard.PublishWakeword(ev)

	switch ev.Kind {
	case wakeword.EventDetection:
		if ev.Result != nil {
			a.startConversation(ev.Result)
		}
	case wakeword.EventError:
		a.logger.Warn("wake word detector error", "error", ev.Err)
	}
}

// startConversation opens the session if needed and sends the matched
// phrase as the first user turn. The turn is queued until the session is
// up.
func (a *App) startConversation(result *wakeword.Result) {
	a.logger.Info("wake phrase detected", "phrase", result.Phrase, "confidence", result.Confidence)

	if err := a.Connect(); err != nil {
		a.logger.Error("failed to connect", "error", err)
		return
	}
	if err := a.manager.SendText(result.Phrase); err != nil {
		a.logger.Error("failed to send wake phrase", "error", err)
	}
}
