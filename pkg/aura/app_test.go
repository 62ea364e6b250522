package aura

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-aura/internal/clock"
	"github.com/teslashibe/go-aura/internal/config"
	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/connection"
	"github.com/teslashibe/go-aura/pkg/dashboard"
	"github.com/teslashibe/go-aura/pkg/protocol"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type outbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type harness struct {
	app    *App
	dialer *connection.MockDialer
	speech *wakeword.MockSource
	clock  *clock.Fake
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Service.APIKey = "test-key"
	cfg.Dashboard.Addr = "127.0.0.1:0"
	cfg.Ingest.Enabled = false
	cfg.Heartbeat.Interval = 0
	return cfg
}

func start(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		dialer: connection.NewMockDialer(),
		speech: wakeword.NewMockSource(),
		clock:  clock.NewFake(t0),
	}
	opts = append([]Option{
		WithDialer(h.dialer),
		WithTranscripts(h.speech),
		WithClock(h.clock),
		WithLogger(quietLogger()),
	}, opts...)

	app, err := New(cfg, opts...)
	require.NoError(t, err)
	h.app = app

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		app.Shutdown()
	})

	require.Eventually(t, func() bool {
		return app.Detector().State() == wakeword.StateListening
	}, 2*time.Second, 5*time.Millisecond)
	return h
}

func (h *harness) connected(t *testing.T) *connection.MockConn {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.app.Manager().Status().State == connection.StateConnected
	}, 2*time.Second, 5*time.Millisecond)
	conn := h.dialer.LastConn()
	require.NotNil(t, conn)
	return conn
}

func written(t *testing.T, conn *connection.MockConn) []outbound {
	t.Helper()
	var out []outbound
	for _, raw := range conn.Written() {
		var msg outbound
		require.NoError(t, json.Unmarshal(raw, &msg))
		out = append(out, msg)
	}
	return out
}

func getJSON(t *testing.T, h *harness, path string, v any) {
	t.Helper()
	resp, err := h.app.Dashboard().App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestNewRequiresTranscripts(t *testing.T) {
	_, err := New(testConfig(), WithDialer(connection.NewMockDialer()), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, ErrNoTranscripts)
}

func TestAudioBackendSelection(t *testing.T) {
	build := func(t *testing.T, cfg *config.Config) (*App, error) {
		t.Helper()
		app, err := New(cfg,
			WithDialer(connection.NewMockDialer()),
			WithTranscripts(wakeword.NewMockSource()),
			WithLogger(quietLogger()),
		)
		if err == nil {
			t.Cleanup(app.Shutdown)
		}
		return app, err
	}

	t.Run("auto without ingest captures nothing", func(t *testing.T) {
		app, err := build(t, testConfig())
		require.NoError(t, err)
		assert.Nil(t, app.audio)
	})

	t.Run("auto with ingest uses the capture clients", func(t *testing.T) {
		cfg := testConfig()
		cfg.Ingest.Enabled = true
		app, err := build(t, cfg)
		require.NoError(t, err)
		assert.Equal(t, audioio.Source(app.Ingest().Microphone()), app.audio)
	})

	t.Run("mock", func(t *testing.T) {
		cfg := testConfig()
		cfg.Audio.Backend = audioio.BackendMock
		app, err := build(t, cfg)
		require.NoError(t, err)
		assert.IsType(t, &audioio.MockSource{}, app.audio)
	})

	t.Run("ingest backend needs the ingest server", func(t *testing.T) {
		cfg := testConfig()
		cfg.Audio.Backend = audioio.BackendIngest
		_, err := build(t, cfg)
		assert.ErrorIs(t, err, audioio.ErrBackendUnavailable)
	})
}

func TestWakePhraseStartsConversation(t *testing.T) {
	h := start(t, testConfig())
	assert.Equal(t, connection.StateDisconnected, h.app.Manager().Status().State)

	h.speech.Say("mirror mirror on the wall")

	conn := h.connected(t)
	require.Eventually(t, func() bool { return len(conn.Written()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []outbound{{Type: "user_input", Text: "mirror mirror on the wall"}}, written(t, conn))

	var ww dashboard.WakewordResponse
	getJSON(t, h, "/api/wakeword", &ww)
	require.NotNil(t, ww.LastDetection)
	assert.Equal(t, "mirror mirror on the wall", ww.LastDetection.Phrase)
}

func TestDetectionWhileConnectedOnlySends(t *testing.T) {
	h := start(t, testConfig())
	require.NoError(t, h.app.Connect())
	conn := h.connected(t)

	require.NoError(t, h.app.Connect())
	h.speech.Say("mirror mirror on the wall")

	require.Eventually(t, func() bool { return len(conn.Written()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.dialer.Attempts())
}

func TestScoresAreFusedAcrossChannels(t *testing.T) {
	h := start(t, testConfig())
	require.NoError(t, h.app.Connect())
	conn := h.connected(t)

	conn.Push(`{"type":"emotion","scores":[{"name":"joy","score":0.8},{"name":"sadness","score":0.2}]}`)
	require.Eventually(t, func() bool { return len(h.app.Processor().History()) == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Push(`{"type":"vocal_burst","scores":[{"name":"anger","score":1.0}]}`)
	require.Eventually(t, func() bool { return len(h.app.Processor().History()) == 2 }, 2*time.Second, 5*time.Millisecond)

	latest, ok := h.app.Processor().Latest()
	require.True(t, ok)
	assert.Equal(t, "joy", latest.Dominant)
	_, hasAnger := latest.Score("anger")
	assert.True(t, hasAnger, "burst channel contributes to the fused frame")

	var aura protocol.AuraData
	getJSON(t, h, "/api/aura", &aura)
	assert.Equal(t, "joy", aura.Emotion)
}

func TestStaleChannelsLeaveFusion(t *testing.T) {
	h := start(t, testConfig())
	require.NoError(t, h.app.Connect())
	conn := h.connected(t)

	conn.Push(`{"type":"vocal_burst","scores":[{"name":"anger","score":1.0}]}`)
	require.Eventually(t, func() bool { return len(h.app.Processor().History()) == 1 }, 2*time.Second, 5*time.Millisecond)

	h.clock.Advance(DefaultFusionWindow + time.Second)
	h.app.Processor().ClearHistory()

	conn.Push(`{"type":"emotion","scores":[{"name":"joy","score":1.0}]}`)
	require.Eventually(t, func() bool { return len(h.app.Processor().History()) == 1 }, 2*time.Second, 5*time.Millisecond)

	latest, _ := h.app.Processor().Latest()
	_, hasAnger := latest.Score("anger")
	assert.False(t, hasAnger)
}

func TestConversationAndStatusReachDashboard(t *testing.T) {
	h := start(t, testConfig())
	require.NoError(t, h.app.Connect())
	conn := h.connected(t)

	conn.Push(`{"type":"session_begin","session_id":"sess-1"}`)
	conn.Push(`{"type":"assistant_message","message":{"role":"assistant","content":"Hello there"}}`)
	conn.Push(`{"type":"transcript","text":"partial","final":false}`)

	var entries []dashboard.ConversationEntry
	require.Eventually(t, func() bool {
		getJSON(t, h, "/api/conversation", &entries)
		return len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "assistant", entries[0].Role)
	assert.Equal(t, "Hello there", entries[0].Text)

	var status struct {
		Status protocol.StatusData `json:"status"`
	}
	getJSON(t, h, "/api/status", &status)
	assert.Equal(t, "connected", status.Status.State)
	assert.Equal(t, "sess-1", status.Status.SessionID)
}

func TestAudioSourceStreamsOnceConnected(t *testing.T) {
	cfg := testConfig()
	cfg.Audio.BufferDuration = 20 * time.Millisecond
	src := audioio.NewMockSource(cfg.Audio, quietLogger(), audioio.WithSineWave(440, 0.5))

	h := start(t, cfg, WithAudioSource(src))
	require.NoError(t, h.app.Connect())
	conn := h.connected(t)

	require.Eventually(t, func() bool {
		for _, msg := range written(t, conn) {
			if msg.Type == "audio_input" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, h.app.Manager().Stats().AudioBytesSent)
}

func TestIngestRoutesMounted(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.Enabled = true

	app, err := New(cfg, WithDialer(connection.NewMockDialer()), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NotNil(t, app.Ingest())

	resp, err := app.Dashboard().App().Test(httptest.NewRequest("GET", "/api/clients", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Dashboard().App().Test(httptest.NewRequest("GET", "/ws/capture", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}
