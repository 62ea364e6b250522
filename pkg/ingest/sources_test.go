package ingest

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/protocol"
	"github.com/teslashibe/go-aura/pkg/wakeword"
)

func TestTranscriptSourceDropsWhileStopped(t *testing.T) {
	src := newTranscriptSource(quietLogger())

	src.pushSegment(wakeword.Segment{Text: "ignored", Final: true})
	src.pushError(wakeword.ErrNoSpeech)
	assert.Len(t, src.Segments(), 0)
	assert.Len(t, src.Errors(), 0)

	require.NoError(t, src.Start(context.Background()))
	src.pushSegment(wakeword.Segment{Text: "kept", Final: true})
	require.Len(t, src.Segments(), 1)
	assert.Equal(t, "kept", (<-src.Segments()).Text)

	require.NoError(t, src.Stop())
	assert.False(t, src.Running())
}

func TestMicSourceLifecycle(t *testing.T) {
	mic := newMicSource(audioio.DefaultConfig(), quietLogger())

	// Before Start the stream is closed.
	_, err := mic.Read(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	mic.push(audioio.Chunk{Samples: []float32{1}, SampleRate: 16000, Channels: 1})
	assert.Equal(t, int64(0), mic.Stats().ChunksRead)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, mic.Start(ctx))
	assert.True(t, mic.Stats().Running)

	mic.push(audioio.Chunk{Samples: []float32{1, 2}, SampleRate: 16000, Channels: 1})
	chunk, err := mic.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, chunk.Samples, 2)

	stats := mic.Stats()
	assert.Equal(t, int64(1), stats.ChunksRead)
	assert.Equal(t, int64(2), stats.SamplesRead)
	assert.Equal(t, "ingest", stats.Backend)

	// Canceling the start context stops the source.
	cancel()
	require.Eventually(t, func() bool { return !mic.Stats().Running }, time.Second, 5*time.Millisecond)
	_, ok := <-mic.Stream()
	assert.False(t, ok)

	require.NoError(t, mic.Close())
	assert.ErrorIs(t, mic.Start(context.Background()), audioio.ErrSourceClosed)
}

func TestMicSourceOverrun(t *testing.T) {
	mic := newMicSource(audioio.DefaultConfig(), quietLogger())
	require.NoError(t, mic.Start(context.Background()))
	defer mic.Stop()

	for i := 0; i < 40; i++ {
		mic.push(audioio.Chunk{Samples: []float32{0}, SampleRate: 16000, Channels: 1})
	}
	stats := mic.Stats()
	assert.Equal(t, int64(32), stats.ChunksRead)
	assert.Equal(t, int64(8), stats.Overruns)
}

func TestClientDecodeFloat32(t *testing.T) {
	want := []float32{0.5, -0.25, 1}
	raw := make([]byte, 4*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	raw = append(raw, 0xFF) // trailing partial sample

	c := &Client{ID: "c"}
	chunk, err := c.decode(&protocol.MicData{
		Format:     protocol.FormatF32,
		SampleRate: 48000,
		Channels:   2,
		Data:       base64.StdEncoding.EncodeToString(raw),
	})
	require.NoError(t, err)
	assert.Equal(t, want, chunk.Samples)
	assert.Equal(t, 48000, chunk.SampleRate)
	assert.Equal(t, 2, chunk.Channels)
}

func TestClientDecodeOpus(t *testing.T) {
	const rate = 48000
	const frame = 960 // 20ms

	enc, err := opus.NewEncoder(rate, 1, opus.AppVoIP)
	require.NoError(t, err)

	pcm := make([]float32, frame)
	for i := range pcm {
		pcm[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	packet := make([]byte, 4000)
	n, err := enc.EncodeFloat32(pcm, packet)
	require.NoError(t, err)

	c := &Client{ID: "c"}
	mic := &protocol.MicData{
		Format:     protocol.FormatOpus,
		SampleRate: rate,
		Channels:   1,
		Data:       base64.StdEncoding.EncodeToString(packet[:n]),
	}
	chunk, err := c.decode(mic)
	require.NoError(t, err)
	assert.Len(t, chunk.Samples, frame)
	assert.Equal(t, rate, chunk.SampleRate)

	// The decoder is reused across packets of the same stream.
	dec := c.decoder
	_, err = c.decode(mic)
	require.NoError(t, err)
	assert.Same(t, dec, c.decoder)
}

func TestClientDecodeRejectsBadInput(t *testing.T) {
	c := &Client{ID: "c"}

	_, err := c.decode(&protocol.MicData{Format: protocol.FormatPCM16, SampleRate: 0})
	assert.Error(t, err)

	_, err = c.decode(&protocol.MicData{Format: protocol.FormatPCM16, SampleRate: 16000, Data: "%%%"})
	assert.Error(t, err)

	_, err = c.decode(&protocol.MicData{Format: "mp3", SampleRate: 16000})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
