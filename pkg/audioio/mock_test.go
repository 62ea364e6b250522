package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockSource_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()

	require.NoError(t, src.Start(ctx))
	// Starting again is a no-op
	require.NoError(t, src.Start(ctx))

	require.NoError(t, src.Stop())
	// Stopping again is a no-op
	require.NoError(t, src.Stop())
}

func TestMockSource_Read(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, src.Start(ctx))

	chunk, err := src.Read(ctx)
	require.NoError(t, err)
	require.Len(t, chunk.Samples, cfg.BufferSamples())
	require.Equal(t, cfg.SampleRate, chunk.SampleRate)
	require.Equal(t, cfg.Channels, chunk.Channels)
}

func TestMockSource_SineWave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, src.Start(ctx))

	chunk, err := src.Read(ctx)
	require.NoError(t, err)

	var peak float32
	for _, s := range chunk.Samples {
		if s > peak {
			peak = s
		}
	}
	require.Greater(t, peak, float32(0))
	require.LessOrEqual(t, peak, float32(0.5))
}

func TestMockSource_ReadAfterStop(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil)

	require.NoError(t, src.Start(context.Background()))
	require.NoError(t, src.Stop())

	_, err := src.Read(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestMockSource_Close(t *testing.T) {
	src := NewMockSource(DefaultConfig(), nil)

	ctx := context.Background()
	require.NoError(t, src.Start(ctx))
	require.NoError(t, src.Close())

	require.ErrorIs(t, src.Start(ctx), ErrSourceClosed)
	require.NoError(t, src.Close())
}

func TestMockSource_StartError(t *testing.T) {
	denied := errors.New("permission denied")
	src := NewMockSource(DefaultConfig(), nil, WithStartError(denied))

	require.ErrorIs(t, src.Start(context.Background()), denied)
	require.False(t, src.Stats().Running)
}

func TestMockSource_Stats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 5 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, src.Start(ctx))

	for i := 0; i < 3; i++ {
		_, err := src.Read(ctx)
		require.NoError(t, err)
	}

	stats := src.Stats()
	require.GreaterOrEqual(t, stats.ChunksRead, int64(3))
	require.Equal(t, "mock", stats.Backend)
	require.True(t, stats.Running)
}

func TestChunk_Duration(t *testing.T) {
	chunk := Chunk{
		Samples:    make([]float32, 320), // 20ms at 16kHz mono
		SampleRate: 16000,
		Channels:   1,
	}
	require.InDelta(t, 0.02, chunk.Duration(), 1e-9)

	require.Zero(t, (&Chunk{}).Duration())
}

func TestDeviceError(t *testing.T) {
	cause := errors.New("device lost")
	err := error(&DeviceError{Device: "mic", Cause: cause})

	require.ErrorIs(t, err, cause)
	require.True(t, IsDeviceError(err))
	require.False(t, IsDeviceError(cause))
	require.Contains(t, err.Error(), "mic")
}
