package ingest

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-aura/pkg/audioio"
	"github.com/teslashibe/go-aura/pkg/protocol"
)

// maxOpusFrame is the largest Opus frame in samples per channel (120ms at
// 48kHz).
const maxOpusFrame = 5760

// Client represents a connected capture client
type Client struct {
	ID        string
	Name      string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex

	// Opus state is per stream and survives across packets
	decoder     *opus.Decoder
	decoderRate int
	decoderChan int
}

// Send sends a message to the client
func (c *Client) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.LastSeen = now
	c.mu.Unlock()
}

// decode converts a mic payload into an audio chunk.
func (c *Client) decode(mic *protocol.MicData) (audioio.Chunk, error) {
	if mic.SampleRate <= 0 {
		return audioio.Chunk{}, fmt.Errorf("ingest: invalid sample rate %d", mic.SampleRate)
	}
	channels := mic.Channels
	if channels <= 0 {
		channels = 1
	}

	raw, err := mic.DecodeMicData()
	if err != nil {
		return audioio.Chunk{}, fmt.Errorf("ingest: decode mic data: %w", err)
	}

	var samples []float32
	switch mic.Format {
	case protocol.FormatPCM16, "":
		samples = audioio.DecodePCM16(raw)
	case protocol.FormatF32:
		samples = decodeFloat32(raw)
	case protocol.FormatOpus:
		samples, err = c.decodeOpus(raw, mic.SampleRate, channels)
		if err != nil {
			return audioio.Chunk{}, err
		}
	default:
		return audioio.Chunk{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mic.Format)
	}

	return audioio.Chunk{Samples: samples, SampleRate: mic.SampleRate, Channels: channels}, nil
}

func (c *Client) decodeOpus(packet []byte, sampleRate, channels int) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.decoder == nil || c.decoderRate != sampleRate || c.decoderChan != channels {
		dec, err := opus.NewDecoder(sampleRate, channels)
		if err != nil {
			return nil, fmt.Errorf("ingest: opus decoder: %w", err)
		}
		c.decoder, c.decoderRate, c.decoderChan = dec, sampleRate, channels
	}

	pcm := make([]float32, maxOpusFrame*channels)
	n, err := c.decoder.DecodeFloat32(packet, pcm)
	if err != nil {
		return nil, fmt.Errorf("ingest: opus decode: %w", err)
	}
	return pcm[:n*channels], nil
}

// decodeFloat32 converts little-endian float32 bytes to samples. A
// trailing partial sample is ignored.
func decodeFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}
