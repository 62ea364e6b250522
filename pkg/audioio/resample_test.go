package audioio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResample_SameRate(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	require.Equal(t, samples, Resample(samples, 16000, 16000))
}

func TestResample_Downsample(t *testing.T) {
	// 48kHz -> 16kHz (3:1 ratio)
	samples := make([]float32, 960) // 20ms at 48kHz
	for i := range samples {
		samples[i] = float32(i) / 960
	}

	result := Resample(samples, 48000, 16000)
	require.Len(t, result, 320)
	require.InDelta(t, samples[3], result[1], 1e-6)
}

func TestResample_Upsample(t *testing.T) {
	samples := []float32{0, 1}
	result := Resample(samples, 8000, 16000)

	require.Len(t, result, 4)
	require.InDelta(t, 0.5, result[1], 1e-6)
}

func TestResample_Empty(t *testing.T) {
	require.Empty(t, Resample(nil, 16000, 48000))
	require.Empty(t, Resample([]float32{}, 16000, 48000))
}

func TestDownmix(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	require.Equal(t, []float32{0.5, 0.5, 0}, Downmix(stereo, 2))

	mono := []float32{0.3}
	require.Equal(t, mono, Downmix(mono, 1))
}

func TestConform(t *testing.T) {
	chunk := Chunk{
		Samples:    []float32{0.2, 0.4, 0.2, 0.4, 0.2, 0.4, 0.2, 0.4},
		SampleRate: 32000,
		Channels:   2,
	}
	out := Conform(chunk, 16000)
	require.Len(t, out, 2)
	require.InDelta(t, 0.3, out[0], 1e-6)
}

func TestEncodePCM16_Clamps(t *testing.T) {
	data := EncodePCM16([]float32{0, 1, -1, 2, -3})
	require.Len(t, data, 10)

	decoded := DecodePCM16(data)
	require.Equal(t, []float32{0, 1, -1, 1, -1}, decoded)

	// 2.0 must saturate at 0x7FFF rather than wrap negative
	require.Equal(t, byte(0xFF), data[6])
	require.Equal(t, byte(0x7F), data[7])
}

func TestQuantizeSample(t *testing.T) {
	require.Equal(t, int16(32767), QuantizeSample(1))
	require.Equal(t, int16(-32768), QuantizeSample(-1))
	require.Equal(t, int16(32767), QuantizeSample(1.5))
	require.Equal(t, int16(-32768), QuantizeSample(-7))
	require.Equal(t, int16(16384), QuantizeSample(0.5))

	nan := float32(0)
	nan = nan / nan
	require.Zero(t, QuantizeSample(nan))
}

func TestDecodePCM16_LittleEndian(t *testing.T) {
	samples := DecodePCM16([]byte{0xFF, 0x7F, 0x00, 0x80, 0x01})
	require.Len(t, samples, 2)
	require.Equal(t, float32(1), samples[0])
	require.Equal(t, float32(-1), samples[1])
}

func TestSplit(t *testing.T) {
	samples := []float32{1, 2, 3, 4, 5}

	chunks := Split(samples, 2)
	require.Equal(t, [][]float32{{1, 2}, {3, 4}, {5}}, chunks)

	require.Equal(t, [][]float32{samples}, Split(samples, 0))
	require.Equal(t, [][]float32{samples}, Split(samples, 10))
	require.Nil(t, Split(nil, 4))
}

func TestCalculateRMS(t *testing.T) {
	require.Zero(t, CalculateRMS(nil))
	require.InDelta(t, 0.5, CalculateRMS([]float32{0.5, -0.5}), 1e-9)
}
