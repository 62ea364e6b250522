package audioio

import "math"

// EncodePCM16 quantizes float samples to little-endian signed 16-bit PCM.
// Samples are clamped to [-1, 1] before scaling so out-of-range input
// saturates instead of wrapping around.
func EncodePCM16(samples []float32) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := QuantizeSample(s)
		data[i*2] = byte(v)
		data[i*2+1] = byte(uint16(v) >> 8)
	}
	return data
}

// QuantizeSample converts one float sample to int16 with clamping.
// NaN quantizes to silence.
func QuantizeSample(s float32) int16 {
	if s != s {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(math.Round(float64(s) * 32768))
	}
	return int16(math.Round(float64(s) * 32767))
}

// DecodePCM16 converts little-endian signed 16-bit PCM to float samples.
// A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		samples[i] = Int16ToFloat(v)
	}
	return samples
}

// Int16ToFloat converts one PCM16 sample to a float in [-1, 1].
func Int16ToFloat(v int16) float32 {
	if v < 0 {
		return float32(v) / 32768
	}
	return float32(v) / 32767
}

// Split cuts samples into consecutive chunks of at most size samples.
// The last chunk may be shorter. The returned slices share storage with
// samples.
func Split(samples []float32, size int) [][]float32 {
	if len(samples) == 0 {
		return nil
	}
	if size <= 0 || size >= len(samples) {
		return [][]float32{samples}
	}
	chunks := make([][]float32, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end > len(samples) {
			end = len(samples)
		}
		chunks = append(chunks, samples[start:end])
	}
	return chunks
}

// CalculateRMS returns the root mean square of the samples.
func CalculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
