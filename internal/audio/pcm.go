// Package audio captures microphone audio as fixed-size float buffers and
// converts them to the 16-bit PCM the control socket carries.
package audio

import "encoding/binary"

const (
	SampleRate = 16000
	Channels   = 1
	// BufferSize is the number of samples handed to the processor per tick.
	BufferSize = 512
)

// FloatToS16PCM converts samples in [-1, 1] to signed 16-bit little-endian
// PCM. Out-of-range samples are clamped.
func FloatToS16PCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7fff)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// S16ToFloat decodes interleaved s16le PCM into float64 samples in [-1, 1).
func S16ToFloat(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return out
}
