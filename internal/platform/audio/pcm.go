// Package audio converts between float samples and little-endian PCM16.
package audio

import (
	"encoding/binary"
	"time"
)

// FloatToPCM16 scales samples in [-1, 1] to 16-bit, clamping out-of-range values.
func FloatToPCM16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, f := range in {
		v := f * 32768
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

func PCM16ToFloat(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / 32768
	}
	return out
}

// EncodeLE packs samples as little-endian bytes.
func EncodeLE(in []int16) []byte {
	out := make([]byte, 2*len(in))
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// DecodeLE unpacks little-endian bytes. A trailing odd byte is dropped.
func DecodeLE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// Duration is the playback length of n mono samples at rate.
func Duration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
