// Package pcm converts between floating-point audio frames and 16-bit
// signed linear PCM as expected by speech recognition.
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxLinear16 is the scale factor applied to normalized float samples.
const MaxLinear16 = 32767

// Float32ToLinear16 scales samples in [-1.0, 1.0] by 32767, truncating
// toward zero. Samples outside the range are clamped first; NaN becomes 0.
func Float32ToLinear16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = floatToInt16(float64(s))
	}
	return out
}

// Float64ToLinear16 is Float32ToLinear16 for float64 input (JSON frames).
func Float64ToLinear16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = floatToInt16(s)
	}
	return out
}

func floatToInt16(s float64) int16 {
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int16(s * MaxLinear16)
}

// Linear16ToFloat32 maps PCM samples back to [-1.0, 1.0].
func Linear16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		f := float32(s) / MaxLinear16
		if f < -1 {
			f = -1
		}
		out[i] = f
	}
	return out
}

// EncodeLinear16 serializes samples as little-endian bytes.
func EncodeLinear16(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// DecodeLinear16 parses little-endian 16-bit samples. The byte slice must
// have even length.
func DecodeLinear16(b []byte) ([]int16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("odd PCM byte length %d", len(b))
	}
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out, nil
}

// FramesToBytes converts JSON float frames straight to the LINEAR16 payload
// sent to the recognizer.
func FramesToBytes(samples []float64) []byte {
	return EncodeLinear16(Float64ToLinear16(samples))
}
