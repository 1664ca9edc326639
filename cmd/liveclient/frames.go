package main

import (
	"fmt"
	"io"

	"course-localization-service/internal/pcm"
)

// readFrames reads a 16-bit PCM WAV stream and splits it into frames of
// frameMs milliseconds, as float samples in [-1, 1]. Only the first channel
// is kept.
func readFrames(r io.Reader, frameMs int) ([][]float64, pcm.WAVHeader, error) {
	hdr, err := pcm.ReadWAVHeader(r)
	if err != nil {
		return nil, hdr, err
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(hdr.DataSize)))
	if err != nil {
		return nil, hdr, fmt.Errorf("read audio: %w", err)
	}
	samples, err := pcm.DecodeLinear16(data[:len(data)&^1])
	if err != nil {
		return nil, hdr, err
	}

	channels := int(hdr.Channels)
	if channels > 1 {
		mono := make([]int16, 0, len(samples)/channels)
		for i := 0; i+channels <= len(samples); i += channels {
			mono = append(mono, samples[i])
		}
		samples = mono
	}

	perFrame := int(hdr.SampleRate) * frameMs / 1000
	if perFrame <= 0 {
		return nil, hdr, fmt.Errorf("frame of %dms at %d Hz holds no samples", frameMs, hdr.SampleRate)
	}

	floats := pcm.Linear16ToFloat32(samples)
	var frames [][]float64
	for start := 0; start < len(floats); start += perFrame {
		end := min(start+perFrame, len(floats))
		frame := make([]float64, end-start)
		for i, s := range floats[start:end] {
			frame[i] = float64(s)
		}
		frames = append(frames, frame)
	}
	return frames, hdr, nil
}
