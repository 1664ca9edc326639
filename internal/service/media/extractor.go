// Package media wraps the external transcoder used to pull the canonical
// speech-recognition audio out of an uploaded video.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoAudioStream is returned when the input container has no audio track.
var ErrNoAudioStream = errors.New("input has no audio stream")

// Canonical extraction format: mono, 16 kHz, 16-bit little-endian PCM.
const (
	SampleRateHz = 16000
	Channels     = 1
	Codec        = "pcm_s16le"
)

// Extractor converts a local video file into the canonical audio file.
type Extractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	// Binary is the ffmpeg executable; defaults to "ffmpeg" on PATH.
	Binary string
}

// NewFFmpeg returns an extractor using the given binary path.
func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{Binary: binary}
}

// Args returns the ffmpeg arguments for an extraction.
func (f *FFmpeg) Args(videoPath, audioPath string) []string {
	return []string{
		"-nostdin", "-y",
		"-i", videoPath,
		"-vn",
		"-acodec", Codec,
		"-ar", strconv.Itoa(SampleRateHz),
		"-ac", strconv.Itoa(Channels),
		audioPath,
	}
}

// ExtractAudio implements Extractor.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	cmd := exec.CommandContext(ctx, f.Binary, f.Args(videoPath, audioPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := stderr.String()
		if strings.Contains(stderrStr, "Output file does not contain any stream") ||
			strings.Contains(stderrStr, "does not contain any stream") {
			return ErrNoAudioStream
		}
		return fmt.Errorf("ffmpeg error: %w\nStderr: %s", err, tail(stderrStr, 2048))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
