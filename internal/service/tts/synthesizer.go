// Package tts defines the Speech Synthesis Adapter that voices translated
// captions as dubbed audio.
package tts

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when synthesis succeeds without audio content.
var ErrEmptyAudio = errors.New("synthesis returned no audio")

// Synthesizer turns text into MP3 audio for a language.
type Synthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, languageCode string) ([]byte, error)
}
