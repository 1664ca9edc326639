// Package mock provides a fake synthesizer returning recognizable bytes.
package mock

import (
	"context"
	"sync"
)

// Synthesizer returns "mp3:{lang}:{text}" for every request.
type Synthesizer struct {
	// FailFor maps a language to the error returned for it.
	FailFor map[string]error

	mu    sync.Mutex
	calls []string
}

// New creates a mock synthesizer.
func New() *Synthesizer {
	return &Synthesizer{FailFor: map[string]error{}}
}

// Render returns the bytes SynthesizeSpeech produces.
func Render(text, languageCode string) []byte {
	return []byte("mp3:" + languageCode + ":" + text)
}

// SynthesizeSpeech implements tts.Synthesizer.
func (s *Synthesizer) SynthesizeSpeech(ctx context.Context, text, languageCode string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, languageCode)
	err := s.FailFor[languageCode]
	s.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	return Render(text, languageCode), nil
}

// Languages returns the language of every call, in call order.
func (s *Synthesizer) Languages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
