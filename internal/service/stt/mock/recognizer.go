package mock

import (
	"context"
	"strings"
	"sync"

	"course-localization-service/internal/service/stt"
)

// Recognizer implements stt.Recognizer with a fixed transcript.
type Recognizer struct {
	// Text is split into one segment per sentence ending in '.'.
	Text string
	Err  error

	mu    sync.Mutex
	calls []stt.AudioRef
}

// NewRecognizer returns a recognizer that always yields text.
func NewRecognizer(text string) *Recognizer {
	return &Recognizer{Text: text}
}

// TranscribeLong implements stt.Recognizer.
func (r *Recognizer) TranscribeLong(ctx context.Context, audio stt.AudioRef, languageHint string) (stt.Transcript, error) {
	r.mu.Lock()
	r.calls = append(r.calls, audio)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}
	if r.Err != nil {
		return stt.Transcript{}, r.Err
	}

	var segments []stt.Segment
	for _, s := range strings.SplitAfter(r.Text, ".") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		segments = append(segments, stt.Segment{Text: s, Confidence: 0.9})
	}
	return stt.NewTranscript(segments), nil
}

// Calls returns the audio references passed to TranscribeLong.
func (r *Recognizer) Calls() []stt.AudioRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stt.AudioRef(nil), r.calls...)
}
