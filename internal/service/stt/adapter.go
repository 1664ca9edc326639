// Package stt defines the interfaces for Speech-to-Text adapters: streaming
// recognition for live sessions and long-running recognition for uploads.
package stt

import (
	"context"
	"errors"
	"strings"
)

// ErrStreamEnded is reported through Callback.OnError when the provider
// closes the recognition stream.
var ErrStreamEnded = errors.New("recognition stream ended")

// Callback receives transcript results from the STT provider, in the order
// the provider produced them. audioEnd is the byte offset into the audio
// sent on the stream at which the result ends, or 0 when the provider does
// not report one.
type Callback interface {
	// OnPartial is called when an interim/partial transcript is received.
	OnPartial(text string, audioEnd int64)

	// OnFinal is called when a final transcript is received.
	OnFinal(text string, confidence float64, audioEnd int64)

	// OnError is called when the stream fails or ends. No further callbacks
	// follow it.
	OnError(err error)
}

// Adapter is one streaming recognition channel (Google, mock, ...).
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends LINEAR16 audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}

// Provider opens streaming adapters, one per live session.
type Provider interface {
	NewAdapter(languageCode string) (Adapter, error)
}

// AudioRef locates the canonical extracted audio. Providers pick whichever
// address they can read.
type AudioRef struct {
	URI          string // object store URI, e.g. gs://bucket/audio/c1_audio.wav
	LocalPath    string // local copy, valid for the duration of the call
	SampleRateHz int
}

// Segment is one recognized result: the best alternative of a result.
type Segment struct {
	Text       string
	Confidence float64
}

// Transcript is the aggregate output of a long-running recognition.
type Transcript struct {
	Segments []Segment
	Text     string
}

// Empty reports whether recognition produced no usable text.
func (t Transcript) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// NewTranscript joins segment texts in emission order with single spaces.
func NewTranscript(segments []Segment) Transcript {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return Transcript{
		Segments: segments,
		Text:     strings.Join(parts, " "),
	}
}

// Recognizer runs long-running recognition over a complete audio file and
// blocks until the provider operation completes.
type Recognizer interface {
	TranscribeLong(ctx context.Context, audio AudioRef, languageHint string) (Transcript, error)
}
