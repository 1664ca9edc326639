// Package mock provides mock STT adapters for testing without cloud credentials.
// The streaming adapter simulates progressive partial transcripts followed by
// exactly one final transcript per utterance, delivered in submission order.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"course-localization-service/internal/service/stt"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string // Progressive partial transcripts
	Final      string   // Final transcript text
	Confidence float64  // Confidence score for final
}

// DefaultUtterances provides sample lecture utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"Welcome", "Welcome to", "Welcome to the course"},
		Final:      "Welcome to the course",
		Confidence: 0.95,
	},
	{
		Partials:   []string{"Today", "Today we will", "Today we will learn"},
		Final:      "Today we will learn about photosynthesis",
		Confidence: 0.92,
	},
	{
		Partials:   []string{"Plants use", "Plants use sunlight"},
		Final:      "Plants use sunlight to make food",
		Confidence: 0.9,
	},
}

// Result is one scripted recognition result.
type Result struct {
	Text       string
	Final      bool
	Confidence float64
}

// Script decides which results a frame produces. frame is 1-based.
type Script func(frame int, audio []byte) []Result

// UtteranceScript cycles through utterances, emitting one partial per frame
// and the final on the frame after the last partial.
func UtteranceScript(utterances []SimulatedUtterance) Script {
	var (
		idx     int
		partial int
	)
	return func(frame int, audio []byte) []Result {
		if len(utterances) == 0 {
			return nil
		}
		u := utterances[idx%len(utterances)]
		if partial < len(u.Partials) {
			text := u.Partials[partial]
			partial++
			return []Result{{Text: text}}
		}
		idx++
		partial = 0
		return []Result{{Text: u.Final, Final: true, Confidence: u.Confidence}}
	}
}

type event struct {
	res Result
	end int64
	err error
}

// Adapter implements stt.Adapter with scripted responses.
type Adapter struct {
	script Script
	delay  time.Duration

	mu      sync.Mutex
	cb      stt.Callback
	frames  int
	sent    int64
	audio   [][]byte
	queue   chan event
	started bool
	closed  bool
	done    chan struct{}

	// SendErr, when set, is returned by SendAudio instead of recognizing the frame.
	SendErr error
}

// New creates a mock adapter that cycles through DefaultUtterances.
func New() *Adapter {
	return NewScripted(UtteranceScript(DefaultUtterances), 50*time.Millisecond)
}

// NewScripted creates a mock adapter driven by script, delivering each
// result after delay.
func NewScripted(script Script, delay time.Duration) *Adapter {
	return &Adapter{
		script: script,
		delay:  delay,
		queue:  make(chan event, 256),
		done:   make(chan struct{}),
	}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("mock adapter already started")
	}
	a.started = true
	a.cb = cb
	go a.deliver()
	return nil
}

// SendAudio records the frame and queues the results the script produces for
// it. Each result ends at the last byte of the frame that produced it.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || !a.started {
		return stt.ErrStreamEnded
	}
	if a.SendErr != nil {
		return a.SendErr
	}

	a.frames++
	a.sent += int64(len(audio))
	a.audio = append(a.audio, append([]byte(nil), audio...))
	for _, r := range a.script(a.frames, audio) {
		a.queue <- event{res: r, end: a.sent}
	}
	return nil
}

// Fail terminates the stream as the provider would, reporting err to the
// callback after any queued results.
func (a *Adapter) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || !a.started {
		return
	}
	a.queue <- event{err: err}
}

// Close ends the mock session. Queued results that were not yet delivered
// are discarded.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	close(a.done)
	return nil
}

// Frames returns the audio frames received so far.
func (a *Adapter) Frames() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]byte(nil), a.audio...)
}

// Closed reports whether Close was called.
func (a *Adapter) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Adapter) deliver() {
	for {
		select {
		case <-a.done:
			return
		case ev := <-a.queue:
			if a.delay > 0 {
				select {
				case <-time.After(a.delay):
				case <-a.done:
					return
				}
			}
			if ev.err != nil {
				a.cb.OnError(ev.err)
				return
			}
			if ev.res.Final {
				a.cb.OnFinal(ev.res.Text, ev.res.Confidence, ev.end)
			} else {
				a.cb.OnPartial(ev.res.Text, ev.end)
			}
		}
	}
}

// Provider implements stt.Provider, creating one scripted adapter per session.
type Provider struct {
	// NewScript builds the script for each new adapter. Defaults to
	// cycling DefaultUtterances.
	NewScript func() Script
	Delay     time.Duration

	mu       sync.Mutex
	adapters []*Adapter
}

// NewAdapter implements stt.Provider.
func (p *Provider) NewAdapter(languageCode string) (stt.Adapter, error) {
	script := UtteranceScript(DefaultUtterances)
	if p.NewScript != nil {
		script = p.NewScript()
	}
	a := NewScripted(script, p.Delay)

	p.mu.Lock()
	p.adapters = append(p.adapters, a)
	p.mu.Unlock()
	return a, nil
}

// Adapters returns every adapter created so far.
func (p *Provider) Adapters() []*Adapter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Adapter(nil), p.adapters...)
}
