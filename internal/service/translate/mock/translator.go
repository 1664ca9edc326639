// Package mock provides a deterministic translator for tests and local runs.
package mock

import (
	"context"
	"fmt"
	"sync"
)

// Translator prefixes text with the target language, e.g. "[id] hello".
type Translator struct {
	// FailFor maps a target language to the error returned for it.
	FailFor map[string]error

	mu    sync.Mutex
	calls []Call
}

// Call records one Translate invocation.
type Call struct {
	Text   string
	Target string
}

// New creates a mock translator.
func New() *Translator {
	return &Translator{FailFor: map[string]error{}}
}

// Render returns what Translate produces for text and target.
func Render(text, target string) string {
	return fmt.Sprintf("[%s] %s", target, text)
}

// Translate implements translate.Translator.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	t.mu.Lock()
	t.calls = append(t.calls, Call{Text: text, Target: targetLanguage})
	err := t.FailFor[targetLanguage]
	t.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", err
	}
	return Render(text, targetLanguage), nil
}

// Calls returns the recorded invocations.
func (t *Translator) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// CallsFor counts invocations for one target language.
func (t *Translator) CallsFor(target string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.Target == target {
			n++
		}
	}
	return n
}
