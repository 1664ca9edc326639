// Package translate defines the Translation Adapter used by the batch
// pipeline and live sessions.
package translate

import (
	"context"
	"errors"
)

// ErrEmptyResult is returned when the provider answers without any text.
var ErrEmptyResult = errors.New("translation returned no text")

// Translator translates one text into a target language. Implementations
// must be safe for concurrent use.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Func adapts an ordinary function to Translator.
type Func func(ctx context.Context, text, targetLanguage string) (string, error)

// Translate implements Translator.
func (f Func) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	return f(ctx, text, targetLanguage)
}
