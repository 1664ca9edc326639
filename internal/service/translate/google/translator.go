// Package google translates text with the Cloud Translation v2 API.
package google

import (
	"context"
	"fmt"

	"cloud.google.com/go/translate"
	"github.com/rs/zerolog/log"
	xlanguage "golang.org/x/text/language"

	"course-localization-service/internal/language"
	translator "course-localization-service/internal/service/translate"
)

// Translator implements translate.Translator.
type Translator struct {
	client *translate.Client
	source string
}

// New creates a translation client. source is the language of the input
// text; an empty source lets the API detect it.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, source string) (*Translator, error) {
	c, err := translate.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Translator{client: c, source: source}, nil
}

// options asks for plain text so captions come back without HTML escaping.
func options(source string) *translate.Options {
	opts := &translate.Options{Format: translate.Text}
	if tag := language.Tag(source); tag != xlanguage.Und {
		opts.Source = tag
	}
	return opts
}

// Translate implements translate.Translator.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	target := language.Tag(targetLanguage)
	if target == xlanguage.Und {
		return "", fmt.Errorf("translate: unknown target language %q", targetLanguage)
	}

	resp, err := t.client.Translate(ctx, []string{text}, target, options(t.source))
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", targetLanguage, err)
	}
	if len(resp) == 0 {
		return "", translator.ErrEmptyResult
	}

	log.Debug().
		Str("target", targetLanguage).
		Str("detectedSource", resp[0].Source.String()).
		Int("chars", len(text)).
		Msg("Translated text")
	return resp[0].Text, nil
}

// Close releases the underlying client.
func (t *Translator) Close() error {
	return t.client.Close()
}
