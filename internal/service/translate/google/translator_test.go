package google

import (
	"testing"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   language.Tag
	}{
		{"configured source", "en", language.English},
		{"regional source", "en-US", language.AmericanEnglish},
		{"detect", "", language.Und},
		{"unparseable source", "not a language", language.Und},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options(tt.source)
			if opts.Format != translate.Text {
				t.Errorf("expected plain text format, got %q", opts.Format)
			}
			if opts.Source.String() != tt.want.String() {
				t.Errorf("expected source %s, got %s", tt.want, opts.Source)
			}
		})
	}
}

func TestTranslate_UnknownTarget(t *testing.T) {
	tr := &Translator{source: "en"}
	if _, err := tr.Translate(t.Context(), "hello", "???"); err == nil {
		t.Fatal("expected error for an unknown target language")
	}
}
