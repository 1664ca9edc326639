package language

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// detectable lists the languages the detector distinguishes between. Keeping
// the list short keeps the lazily loaded models small.
var detectable = []lingua.Language{
	lingua.English,
	lingua.Indonesian,
	lingua.Hindi,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Arabic,
}

// Detector identifies the language of transcript text.
type Detector struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

// NewDetector returns a detector; models are loaded on first use.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the ISO 639-1 code of the most likely language of text.
// ok is false when the text is empty or the language cannot be determined.
func (d *Detector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectable...).
			Build()
	})

	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
