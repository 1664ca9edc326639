// Package language holds the ordered set of supported caption languages and
// helpers to normalize language codes.
package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrEmptySet is returned when no usable language codes are configured.
var ErrEmptySet = errors.New("no supported languages configured")

// Normalize converts a BCP-47 tag or bare code to its lower-case base
// language (e.g. "en-US" -> "en", "ID" -> "id"). Unparseable input is
// returned trimmed and lower-cased.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}

// Tag returns the x/text tag for a code, or language.Und if it cannot be parsed.
func Tag(code string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return language.Und
	}
	return tag
}

// DisplayName returns the English name of a language code ("hi" -> "Hindi").
func DisplayName(code string) string {
	tag := Tag(code)
	if tag == language.Und {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return display.English.Tags().Name(tag)
}

// Set is an ordered, de-duplicated set of language codes with one
// distinguished source language. It is immutable after construction.
type Set struct {
	source string
	codes  []string
	index  map[string]struct{}
}

// NewSet builds a Set from the configured codes. The source language is
// always a member; if it is missing from codes it is prepended.
func NewSet(source string, codes []string) (*Set, error) {
	source = Normalize(source)
	if source == "" {
		return nil, fmt.Errorf("source language is required")
	}

	s := &Set{
		source: source,
		index:  make(map[string]struct{}, len(codes)+1),
	}
	for _, c := range codes {
		n := Normalize(c)
		if n == "" {
			continue
		}
		if _, ok := s.index[n]; ok {
			continue
		}
		s.index[n] = struct{}{}
		s.codes = append(s.codes, n)
	}
	if len(s.codes) == 0 {
		return nil, ErrEmptySet
	}
	if _, ok := s.index[source]; !ok {
		s.index[source] = struct{}{}
		s.codes = append([]string{source}, s.codes...)
	}
	return s, nil
}

// MustSet is NewSet for static configuration; it panics on error.
func MustSet(source string, codes ...string) *Set {
	s, err := NewSet(source, codes)
	if err != nil {
		panic(err)
	}
	return s
}

// Source returns the canonical source language.
func (s *Set) Source() string { return s.source }

// Codes returns the supported codes in configured order.
func (s *Set) Codes() []string {
	return append([]string(nil), s.codes...)
}

// Targets returns every supported code except the source language.
func (s *Set) Targets() []string {
	out := make([]string, 0, len(s.codes))
	for _, c := range s.codes {
		if c != s.source {
			out = append(out, c)
		}
	}
	return out
}

// Supports reports whether code (after normalization) is in the set.
func (s *Set) Supports(code string) bool {
	_, ok := s.index[Normalize(code)]
	return ok
}

// IsSource reports whether code is the source language.
func (s *Set) IsSource(code string) bool {
	return Normalize(code) == s.source
}

// Len returns the number of supported languages.
func (s *Set) Len() int { return len(s.codes) }
