package language

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"en-US", "en"},
		{"ID", "id"},
		{" hi ", "hi"},
		{"pt-BR", "pt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewSet_OrderAndDedup(t *testing.T) {
	s, err := NewSet("en", []string{"en", "id", "hi", "ID", "en-US"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"en", "id", "hi"}
	if !reflect.DeepEqual(s.Codes(), want) {
		t.Errorf("expected codes %v, got %v", want, s.Codes())
	}
	if !reflect.DeepEqual(s.Targets(), []string{"id", "hi"}) {
		t.Errorf("expected targets [id hi], got %v", s.Targets())
	}
	if s.Source() != "en" {
		t.Errorf("expected source en, got %s", s.Source())
	}
}

func TestNewSet_SourcePrependedWhenMissing(t *testing.T) {
	s, err := NewSet("en-US", []string{"id", "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s.Codes(), []string{"en", "id", "hi"}) {
		t.Errorf("expected source to be prepended, got %v", s.Codes())
	}
}

func TestNewSet_Errors(t *testing.T) {
	if _, err := NewSet("", []string{"en"}); err == nil {
		t.Error("expected error for missing source language")
	}
	if _, err := NewSet("en", []string{" ", ""}); !errors.Is(err, ErrEmptySet) {
		t.Errorf("expected ErrEmptySet, got %v", err)
	}
}

func TestSet_Membership(t *testing.T) {
	s := MustSet("en", "en", "id", "hi")

	if !s.Supports("id") || !s.Supports("hi-IN") {
		t.Error("expected id and hi-IN to be supported")
	}
	if s.Supports("fr") {
		t.Error("expected fr to be unsupported")
	}
	if !s.IsSource("en-GB") {
		t.Error("expected en-GB to be the source language")
	}
	if s.IsSource("id") {
		t.Error("expected id not to be the source language")
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 languages, got %d", s.Len())
	}
}

func TestSet_CodesIsACopy(t *testing.T) {
	s := MustSet("en", "en", "id")
	codes := s.Codes()
	codes[0] = "xx"
	if s.Codes()[0] != "en" {
		t.Error("mutating Codes() result must not affect the set")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("hi"); got != "Hindi" {
		t.Errorf("expected Hindi, got %s", got)
	}
	if got := DisplayName("id"); got != "Indonesian" {
		t.Errorf("expected Indonesian, got %s", got)
	}
}

func TestDetector_EmptyText(t *testing.T) {
	d := NewDetector()
	if _, ok := d.Detect("   "); ok {
		t.Error("expected no detection for blank text")
	}
}

func TestDetector_English(t *testing.T) {
	d := NewDetector()
	code, ok := d.Detect("Welcome to the course. Today we will learn how plants turn sunlight into energy.")
	if !ok {
		t.Fatal("expected a detection result")
	}
	if code != "en" {
		t.Errorf("expected en, got %s", code)
	}
}
