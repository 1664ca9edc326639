package stt

import "testing"

func TestNewTranscript_JoinsInOrder(t *testing.T) {
	tr := NewTranscript([]Segment{
		{Text: "hello", Confidence: 0.9},
		{Text: "world", Confidence: 0.8},
	})
	if tr.Text != "hello world" {
		t.Errorf("expected 'hello world', got %q", tr.Text)
	}
	if len(tr.Segments) != 2 {
		t.Errorf("expected 2 segments, got %d", len(tr.Segments))
	}
	if tr.Empty() {
		t.Error("expected non-empty transcript")
	}
}

func TestTranscript_Empty(t *testing.T) {
	if !NewTranscript(nil).Empty() {
		t.Error("expected transcript with no segments to be empty")
	}
	if !NewTranscript([]Segment{{Text: " "}}).Empty() {
		t.Error("expected whitespace-only transcript to be empty")
	}
}
