// Package models defines the data structures exchanged with triggers,
// notification consumers and live session clients.
package models

import (
	"encoding/json"
	"strings"
)

// Event types published for localization results.
const (
	EventLanguageLocalized = "language.localized"
	EventLanguageFailed    = "language.failed"
	EventRunCompleted      = "run.completed"
)

// UploadEvent is the trigger payload for the batch pipeline. It has the
// shape of a storage object-finalize notification.
type UploadEvent struct {
	Bucket      string `json:"bucket,omitempty"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
}

// ParseUploadEvent decodes a trigger payload. Both the bare object and the
// {"data": {...}} envelope used by push subscriptions are accepted.
func ParseUploadEvent(payload []byte) (UploadEvent, error) {
	var wrapped struct {
		Data *UploadEvent `json:"data"`
		UploadEvent
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return UploadEvent{}, err
	}
	ev := wrapped.UploadEvent
	if wrapped.Data != nil {
		ev = *wrapped.Data
	}
	ev.Name = strings.TrimSpace(ev.Name)
	return ev, nil
}

// LocalizationEvent reports the outcome of one language of a batch run.
type LocalizationEvent struct {
	EventType   string `json:"eventType"`
	CourseID    string `json:"courseId"`
	Language    string `json:"language"`
	Timestamp   int64  `json:"timestamp"`
	CaptionPath string `json:"captionPath,omitempty"`
	AudioPath   string `json:"audioPath,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RunSummary reports the outcome of a whole batch run.
type RunSummary struct {
	EventType       string   `json:"eventType"`
	CourseID        string   `json:"courseId"`
	Timestamp       int64    `json:"timestamp"`
	Status          string   `json:"status"`
	EmptyTranscript bool     `json:"emptyTranscript,omitempty"`
	Succeeded       []string `json:"succeeded"`
	Failed          []string `json:"failed"`
	DurationMs      int64    `json:"durationMs"`
}
