// Package artifact defines the deterministic addressing scheme for every
// object the pipeline writes. All paths are pure functions of the course id
// and language code, so reprocessing overwrites instead of accumulating.
package artifact

import (
	"path"
	"strings"

	"course-localization-service/internal/language"
)

const (
	AudioFolder   = "audio"
	CaptionFolder = "caption"

	ContentTypeCaption = "text/plain; charset=utf-8"
	ContentTypeWAV     = "audio/wav"
	ContentTypeMP3     = "audio/mpeg"
)

// videoExtensions are the upload extensions that trigger localization.
var videoExtensions = []string{".mp4"}

// Kind identifies an artifact type.
type Kind string

const (
	KindAudio       Kind = "audio"
	KindCaption     Kind = "caption"
	KindDubbedAudio Kind = "dubbed_audio"
)

// AudioPath is the canonical extracted audio: audio/{courseId}_audio.wav.
func AudioPath(courseID string) string {
	return AudioFolder + "/" + courseID + "_audio.wav"
}

// CaptionPath is the per-language caption: caption/{courseId}_{lang}.txt.
func CaptionPath(courseID, lang string) string {
	return CaptionFolder + "/" + courseID + "_" + lang + ".txt"
}

// DubbedAudioPath is the per-language dubbed audio: audio/{courseId}_{lang}.mp3.
func DubbedAudioPath(courseID, lang string) string {
	return AudioFolder + "/" + courseID + "_" + lang + ".mp3"
}

// SourceVideoPath is where a course's video lives when a live session asks
// the server to localize it on demand.
func SourceVideoPath(courseID string) string {
	return courseID + "_" + courseID + ".mp4"
}

// IsVideoObject reports whether an uploaded object path has a recognized
// video extension.
func IsVideoObject(objectPath string) bool {
	if strings.TrimSpace(objectPath) == "" || strings.HasSuffix(objectPath, "/") {
		return false
	}
	ext := strings.ToLower(path.Ext(objectPath))
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// CourseIDFromObject derives the asset id from an object path: the first
// "_"-delimited segment of the base name. It returns "" when the path
// yields no usable id.
func CourseIDFromObject(objectPath string) string {
	base := path.Base(strings.TrimSpace(objectPath))
	if base == "." || base == "/" {
		return ""
	}
	id, _, _ := strings.Cut(base, "_")
	if id == base {
		id = strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.TrimSpace(id)
}

// Entry is one expected artifact for a course.
type Entry struct {
	Kind        Kind   `json:"kind"`
	Language    string `json:"language,omitempty"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
}

// Layout lists every artifact a complete localization run produces for a
// course: the canonical audio, one caption per language and one dubbed
// audio per non-source language.
func Layout(courseID string, langs *language.Set) []Entry {
	entries := []Entry{{
		Kind:        KindAudio,
		Path:        AudioPath(courseID),
		ContentType: ContentTypeWAV,
	}}
	for _, lang := range langs.Codes() {
		entries = append(entries, Entry{
			Kind:        KindCaption,
			Language:    lang,
			Path:        CaptionPath(courseID, lang),
			ContentType: ContentTypeCaption,
		})
		if langs.IsSource(lang) {
			continue
		}
		entries = append(entries, Entry{
			Kind:        KindDubbedAudio,
			Language:    lang,
			Path:        DubbedAudioPath(courseID, lang),
			ContentType: ContentTypeMP3,
		})
	}
	return entries
}
