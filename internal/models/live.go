package models

import "encoding/json"

// Live session event names.
const (
	EventProcessAudioFile = "processAudioFile"
	EventAudioStream      = "audioStream"
	EventCaptionAndAudio  = "captionAndAudio"
	EventCaption          = "caption"
	EventAudio            = "audio"
	EventError            = "error"
)

// ClientMessage is one message from a live client.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerMessage is one message to a live client.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ProcessAudioFileRequest asks the server to localize a course's audio into
// one language and push back the finished caption and audio.
type ProcessAudioFileRequest struct {
	CourseID       string `json:"courseId"`
	TargetLanguage string `json:"targetLanguage"`
}

// AudioStreamRequest carries one frame of float samples in [-1, 1].
type AudioStreamRequest struct {
	AudioBuffer []float64 `json:"audioBuffer"`
	Language    string    `json:"language"`
	// Dub asks for synthesized audio alongside each final caption.
	Dub bool `json:"dub,omitempty"`
}

// CaptionAndAudio answers a ProcessAudioFileRequest. AudioContent is base64
// encoded MP3 and is empty for the source language.
type CaptionAndAudio struct {
	CourseID     string `json:"courseId,omitempty"`
	Language     string `json:"language,omitempty"`
	Caption      string `json:"caption"`
	AudioContent string `json:"audioContent"`
}

// Caption is one translated recognition result of a live stream.
type Caption struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Final    bool   `json:"final"`
	Seq      int64  `json:"seq"`
}

// Audio is synthesized speech for the caption with the same Seq.
type Audio struct {
	AudioContent string `json:"audioContent"`
	Language     string `json:"language,omitempty"`
	Seq          int64  `json:"seq"`
}

// ErrorMessage reports a per-request or session failure to the client.
type ErrorMessage struct {
	Message string `json:"message"`
	// Fatal is set when the session can no longer stream.
	Fatal bool `json:"fatal,omitempty"`
}
