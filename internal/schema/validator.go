// Package schema validates inbound trigger and live session payloads before
// they reach the pipeline or a session.
package schema

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"course-localization-service/internal/language"
	"course-localization-service/internal/models"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid payload")

// Validator checks required fields, language support and frame limits.
type Validator struct {
	langs           *language.Set
	maxFrameSamples int
}

// New creates a validator. maxFrameSamples <= 0 disables the frame limit.
func New(langs *language.Set, maxFrameSamples int) *Validator {
	return &Validator{langs: langs, maxFrameSamples: maxFrameSamples}
}

// Validate checks one payload. Unknown types are accepted.
func (v *Validator) Validate(payload any) error {
	switch p := payload.(type) {
	case models.UploadEvent:
		return v.upload(p)
	case *models.UploadEvent:
		return v.upload(*p)
	case models.ProcessAudioFileRequest:
		return v.processAudioFile(p)
	case *models.ProcessAudioFileRequest:
		return v.processAudioFile(*p)
	case models.AudioStreamRequest:
		return v.audioStream(p)
	case *models.AudioStreamRequest:
		return v.audioStream(*p)
	default:
		return nil
	}
}

func (v *Validator) upload(ev models.UploadEvent) error {
	if strings.TrimSpace(ev.Name) == "" {
		return invalid("name is required")
	}
	return nil
}

func (v *Validator) processAudioFile(req models.ProcessAudioFileRequest) error {
	if err := ValidateCourseID(req.CourseID); err != nil {
		return err
	}
	if req.TargetLanguage == "" {
		return invalid("targetLanguage is required")
	}
	return v.language(req.TargetLanguage)
}

// ValidateCourseID checks that id can be embedded in artifact paths.
func ValidateCourseID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("courseId is required")
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return invalid("courseId %q must be a plain identifier", id)
	}
	return nil
}

func (v *Validator) audioStream(req models.AudioStreamRequest) error {
	if len(req.AudioBuffer) == 0 {
		return invalid("audioBuffer is required")
	}
	if v.maxFrameSamples > 0 && len(req.AudioBuffer) > v.maxFrameSamples {
		return invalid("audioBuffer has %d samples, limit is %d", len(req.AudioBuffer), v.maxFrameSamples)
	}
	for i, s := range req.AudioBuffer {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return invalid("audioBuffer[%d] is not a finite number", i)
		}
	}
	if req.Language == "" {
		return nil
	}
	return v.language(req.Language)
}

func (v *Validator) language(code string) error {
	if v.langs == nil {
		return nil
	}
	if !v.langs.Supports(language.Normalize(code)) {
		return invalid("language %q is not supported (supported: %s)", code, strings.Join(v.langs.Codes(), ", "))
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
