package pipeline

import (
	"errors"
	"fmt"
)

// Error taxonomy of a batch run. ErrInputSkipped is informational: the
// trigger was not a recognized video and nothing was done.
var (
	ErrInputSkipped        = errors.New("input skipped")
	ErrExtraction          = errors.New("audio extraction failed")
	ErrTranscription       = errors.New("transcription failed")
	ErrTranslation         = errors.New("translation failed")
	ErrSynthesis           = errors.New("speech synthesis failed")
	ErrPersist             = errors.New("artifact write failed")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoSpeech            = errors.New("no speech recognized")
	ErrLocked              = errors.New("course is being processed")
)

// Stage names used in errors, logs and metrics.
const (
	StageExtraction    = "extraction"
	StageTranscription = "transcription"
	StageTranslation   = "translation"
	StageSynthesis     = "synthesis"
	StagePersist       = "persist"
)

// StageError records where a run failed. It matches both its Kind sentinel
// and the underlying cause with errors.Is.
type StageError struct {
	Stage    string
	CourseID string
	Language string
	Kind     error
	Err      error
}

func (e *StageError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Stage, e.CourseID, e.Language, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.CourseID, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageErr(stage string, kind error, courseID, lang string, err error) error {
	return &StageError{Stage: stage, CourseID: courseID, Language: lang, Kind: kind, Err: err}
}
