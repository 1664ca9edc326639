package pipeline

import (
	"errors"
	"time"
)

// Run outcomes.
const (
	StatusSkipped = "skipped"
	StatusEmpty   = "empty"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// LanguageResult is the settled outcome of one language of the fan-out.
// Paths are set only for artifacts that were written.
type LanguageResult struct {
	Language    string
	CaptionPath string
	AudioPath   string
	Caption     string
	Audio       []byte
	Err         error
}

// OK reports whether every artifact for the language was written.
func (r LanguageResult) OK() bool {
	return r.Err == nil
}

// Report describes one pipeline run.
type Report struct {
	CourseID        string
	Object          string
	Skipped         bool
	SkipReason      error
	EmptyTranscript bool
	Transcript      string
	Languages       []LanguageResult
	// Fatal is the stage error that aborted the run, if any.
	Fatal    error
	Duration time.Duration
}

// Err joins every per-language error.
func (r *Report) Err() error {
	var errs []error
	for _, l := range r.Languages {
		if l.Err != nil {
			errs = append(errs, l.Err)
		}
	}
	return errors.Join(errs...)
}

// Succeeded lists languages whose artifacts were all written.
func (r *Report) Succeeded() []string {
	out := []string{}
	for _, l := range r.Languages {
		if l.OK() {
			out = append(out, l.Language)
		}
	}
	return out
}

// Failed lists languages with an error.
func (r *Report) Failed() []string {
	out := []string{}
	for _, l := range r.Languages {
		if !l.OK() {
			out = append(out, l.Language)
		}
	}
	return out
}

// Result returns the result for lang.
func (r *Report) Result(lang string) (LanguageResult, bool) {
	for _, l := range r.Languages {
		if l.Language == lang {
			return l, true
		}
	}
	return LanguageResult{}, false
}

// Status summarizes the run.
func (r *Report) Status() string {
	switch {
	case r.Skipped:
		return StatusSkipped
	case r.Fatal != nil:
		return StatusFailed
	case r.EmptyTranscript:
		return StatusEmpty
	}
	failed := len(r.Failed())
	switch {
	case failed == 0:
		return StatusSuccess
	case failed == len(r.Languages):
		return StatusFailed
	default:
		return StatusPartial
	}
}
