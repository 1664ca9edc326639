// Package pipeline drives the batch localization of uploaded course videos:
// extraction, transcription, then an independent translate/persist/synthesize
// task per configured language. Temporary files are removed on every exit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"course-localization-service/internal/artifact"
	"course-localization-service/internal/language"
	"course-localization-service/internal/models"
	"course-localization-service/internal/observability/logging"
	"course-localization-service/internal/observability/metrics"
	"course-localization-service/internal/service/media"
	"course-localization-service/internal/service/stt"
	"course-localization-service/internal/service/translate"
	"course-localization-service/internal/service/tts"
	"course-localization-service/internal/storage"
)

// Notifier receives localization results. Notification failures are logged
// and never fail a run.
type Notifier interface {
	PublishLocalization(ctx context.Context, ev models.LocalizationEvent) error
	PublishSummary(ctx context.Context, s models.RunSummary) error
}

// Config tunes a run.
type Config struct {
	// WorkDir holds per-run temporary directories. Defaults to os.TempDir().
	WorkDir string
	// MaxParallel bounds concurrent language tasks; 0 means one per language.
	MaxParallel int
	// RecognitionLanguage is the hint passed to transcription, e.g. en-US.
	// Defaults to the source language.
	RecognitionLanguage string
	// LockPerCourse serializes runs of the same course with a file lock in
	// WorkDir. Off by default: concurrent runs are last-writer-wins.
	LockPerCourse bool
	// DetectLanguage logs a warning when the transcript does not look like
	// the source language.
	DetectLanguage bool
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Store       storage.Store
	Extractor   media.Extractor
	Recognizer  stt.Recognizer
	Translator  translate.Translator
	Synthesizer tts.Synthesizer
	Languages   *language.Set
	Notifier    Notifier
}

// Orchestrator runs the batch pipeline. It is safe for concurrent use.
type Orchestrator struct {
	store      storage.Store
	extractor  media.Extractor
	recognizer stt.Recognizer
	translator translate.Translator
	synth      tts.Synthesizer
	langs      *language.Set
	notifier   Notifier
	detector   *language.Detector
	cfg        Config
	metrics    *metrics.Metrics
}

// New validates deps and creates an Orchestrator.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case deps.Recognizer == nil:
		return nil, errors.New("pipeline: recognizer is required")
	case deps.Translator == nil:
		return nil, errors.New("pipeline: translator is required")
	case deps.Synthesizer == nil:
		return nil, errors.New("pipeline: synthesizer is required")
	case deps.Languages == nil || deps.Languages.Len() == 0:
		return nil, errors.New("pipeline: supported languages are required")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.RecognitionLanguage == "" {
		cfg.RecognitionLanguage = deps.Languages.Source()
	}

	o := &Orchestrator{
		store:      deps.Store,
		extractor:  deps.Extractor,
		recognizer: deps.Recognizer,
		translator: deps.Translator,
		synth:      deps.Synthesizer,
		langs:      deps.Languages,
		notifier:   deps.Notifier,
		cfg:        cfg,
		metrics:    metrics.DefaultMetrics,
	}
	if cfg.DetectLanguage {
		o.detector = language.NewDetector()
	}
	return o, nil
}

// Languages returns the configured language set.
func (o *Orchestrator) Languages() *language.Set {
	return o.langs
}

// HandleUpload localizes the video at objectPath into every configured
// language. Objects without a recognized video extension are skipped with
// no side effects: the report has Skipped set and the error is nil.
//
// The returned error is the fatal stage error (extraction or transcription).
// Per-language failures are reported in Report.Languages only.
func (o *Orchestrator) HandleUpload(ctx context.Context, objectPath string) (*Report, error) {
	courseID := artifact.CourseIDFromObject(objectPath)
	if !artifact.IsVideoObject(objectPath) || courseID == "" {
		reason := fmt.Errorf("%w: %q is not a recognized video", ErrInputSkipped, objectPath)
		log.Info().Str("object", objectPath).Msg("Ignoring upload that is not a video")
		o.metrics.RecordInputSkipped()
		return &Report{Object: objectPath, Skipped: true, SkipReason: reason}, nil
	}
	return o.run(ctx, courseID, objectPath, o.langs.Codes())
}

// Localize runs the pipeline for one course and one language, reading the
// course video from its well-known path. It returns the language result,
// whose Audio is empty for the source language.
func (o *Orchestrator) Localize(ctx context.Context, courseID, lang string) (*LanguageResult, error) {
	lang = language.Normalize(lang)
	if !o.langs.Supports(lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	report, err := o.run(ctx, courseID, artifact.SourceVideoPath(courseID), []string{lang})
	if err != nil {
		return nil, err
	}
	if report.EmptyTranscript {
		return nil, fmt.Errorf("%s: %w", courseID, ErrNoSpeech)
	}
	res, _ := report.Result(lang)
	if res.Err != nil {
		return &res, res.Err
	}
	return &res, nil
}

func (o *Orchestrator) run(ctx context.Context, courseID, videoPath string, langs []string) (*Report, error) {
	start := time.Now()
	logger := logging.WithCourse(courseID)
	report := &Report{CourseID: courseID, Object: videoPath}

	o.metrics.RecordPipelineStart()
	defer func() {
		report.Duration = time.Since(start)
		status := report.Status()
		o.metrics.RecordPipelineEnd(status)
		o.notifySummary(ctx, report)
		logger.Info().
			Str("status", status).
			Strs("succeeded", report.Succeeded()).
			Strs("failed", report.Failed()).
			Dur("duration", report.Duration).
			Msg("Localization run finished")
	}()

	if o.cfg.LockPerCourse {
		unlock, err := o.lockCourse(ctx, courseID)
		if err != nil {
			report.Fatal = err
			return report, err
		}
		defer unlock()
	}

	workDir, err := os.MkdirTemp(o.cfg.WorkDir, "localize-"+courseID+"-")
	if err != nil {
		report.Fatal = stageErr(StageExtraction, ErrExtraction, courseID, "", err)
		return report, report.Fatal
	}
	videoLocal := filepath.Join(workDir, filepath.Base(videoPath))
	audioLocal := filepath.Join(workDir, courseID+"_audio.wav")
	defer cleanup(courseID, workDir, videoLocal, audioLocal)

	logger.Info().Str("object", videoPath).Strs("languages", langs).Msg("Starting localization run")

	// Stage 1
	if err := o.extract(ctx, courseID, videoPath, videoLocal, audioLocal); err != nil {
		report.Fatal = stageErr(StageExtraction, ErrExtraction, courseID, "", err)
		logger.Error().Err(err).Msg("Audio extraction failed")
		return report, report.Fatal
	}

	// Stage 2
	transcript, err := o.transcribe(ctx, courseID, audioLocal)
	if err != nil {
		report.Fatal = stageErr(StageTranscription, ErrTranscription, courseID, "", err)
		logger.Error().Err(err).Msg("Transcription failed")
		return report, report.Fatal
	}
	if transcript.Empty() {
		report.EmptyTranscript = true
		logger.Warn().Msg("Transcription returned no speech, skipping languages")
		return report, nil
	}
	report.Transcript = transcript.Text
	o.checkLanguage(courseID, transcript.Text)

	// Stage 3
	report.Languages = o.fanOut(ctx, courseID, transcript.Text, langs)
	return report, nil
}

func (o *Orchestrator) extract(ctx context.Context, courseID, videoPath, videoLocal, audioLocal string) error {
	defer o.timeStage(StageExtraction)()

	if err := o.store.Download(ctx, videoPath, videoLocal); err != nil {
		return fmt.Errorf("download %s: %w", videoPath, err)
	}
	if err := o.extractor.ExtractAudio(ctx, videoLocal, audioLocal); err != nil {
		return err
	}
	audioPath := artifact.AudioPath(courseID)
	if err := o.store.Upload(ctx, audioLocal, audioPath, artifact.ContentTypeWAV); err != nil {
		return fmt.Errorf("upload %s: %w", audioPath, err)
	}
	o.metrics.RecordArtifact(string(artifact.KindAudio))
	logger := logging.WithStage(courseID, StageExtraction)
	logger.Debug().Str("path", audioPath).Msg("Uploaded canonical audio")
	return nil
}

func (o *Orchestrator) transcribe(ctx context.Context, courseID, audioLocal string) (stt.Transcript, error) {
	defer o.timeStage(StageTranscription)()

	audioPath := artifact.AudioPath(courseID)
	ref := stt.AudioRef{
		URI:          o.store.URI(audioPath),
		LocalPath:    audioLocal,
		SampleRateHz: media.SampleRateHz,
	}
	start := time.Now()
	t, err := o.recognizer.TranscribeLong(ctx, ref, o.cfg.RecognitionLanguage)
	o.metrics.RecordAdapterCall("stt", err, time.Since(start).Seconds())
	if err != nil {
		return stt.Transcript{}, err
	}
	logger := logging.WithStage(courseID, StageTranscription)
	logger.Debug().
		Int("segments", len(t.Segments)).
		Int("chars", len(t.Text)).
		Msg("Transcription complete")
	return t, nil
}

func (o *Orchestrator) checkLanguage(courseID, text string) {
	if o.detector == nil {
		return
	}
	detected, ok := o.detector.Detect(text)
	if ok && detected != o.langs.Source() {
		logger := logging.WithCourse(courseID)
		logger.Warn().
			Str("detected", detected).
			Str("source", o.langs.Source()).
			Msg("Transcript language differs from the configured source language")
	}
}

// fanOut runs one task per language and waits for all of them. Each task
// settles into its own result slot, so a failing language never cancels
// or hides its siblings.
func (o *Orchestrator) fanOut(ctx context.Context, courseID, transcript string, langs []string) []LanguageResult {
	results := make([]LanguageResult, len(langs))

	var g errgroup.Group
	if o.cfg.MaxParallel > 0 {
		g.SetLimit(o.cfg.MaxParallel)
	}
	for i, lang := range langs {
		g.Go(func() error {
			results[i] = o.localizeLanguage(ctx, courseID, transcript, lang)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// localizeLanguage translates, persists the caption, and for non-source
// languages synthesizes and persists dubbed audio, strictly in that order.
func (o *Orchestrator) localizeLanguage(ctx context.Context, courseID, transcript, lang string) (res LanguageResult) {
	logger := logging.WithLanguage(courseID, lang)
	res.Language = lang

	defer func() {
		status := "ok"
		if res.Err != nil {
			status = "error"
			logger.Error().Err(res.Err).Bool("captionWritten", res.CaptionPath != "").Msg("Language localization failed")
		} else {
			logger.Info().Str("caption", res.CaptionPath).Str("audio", res.AudioPath).Msg("Language localized")
		}
		o.metrics.RecordLanguageResult(lang, status)
		o.notifyLanguage(ctx, courseID, res)
	}()

	caption := transcript
	if !o.langs.IsSource(lang) {
		start := time.Now()
		translated, err := o.translator.Translate(ctx, transcript, lang)
		o.metrics.RecordAdapterCall("translate", err, time.Since(start).Seconds())
		if err != nil {
			res.Err = stageErr(StageTranslation, ErrTranslation, courseID, lang, err)
			return res
		}
		caption = translated
	}
	res.Caption = caption

	captionPath := artifact.CaptionPath(courseID, lang)
	if err := o.store.Put(ctx, captionPath, []byte(caption), artifact.ContentTypeCaption); err != nil {
		res.Err = stageErr(StagePersist, ErrPersist, courseID, lang, err)
		return res
	}
	res.CaptionPath = captionPath
	o.metrics.RecordArtifact(string(artifact.KindCaption))

	if o.langs.IsSource(lang) {
		return res
	}

	start := time.Now()
	audio, err := o.synth.SynthesizeSpeech(ctx, caption, lang)
	o.metrics.RecordAdapterCall("tts", err, time.Since(start).Seconds())
	if err != nil {
		res.Err = stageErr(StageSynthesis, ErrSynthesis, courseID, lang, err)
		return res
	}
	res.Audio = audio

	audioPath := artifact.DubbedAudioPath(courseID, lang)
	if err := o.store.Put(ctx, audioPath, audio, artifact.ContentTypeMP3); err != nil {
		res.Err = stageErr(StagePersist, ErrPersist, courseID, lang, err)
		return res
	}
	res.AudioPath = audioPath
	o.metrics.RecordArtifact(string(artifact.KindDubbedAudio))
	return res
}

func (o *Orchestrator) lockCourse(ctx context.Context, courseID string) (func(), error) {
	lockPath := filepath.Join(o.cfg.WorkDir, "localize-"+courseID+".lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLocked, courseID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, courseID)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger := logging.WithCourse(courseID)
			logger.Warn().Err(err).Msg("Failed to release course lock")
		}
	}, nil
}

func (o *Orchestrator) timeStage(stage string) func() {
	start := time.Now()
	return func() {
		o.metrics.RecordStage(stage, time.Since(start).Seconds())
	}
}

func (o *Orchestrator) notifyLanguage(ctx context.Context, courseID string, res LanguageResult) {
	if o.notifier == nil {
		return
	}
	ev := models.LocalizationEvent{
		EventType:   models.EventLanguageLocalized,
		CourseID:    courseID,
		Language:    res.Language,
		Timestamp:   time.Now().UnixMilli(),
		CaptionPath: res.CaptionPath,
		AudioPath:   res.AudioPath,
	}
	if res.Err != nil {
		ev.EventType = models.EventLanguageFailed
		ev.Error = res.Err.Error()
	}
	if err := o.notifier.PublishLocalization(context.WithoutCancel(ctx), ev); err != nil {
		logger := logging.WithLanguage(courseID, res.Language)
		logger.Warn().Err(err).Msg("Failed to publish localization event")
	}
}

func (o *Orchestrator) notifySummary(ctx context.Context, r *Report) {
	if o.notifier == nil {
		return
	}
	s := models.RunSummary{
		EventType:       models.EventRunCompleted,
		CourseID:        r.CourseID,
		Timestamp:       time.Now().UnixMilli(),
		Status:          r.Status(),
		EmptyTranscript: r.EmptyTranscript,
		Succeeded:       r.Succeeded(),
		Failed:          r.Failed(),
		DurationMs:      r.Duration.Milliseconds(),
	}
	if err := o.notifier.PublishSummary(context.WithoutCancel(ctx), s); err != nil {
		logger := logging.WithCourse(r.CourseID)
		logger.Warn().Err(err).Msg("Failed to publish run summary")
	}
}

// cleanup removes the local copies of a run. Failures are logged, never
// returned.
func cleanup(courseID, dir string, files ...string) {
	logger := logging.WithCourse(courseID)
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("file", f).Msg("Failed to delete temporary file")
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("Failed to delete work directory")
	}
}
