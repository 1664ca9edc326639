package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"course-localization-service/internal/language"
	"course-localization-service/internal/models"
	sttmock "course-localization-service/internal/service/stt/mock"
	translatemock "course-localization-service/internal/service/translate/mock"
	ttsmock "course-localization-service/internal/service/tts/mock"
	"course-localization-service/internal/storage"
	"course-localization-service/internal/storage/memory"
)

const video = "course42_course42.mp4"

// fakeExtractor writes a placeholder WAV instead of running ffmpeg.
type fakeExtractor struct {
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if _, err := os.Stat(videoPath); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(audioPath, []byte("RIFF....WAVE"), 0o644)
}

type fakeNotifier struct {
	err       error
	mu        sync.Mutex
	events    []models.LocalizationEvent
	summaries []models.RunSummary
}

func (n *fakeNotifier) PublishLocalization(ctx context.Context, ev models.LocalizationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) PublishSummary(ctx context.Context, s models.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return n.err
}

type fixture struct {
	store      *memory.Store
	extractor  *fakeExtractor
	recognizer *sttmock.Recognizer
	translator *translatemock.Translator
	synth      *ttsmock.Synthesizer
	notifier   *fakeNotifier
	workDir    string
}

func newFixture(t *testing.T, transcript string) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.New(),
		extractor:  &fakeExtractor{},
		recognizer: sttmock.NewRecognizer(transcript),
		translator: translatemock.New(),
		synth:      ttsmock.New(),
		notifier:   &fakeNotifier{},
		workDir:    t.TempDir(),
	}
	if err := f.store.Put(context.Background(), video, []byte("mp4 bytes"), "video/mp4"); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) orchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	if cfg.WorkDir == "" {
		cfg.WorkDir = f.workDir
	}
	o, err := New(Deps{
		Store:       f.store,
		Extractor:   f.extractor,
		Recognizer:  f.recognizer,
		Translator:  f.translator,
		Synthesizer: f.synth,
		Languages:   language.MustSet("en", "en", "id", "hi"),
		Notifier:    f.notifier,
	}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func (f *fixture) text(t *testing.T, path string) (string, bool) {
	t.Helper()
	obj, ok := f.store.Object(path)
	return string(obj.Data), ok
}

func assertWorkDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temporary files to be removed, found %d entries", len(entries))
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}, Config{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestHandleUpload_Course42(t *testing.T) {
	f := newFixture(t, "hello world")
	o := f.orchestrator(t, Config{})

	report, err := o.HandleUpload(context.Background(), video)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.CourseID != "course42" {
		t.Errorf("expected course42, got %s", report.CourseID)
	}
	if report.Status() != StatusSuccess {
		t.Errorf("expected success, got %s (%v)", report.Status(), report.Err())
	}

	tests := []struct {
		path    string
		want    string
		present bool
	}{
		{"audio/course42_audio.wav", "RIFF....WAVE", true},
		{"caption/course42_en.txt", "hello world", true},
		{"caption/course42_id.txt", translatemock.Render("hello world", "id"), true},
		{"caption/course42_hi.txt", translatemock.Render("hello world", "hi"), true},
		{"audio/course42_id.mp3", string(ttsmock.Render(translatemock.Render("hello world", "id"), "id")), true},
		{"audio/course42_hi.mp3", string(ttsmock.Render(translatemock.Render("hello world", "hi"), "hi")), true},
		{"audio/course42_en.mp3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := f.text(t, tt.path)
			if ok != tt.present {
				t.Fatalf("present = %v, want %v", ok, tt.present)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if n := f.translator.CallsFor("en"); n != 0 {
		t.Errorf("source language must not be translated, got %d calls", n)
	}
	for _, lang := range f.synth.Languages() {
		if lang == "en" {
			t.Error("source language must not be synthesized")
		}
	}
	assertWorkDirEmpty(t, f.workDir)
}

func TestHandleUpload_TranscribesUploadedAudio(t *testing.T) {
	f := newFixture(t, "hello world")
	o := f.orchestrator(t, Config{RecognitionLanguage: "en-US"})

	if _, err := o.HandleUpload(context.Background(), video); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := f.recognizer.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one recognition, got %d", len(calls))
	}
	if calls[0].URI != "mem://audio/course42_audio.wav" {
		t.Errorf("unexpected audio URI %q", calls[0].URI)
	}
	if calls[0].SampleRateHz != 16000 {
		t.Errorf("expected 16 kHz audio, got %d", calls[0].SampleRateHz)
	}
}

func TestHandleUpload_EmptyTranscript(t *testing.T) {
	f := newFixture(t, "")
	o := f.orchestrator(t, Config{})

	report, err := o.HandleUpload(context.Background(), video)
	if err != nil {
		t.Fatalf("empty transcript must not be an error, got %v", err)
	}
	if !report.EmptyTranscript || report.Status() != StatusEmpty {
		t.Errorf("expected empty run, got status %s", report.Status())
	}
	want := []string{"audio/course42_audio.wav", video}
	if got := f.store.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected no caption or dubbed audio, got %v", got)
	}
	if len(f.translator.Calls()) != 0 {
		t.Error("translator must not be called")
	}
	assertWorkDirEmpty(t, f.workDir)
}

func TestHandleUpload_TranslationFailureIsolated(t *testing.T) {
	f := newFixture(t, "hello world")
	cause := errors.New("quota exceeded")
	f.translator.FailFor["hi"] = cause
	o := f.orchestrator(t, Config{MaxParallel: 1})

	report, err := o.HandleUpload(context.Background(), video)
	if err != nil {
		t.Fatalf("per-language failure must not fail the run: %v", err)
	}
	if _, ok := f.text(t, "caption/course42_en.txt"); !ok {
		t.Error("expected en caption")
	}
	if _, ok := f.text(t, "caption/course42_id.txt"); !ok {
		t.Error("expected id caption")
	}
	if _, ok := f.text(t, "caption/course42_hi.txt"); ok {
		t.Error("hi caption must not be written")
	}
	if _, ok := f.text(t, "audio/course42_hi.mp3"); ok {
		t.Error("hi audio must not be written")
	}

	if !errors.Is(report.Err(), ErrTranslation) || !errors.Is(report.Err(), cause) {
		t.Errorf("expected translation error wrapping cause, got %v", report.Err())
	}
	var se *StageError
	if !errors.As(report.Err(), &se) || se.Language != "hi" || se.Stage != StageTranslation {
		t.Errorf("expected StageError for hi, got %#v", se)
	}
	if report.Status() != StatusPartial {
		t.Errorf("expected partial, got %s", report.Status())
	}
	if got := report.Failed(); !reflect.DeepEqual(got, []string{"hi"}) {
		t.Errorf("expected hi failed, got %v", got)
	}
}

func TestHandleUpload_SynthesisFailureKeepsCaption(t *testing.T) {
	f := newFixture(t, "hello world")
	f.synth.FailFor["id"] = errors.New("voice unavailable")
	o := f.orchestrator(t, Config{})

	report, err := o.HandleUpload(context.Background(), video)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.text(t, "caption/course42_id.txt"); !ok {
		t.Error("id caption must be kept when synthesis fails")
	}
	if _, ok := f.text(t, "audio/course42_id.mp3"); ok {
		t.Error("id audio must not be written")
	}
	res, _ := report.Result("id")
	if !errors.Is(res.Err, ErrSynthesis) {
		t.Errorf("expected synthesis error, got %v", res.Err)
	}
	if res.CaptionPath != "caption/course42_id.txt" || res.AudioPath != "" {
		t.Errorf("unexpected paths %q %q", res.CaptionPath, res.AudioPath)
	}
}

func TestHandleUpload_MalformedInputHasNoSideEffects(t *testing.T) {
	inputs := []string{"notes/course42.txt", "course42_course42.mov", "", "videos/"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			f := newFixture(t, "hello world")
			o := f.orchestrator(t, Config{})
			writes := f.store.Writes()

			report, err := o.HandleUpload(context.Background(), in)
			if err != nil {
				t.Fatalf("skip must not be an error, got %v", err)
			}
			if !report.Skipped || !errors.Is(report.SkipReason, ErrInputSkipped) {
				t.Errorf("expected skipped report, got %+v", report)
			}
			if f.store.Gets() != 0 || f.store.Writes() != writes {
				t.Errorf("expected no store access, got %d gets %d writes", f.store.Gets(), f.store.Writes()-writes)
			}
			if f.extractor.calls != 0 || len(f.recognizer.Calls()) != 0 {
				t.Error("expected no pipeline stage to run")
			}
			if len(f.notifier.summaries) != 0 {
				t.Error("expected no notification for skipped input")
			}
		})
	}
}

func TestHandleUpload_ExtractionFailure(t *testing.T) {
	f := newFixture(t, "hello world")
	cause := errors.New("ffmpeg exited with status 1")
	f.extractor.err = cause
	o := f.orchestrator(t, Config{})

	report, err := o.HandleUpload(context.Background(), video)
	if !errors.Is(err, ErrExtraction) || !errors.Is(err, cause) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if report.Status() != StatusFailed {
		t.Errorf("expected failed, got %s", report.Status())
	}
	if len(f.recognizer.Calls()) != 0 {
		t.Error("transcription must not run after extraction failure")
	}
	if got := f.store.Paths(); !reflect.DeepEqual(got, []string{video}) {
		t.Errorf("expected no artifacts, got %v", got)
	}
	assertWorkDirEmpty(t, f.workDir)
}

func TestHandleUpload_MissingVideo(t *testing.T) {
	f := newFixture(t, "hello world")
	o := f.orchestrator(t, Config{})

	_, err := o.HandleUpload(context.Background(), "other_other.mp4")
	if !errors.Is(err, ErrExtraction) || !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected extraction error wrapping not found, got %v", err)
	}
	assertWorkDirEmpty(t, f.workDir)
}

func TestHandleUpload_TranscriptionFailure(t *testing.T) {
	f := newFixture(t, "hello world")
	f.recognizer.Err = errors.New("operation failed")
	o := f.orchestrator(t, Config{})

	_, err := o.HandleUpload(context.Background(), video)
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if len(f.translator.Calls()) != 0 {
		t.Error("no language must be processed after transcription failure")
	}
	assertWorkDirEmpty(t, f.workDir)
}

func TestHandleUpload_Idempotent(t *testing.T) {
	f := newFixture(t, "hello world")
	o := f.orchestrator(t, Config{})

	if _, err := o.HandleUpload(context.Background(), video); err != nil {
		t.Fatal(err)
	}
	first := map[string]string{}
	for _, p := range f.store.Paths() {
		first[p], _ = f.text(t, p)
	}

	if _, err := o.HandleUpload(context.Background(), video); err != nil {
		t.Fatal(err)
	}
	second := map[string]string{}
	for _, p := range f.store.Paths() {
		second[p], _ = f.text(t, p)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("reprocessing changed artifacts:\n%v\n%v", first, second)
	}
}

func TestHandleUpload_Notifications(t *testing.T) {
	f := newFixture(t, "hello world")
	f.translator.FailFor["hi"] = errors.New("boom")
	o := f.orchestrator(t, Config{})

	if _, err := o.HandleUpload(context.Background(), video); err != nil {
		t.Fatal(err)
	}

	if len(f.notifier.events) != 3 {
		t.Fatalf("expected one event per language, got %d", len(f.notifier.events))
	}
	for _, ev := range f.notifier.events {
		want := models.EventLanguageLocalized
		if ev.Language == "hi" {
			want = models.EventLanguageFailed
		}
		if ev.EventType != want {
			t.Errorf("%s: expected %s, got %s", ev.Language, want, ev.EventType)
		}
	}
	if len(f.notifier.summaries) != 1 || f.notifier.summaries[0].Status != StatusPartial {
		t.Errorf("expected one partial summary, got %+v", f.notifier.summaries)
	}
}

func TestHandleUpload_NotificationFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, "hola a todos, esta es la primera clase del curso de programación")
	f.notifier.err = errors.New("broker unavailable")
	o := f.orchestrator(t, Config{DetectLanguage: true})

	report, err := o.HandleUpload(context.Background(), video)
	if err != nil {
		t.Fatalf("HandleUpload: %v", err)
	}
	if report.Status() != StatusSuccess {
		t.Errorf("expected successful run, got %s", report.Status())
	}
	if len(f.notifier.events) != 3 || len(f.notifier.summaries) != 1 {
		t.Errorf("expected every notification attempted, got %d events and %d summaries",
			len(f.notifier.events), len(f.notifier.summaries))
	}
	if _, ok := f.text(t, "caption/course42_id.txt"); !ok {
		t.Error("expected caption to be persisted")
	}
}

func TestHandleUpload_CourseLock(t *testing.T) {
	f := newFixture(t, "hello world")
	o := f.orchestrator(t, Config{LockPerCourse: true})

	if _, err := o.HandleUpload(context.Background(), video); err != nil {
		t.Fatalf("unexpected error with free lock: %v", err)
	}

	held := flock.New(filepath.Join(f.workDir, "localize-course42.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("could not take lock: %v", err)
	}
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := o.HandleUpload(ctx, video); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked while another run holds the course, got %v", err)
	}
}

func TestLocalize(t *testing.T) {
	f := newFixture(t, "hello world")
	o := f.orchestrator(t, Config{})

	res, err := o.Localize(context.Background(), "course42", "id-ID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Language != "id" || res.Caption != translatemock.Render("hello world", "id") {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.Audio) == 0 {
		t.Error("expected dubbed audio")
	}
	if _, ok := f.text(t, "caption/course42_hi.txt"); ok {
		t.Error("only the requested language must be processed")
	}

	res, err = o.Localize(context.Background(), "course42", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Caption != "hello world" || res.Audio != nil {
		t.Errorf("source language must return the transcript without audio, got %+v", res)
	}
}

func TestLocalize_Errors(t *testing.T) {
	f := newFixture(t, "hello world")
	o := f.orchestrator(t, Config{})

	if _, err := o.Localize(context.Background(), "course42", "fr"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected unsupported language, got %v", err)
	}
	if _, err := o.Localize(context.Background(), "missing", "id"); !errors.Is(err, ErrExtraction) {
		t.Errorf("expected extraction error, got %v", err)
	}

	f.translator.FailFor["id"] = errors.New("boom")
	if _, err := o.Localize(context.Background(), "course42", "id"); !errors.Is(err, ErrTranslation) {
		t.Errorf("expected translation error, got %v", err)
	}

	empty := newFixture(t, "")
	if _, err := empty.orchestrator(t, Config{}).Localize(context.Background(), "course42", "en"); !errors.Is(err, ErrNoSpeech) {
		t.Errorf("expected no speech, got %v", err)
	}
}
