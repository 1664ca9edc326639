// Package live manages captioning sessions for connected playback clients.
// A session either localizes a whole course on request (server pull) or
// streams client audio frames through recognition and translation, emitting
// one caption per recognized result in submission order (client push).
package live

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"course-localization-service/internal/language"
	"course-localization-service/internal/models"
	"course-localization-service/internal/observability/logging"
	"course-localization-service/internal/observability/metrics"
	"course-localization-service/internal/pcm"
	"course-localization-service/internal/service/pipeline"
	"course-localization-service/internal/service/stt"
	"course-localization-service/internal/service/translate"
	"course-localization-service/internal/service/tts"
)

// Frame validation errors. They are reported to the client and do not
// close the session.
var (
	ErrEmptyFrame          = errors.New("audio frame is empty")
	ErrFrameTooLarge       = errors.New("audio frame exceeds the sample limit")
	ErrUnsupportedLanguage = errors.New("unsupported target language")
	ErrServerPullDisabled  = errors.New("course processing is not available")
)

// Emitter delivers server messages to one client. It must be safe for
// concurrent use.
type Emitter interface {
	Emit(msg models.ServerMessage) error
}

// Localizer runs the single-language batch pipeline for a course.
type Localizer interface {
	Localize(ctx context.Context, courseID, lang string) (*pipeline.LanguageResult, error)
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Provider    stt.Provider
	Translator  translate.Translator
	Synthesizer tts.Synthesizer
	Localizer   Localizer
	Languages   *language.Set
}

// Config holds per-session settings.
type Config struct {
	// RecognitionLanguage is the language of the played audio, e.g. en-US.
	RecognitionLanguage string
	// MaxFrameSamples bounds one audioStream frame.
	MaxFrameSamples int
	// ResultBuffer is the capacity of the recognition result queue.
	ResultBuffer int
	// TranslateInterim emits captions for interim results too.
	TranslateInterim bool
	// Synthesize voices every final caption, as if each frame asked to dub.
	Synthesize bool
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	return Config{
		RecognitionLanguage: "en-US",
		MaxFrameSamples:     48000,
		ResultBuffer:        64,
		TranslateInterim:    true,
	}
}

// maxFrameMarks bounds the per-frame settings kept while no final result
// arrives to release them.
const maxFrameMarks = 4096

// frameMark holds the caption settings of one sent frame. end is the stream
// byte offset just past the frame.
type frameMark struct {
	end    int64
	target string
	dub    bool
}

// result is one queued recognition outcome. err is set for a fatal stream error.
type result struct {
	text       string
	final      bool
	confidence float64
	target     string
	dub        bool
	err        error
}

// Session is one live captioning connection. It implements stt.Callback
// for its recognition stream.
type Session struct {
	id        string
	deps      Deps
	cfg       Config
	emitter   Emitter
	lifecycle *Lifecycle
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	results chan result

	mu      sync.Mutex
	adapter stt.Adapter
	sent    int64
	marks   []frameMark
	closed  bool
	seq     int64
}

func newSession(id string, deps Deps, cfg Config, emitter Emitter) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		deps:      deps,
		cfg:       cfg,
		emitter:   emitter,
		lifecycle: NewLifecycle(id),
		logger:    logging.WithSession(id),
		metrics:   metrics.DefaultMetrics,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		results:   make(chan result, cfg.ResultBuffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// ProcessAudioFile localizes a course into one language in the background
// and emits captionAndAudio, or error on failure. It does not use the
// recognition stream, so it keeps working after the stream has failed.
func (s *Session) ProcessAudioFile(req models.ProcessAudioFileRequest) error {
	if s.deps.Localizer == nil {
		s.reportError(ErrServerPullDisabled, false)
		return ErrServerPullDisabled
	}
	lang, err := s.targetLanguage(req.TargetLanguage)
	if err != nil {
		s.reportError(err, false)
		return err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	s.logger.Info().Str("courseId", req.CourseID).Str("language", lang).Msg("Processing course audio")

	go func() {
		res, err := s.deps.Localizer.Localize(s.ctx, req.CourseID, lang)
		if s.closing() {
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("courseId", req.CourseID).Msg("Course processing failed")
			s.reportError(err, false)
			return
		}
		s.emit(models.EventCaptionAndAudio, models.CaptionAndAudio{
			CourseID:     req.CourseID,
			Language:     res.Language,
			Caption:      res.Caption,
			AudioContent: base64.StdEncoding.EncodeToString(res.Audio),
		})
	}()
	return nil
}

// PushAudio converts one frame of float samples to LINEAR16 and forwards it
// to the recognition stream, opening the stream on the first frame. Frame
// errors are reported to the client and leave the session usable; a stream
// that has ended closes the session.
func (s *Session) PushAudio(ctx context.Context, req models.AudioStreamRequest) error {
	if s.lifecycle.IsClosed() {
		s.reportError(ErrSessionClosed, true)
		return ErrSessionClosed
	}

	mark, err := s.acceptFrame(req)
	if err != nil {
		s.reportError(err, false)
		return err
	}

	adapter, err := s.openStream()
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return err
		}
		err = fmt.Errorf("open recognition stream: %w", err)
		s.reportError(err, false)
		return err
	}

	audio := pcm.FramesToBytes(req.AudioBuffer)
	s.metrics.RecordAudioReceived(len(audio))

	s.mu.Lock()
	s.sent += int64(len(audio))
	mark.end = s.sent
	s.marks = append(s.marks, mark)
	if len(s.marks) > maxFrameMarks {
		s.marks = append([]frameMark(nil), s.marks[len(s.marks)/2:]...)
	}
	s.mu.Unlock()

	if err := adapter.SendAudio(ctx, audio); err != nil {
		s.unmark(mark, len(audio))
		if errors.Is(err, stt.ErrStreamEnded) {
			s.fail(err)
			return fmt.Errorf("%w: %v", ErrSessionStream, err)
		}
		err = fmt.Errorf("send audio: %w", err)
		s.reportError(err, false)
		return err
	}
	return nil
}

// acceptFrame validates req and returns the caption settings for the
// results its audio produces.
func (s *Session) acceptFrame(req models.AudioStreamRequest) (frameMark, error) {
	if len(req.AudioBuffer) == 0 {
		return frameMark{}, ErrEmptyFrame
	}
	if s.cfg.MaxFrameSamples > 0 && len(req.AudioBuffer) > s.cfg.MaxFrameSamples {
		return frameMark{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(req.AudioBuffer), s.cfg.MaxFrameSamples)
	}
	lang, err := s.targetLanguage(req.Language)
	if err != nil {
		return frameMark{}, err
	}
	return frameMark{target: lang, dub: req.Dub || s.cfg.Synthesize}, nil
}

// unmark forgets a frame of size bytes that the stream did not accept.
func (s *Session) unmark(m frameMark, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.marks); n > 0 && s.marks[n-1] == m {
		s.marks = s.marks[:n-1]
		s.sent -= int64(size)
	}
}

// settingsFor returns the caption settings of the frame holding audioEnd,
// or of the latest frame when the provider gave no offset. A final result
// releases the frames before it.
func (s *Session) settingsFor(audioEnd int64, final bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.marks) == 0 {
		return s.deps.Languages.Source(), s.cfg.Synthesize
	}
	i := len(s.marks) - 1
	if audioEnd > 0 {
		if j := sort.Search(len(s.marks), func(j int) bool { return s.marks[j].end >= audioEnd }); j < i {
			i = j
		}
	}
	m := s.marks[i]
	if final {
		s.marks = s.marks[i:]
	}
	return m.target, m.dub
}

func (s *Session) targetLanguage(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return s.deps.Languages.Source(), nil
	}
	lang := language.Normalize(code)
	if !s.deps.Languages.Supports(lang) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	return lang, nil
}

// openStream returns the session's recognition stream, creating it on first use.
func (s *Session) openStream() (stt.Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.adapter != nil {
		return s.adapter, nil
	}
	if !s.lifecycle.CanOpenStream() {
		return nil, ErrSessionClosed
	}

	adapter, err := s.deps.Provider.NewAdapter(s.cfg.RecognitionLanguage)
	if err != nil {
		return nil, err
	}
	if err := adapter.Start(s.ctx, s); err != nil {
		adapter.Close()
		return nil, err
	}
	if err := s.lifecycle.OpenStream(); err != nil {
		adapter.Close()
		return nil, err
	}
	s.adapter = adapter
	s.logger.Info().Str("languageCode", s.cfg.RecognitionLanguage).Msg("Recognition stream opened")
	return adapter, nil
}

// --- stt.Callback implementation ---

// OnPartial queues an interim result when interim captions are enabled.
func (s *Session) OnPartial(text string, audioEnd int64) {
	s.metrics.RecordPartialTranscript()
	if !s.cfg.TranslateInterim {
		return
	}
	target, dub := s.settingsFor(audioEnd, false)
	s.enqueue(result{text: text, target: target, dub: dub})
}

// OnFinal queues a final result.
func (s *Session) OnFinal(text string, confidence float64, audioEnd int64) {
	s.metrics.RecordFinalTranscript()
	target, dub := s.settingsFor(audioEnd, true)
	s.enqueue(result{text: text, final: true, confidence: confidence, target: target, dub: dub})
}

// OnError ends the session's streaming capability. Errors after the client
// disconnected are ignored.
func (s *Session) OnError(err error) {
	s.fail(err)
}

func (s *Session) fail(err error) {
	if !s.lifecycle.Close(fmt.Errorf("%w: %v", ErrSessionStream, err)) {
		return
	}
	s.logger.Warn().Err(err).Msg("Recognition stream ended, closing session")
	s.enqueue(result{err: err})
}

func (s *Session) enqueue(r result) {
	select {
	case s.results <- r:
	case <-s.done:
	}
}

// run is the single consumer of the result queue, so captions leave in
// the order recognition produced them.
func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case r := <-s.results:
			s.handle(r)
		}
	}
}

func (s *Session) handle(r result) {
	if r.err != nil {
		s.reportError(fmt.Errorf("%w: %v", ErrSessionStream, r.err), true)
		s.releaseStream()
		return
	}

	text := strings.TrimSpace(r.text)
	if text == "" {
		s.metrics.RecordCaptionDropped("empty")
		return
	}

	caption := text
	if !s.deps.Languages.IsSource(r.target) {
		translated, err := s.deps.Translator.Translate(s.ctx, text, r.target)
		if err != nil {
			if s.closing() {
				return
			}
			s.metrics.RecordCaptionDropped("translation")
			s.reportError(fmt.Errorf("translate caption: %w", err), false)
			return
		}
		caption = translated
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.emit(models.EventCaption, models.Caption{Text: caption, Language: r.target, Final: r.final, Seq: seq})
	s.metrics.RecordCaption(r.target)

	if r.final && r.dub && s.deps.Synthesizer != nil && !s.deps.Languages.IsSource(r.target) {
		audio, err := s.deps.Synthesizer.SynthesizeSpeech(s.ctx, caption, r.target)
		if err != nil {
			if !s.closing() {
				s.reportError(fmt.Errorf("synthesize caption: %w", err), false)
			}
			return
		}
		s.emit(models.EventAudio, models.Audio{
			AudioContent: base64.StdEncoding.EncodeToString(audio),
			Language:     r.target,
			Seq:          seq,
		})
	}
}

func (s *Session) reportError(err error, fatal bool) {
	kind := "request"
	if fatal {
		kind = "stream"
	}
	s.metrics.RecordSessionError(kind)
	s.emit(models.EventError, models.ErrorMessage{Message: err.Error(), Fatal: fatal})
}

func (s *Session) emit(event string, data any) {
	if s.closing() {
		return
	}
	if err := s.emitter.Emit(models.ServerMessage{Event: event, Data: data}); err != nil {
		s.logger.Debug().Err(err).Str("event", event).Msg("Failed to emit to client")
	}
}

func (s *Session) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) releaseStream() {
	s.mu.Lock()
	adapter := s.adapter
	s.adapter = nil
	s.mu.Unlock()

	if adapter != nil {
		if err := adapter.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Error closing recognition stream")
		}
	}
}

// Close tears the session down after a client disconnect: the stream is
// released, queued results are discarded and in-flight work is cancelled.
// Idempotent; no error is reported to the client.
func (s *Session) Close() {
	s.once.Do(func() {
		s.lifecycle.Close(nil)

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.done)
		s.cancel()
		s.releaseStream()
		s.wg.Wait()

		s.logger.Info().
			Dur("duration", time.Since(s.startedAt)).
			Msg("Session closed")
	})
}
