package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"course-localization-service/internal/config"
	"course-localization-service/internal/service/stt"
	sttgoogle "course-localization-service/internal/service/stt/google"
	sttmock "course-localization-service/internal/service/stt/mock"
	sttopenai "course-localization-service/internal/service/stt/openai"
	"course-localization-service/internal/service/translate"
	translategoogle "course-localization-service/internal/service/translate/google"
	translatemock "course-localization-service/internal/service/translate/mock"
	translateopenai "course-localization-service/internal/service/translate/openai"
	"course-localization-service/internal/service/tts"
	ttsgoogle "course-localization-service/internal/service/tts/google"
	ttsmock "course-localization-service/internal/service/tts/mock"
	"course-localization-service/internal/storage"
	"course-localization-service/internal/storage/fs"
	"course-localization-service/internal/storage/gcs"
	"course-localization-service/internal/storage/memory"
)

// mockTranscript is what the mock recognizer returns for every video.
const mockTranscript = "Welcome to the course. In this lesson we cover the basics."

// providers holds the adapters selected by configuration. closers release
// the underlying API clients on shutdown.
type providers struct {
	store      storage.Store
	recognizer stt.Recognizer
	streaming  stt.Provider
	translator translate.Translator
	synth      tts.Synthesizer
	closers    []io.Closer
}

func buildProviders(ctx context.Context, cfg *config.Configuration, source string) (*providers, error) {
	p := &providers{}
	var err error

	if p.store, err = p.buildStore(ctx, cfg.Storage); err != nil {
		return nil, p.fail(err)
	}
	if err = p.buildSTT(ctx, cfg); err != nil {
		return nil, p.fail(err)
	}
	if p.translator, err = p.buildTranslator(ctx, cfg, source); err != nil {
		return nil, p.fail(err)
	}
	if p.synth, err = p.buildSynthesizer(ctx, cfg.TTS); err != nil {
		return nil, p.fail(err)
	}
	return p, nil
}

func (p *providers) buildStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Provider {
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("STORAGE_BUCKET is required for gcs storage")
		}
		s, err := gcs.New(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("create gcs store: %w", err)
		}
		p.closers = append(p.closers, s)
		return s, nil
	case "fs":
		s, err := fs.New(cfg.Root)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

func (p *providers) buildSTT(ctx context.Context, cfg *config.Configuration) error {
	var google *sttgoogle.Client
	googleClient := func() (*sttgoogle.Client, error) {
		if google != nil {
			return google, nil
		}
		c, err := sttgoogle.New(ctx, sttgoogle.Config{
			LanguageCode:   cfg.STT.LanguageCode,
			SampleRateHz:   int32(cfg.STT.SampleRateHz),
			InterimResults: cfg.STT.InterimResults,
			AudioEncoding:  cfg.STT.AudioEncoding,
			Punctuation:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("create google speech client: %w", err)
		}
		p.closers = append(p.closers, c)
		google = c
		return c, nil
	}

	switch cfg.STT.Provider {
	case "google":
		c, err := googleClient()
		if err != nil {
			return err
		}
		p.recognizer = c
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai transcription")
		}
		p.recognizer = sttopenai.New(cfg.OpenAI.APIKey)
	case "mock":
		p.recognizer = sttmock.NewRecognizer(mockTranscript)
	default:
		return fmt.Errorf("unknown STT provider %q", cfg.STT.Provider)
	}

	streaming := cfg.STT.StreamingProvider
	if streaming == "" {
		streaming = cfg.STT.Provider
		if streaming == "openai" {
			log.Warn().Msg("openai has no streaming recognition, live sessions use the mock stream")
			streaming = "mock"
		}
	}

	switch streaming {
	case "google":
		c, err := googleClient()
		if err != nil {
			return err
		}
		p.streaming = c
	case "mock":
		p.streaming = &sttmock.Provider{Delay: 50 * time.Millisecond}
	default:
		return fmt.Errorf("unsupported streaming STT provider %q", streaming)
	}
	return nil
}

func (p *providers) buildTranslator(ctx context.Context, cfg *config.Configuration, source string) (translate.Translator, error) {
	switch cfg.Translate.Provider {
	case "google":
		t, err := translategoogle.New(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("create google translate client: %w", err)
		}
		p.closers = append(p.closers, t)
		return t, nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai translation")
		}
		return translateopenai.New(cfg.OpenAI.APIKey, cfg.Translate.Model, source), nil
	case "mock":
		return translatemock.New(), nil
	default:
		return nil, fmt.Errorf("unknown translate provider %q", cfg.Translate.Provider)
	}
}

func (p *providers) buildSynthesizer(ctx context.Context, cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Provider {
	case "google":
		tcfg := ttsgoogle.DefaultConfig()
		tcfg.Gender = cfg.VoiceGender
		s, err := ttsgoogle.New(ctx, tcfg)
		if err != nil {
			return nil, fmt.Errorf("create google text-to-speech client: %w", err)
		}
		p.closers = append(p.closers, s)
		return s, nil
	case "mock":
		return ttsmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", cfg.Provider)
	}
}

// fail releases clients created before err and returns err.
func (p *providers) fail(err error) error {
	p.close()
	return err
}

func (p *providers) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing provider client")
		}
	}
	p.closers = nil
}
