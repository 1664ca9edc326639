// Package app is the composition root: it selects adapters from
// configuration and wires the pipeline, live sessions and triggers.
package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"course-localization-service/internal/config"
	"course-localization-service/internal/events"
	"course-localization-service/internal/language"
	"course-localization-service/internal/observability/logging"
	"course-localization-service/internal/schema"
	"course-localization-service/internal/service/live"
	"course-localization-service/internal/service/media"
	"course-localization-service/internal/service/pipeline"
	"course-localization-service/internal/storage"
)

const serviceName = "course-localization-service"

// trigger is a long-running upload consumer.
type trigger interface {
	Run(ctx context.Context) error
	Close() error
}

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Languages    *language.Set
	Store        storage.Store
	Validator    *schema.Validator
	Orchestrator *pipeline.Orchestrator
	Live         *live.Manager
	Publisher    *events.Publisher
	Dispatcher   *events.Dispatcher

	providers *providers
	triggers  []trigger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs the Application from cfg. Trigger consumers are created
// but not started; see Start.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	a := &Application{Cfg: cfg}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	langs, err := cfg.LanguageSet()
	if err != nil {
		return nil, err
	}
	a.Languages = langs
	a.Validator = schema.New(langs, cfg.Live.MaxFrameSamples)

	p, err := buildProviders(ctx, cfg, langs.Source())
	if err != nil {
		return nil, err
	}
	a.providers = p
	a.Store = p.store

	a.Publisher = events.New(&events.Config{
		Enabled:           cfg.Kafka.Enabled,
		Brokers:           cfg.Kafka.Brokers,
		TopicLocalization: cfg.Kafka.TopicLocalization,
		TopicSummary:      cfg.Kafka.TopicSummary,
		Principal:         cfg.Kafka.Principal,
	})

	a.Orchestrator, err = pipeline.New(pipeline.Deps{
		Store:       p.store,
		Extractor:   media.NewFFmpeg(cfg.Pipeline.FFmpegPath),
		Recognizer:  p.recognizer,
		Translator:  p.translator,
		Synthesizer: p.synth,
		Languages:   langs,
		Notifier:    a.Publisher,
	}, pipeline.Config{
		WorkDir:             cfg.Pipeline.WorkDir,
		MaxParallel:         cfg.Pipeline.MaxParallel,
		RecognitionLanguage: cfg.STT.LanguageCode,
		LockPerCourse:       cfg.Pipeline.LockPerCourse,
		DetectLanguage:      cfg.Pipeline.DetectLanguage,
	})
	if err != nil {
		a.release()
		return nil, err
	}

	a.Live, err = live.NewManager(live.Deps{
		Provider:    p.streaming,
		Translator:  p.translator,
		Synthesizer: p.synth,
		Localizer:   a.Orchestrator,
		Languages:   langs,
	}, live.Config{
		RecognitionLanguage: cfg.STT.LanguageCode,
		MaxFrameSamples:     cfg.Live.MaxFrameSamples,
		ResultBuffer:        cfg.Live.ResultBuffer,
		TranslateInterim:    cfg.Live.TranslateInterim,
		Synthesize:          cfg.Live.Synthesize,
	})
	if err != nil {
		a.release()
		return nil, err
	}

	a.Dispatcher = events.NewDispatcher(a.Orchestrator, a.Validator, cfg.Pipeline.MaxRuns)

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		a.triggers = append(a.triggers, events.NewKafkaTrigger(events.KafkaTriggerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.TopicUploads,
			GroupID: cfg.Kafka.GroupID,
		}, a.Dispatcher))
	}
	if cfg.RabbitMQ.Enabled {
		t, err := events.NewRabbitMQTrigger(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, a.Dispatcher)
		if err != nil {
			a.release()
			return nil, err
		}
		a.triggers = append(a.triggers, t)
	}

	appLogger.Info().
		Str("source", langs.Source()).
		Strs("languages", langs.Codes()).
		Str("storage", cfg.Storage.Provider).
		Str("stt", cfg.STT.Provider).
		Str("translate", cfg.Translate.Provider).
		Str("tts", cfg.TTS.Provider).
		Int("triggers", len(a.triggers)).
		Msg("Course localization service application created")
	return a, nil
}

// setupLogger configures zerolog for the service. ZEROLOG_LOG_LEVEL
// overrides the configured level and ENV=dev forces console output.
func (a *Application) setupLogger() {
	lcfg := logging.DefaultConfig()
	lcfg.Level = a.Cfg.Observability.LogLevel
	lcfg.Format = a.Cfg.Observability.LogFormat
	lcfg.Output = a.Cfg.Observability.LogOutput
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(envLevel)); err == nil {
			lcfg.Level = strings.ToLower(envLevel)
		}
	}
	if os.Getenv("ENV") == "dev" {
		lcfg.Format = "console"
	}
	logging.Init(lcfg)

	log.Logger = log.With().Str("service", serviceName).Logger()
	a.Logger = logging.WithComponent("application")

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start launches the upload trigger consumers.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	for _, t := range a.triggers {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := t.Run(ctx); err != nil {
				startLogger.Error().Err(err).Msg("Upload trigger stopped")
			}
		}()
	}

	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Course localization service starting")
	return nil
}

// Ready reports whether the service can take traffic.
func (a *Application) Ready(ctx context.Context) error {
	if a.cancel == nil {
		return errors.New("application not started")
	}
	return nil
}

// Shutdown stops the triggers, closes live sessions and waits for in-flight
// batch runs until ctx expires, then releases provider clients.
func (a *Application) Shutdown(ctx context.Context) {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("Course localization service shutting down")

	if a.cancel != nil {
		a.cancel()
	}
	for _, t := range a.triggers {
		if err := t.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Error closing upload trigger")
		}
	}
	a.wg.Wait()

	if err := a.Live.Shutdown(ctx); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Live sessions did not close cleanly")
	}

	runs := make(chan struct{})
	go func() {
		a.Dispatcher.Wait()
		close(runs)
	}()
	select {
	case <-runs:
	case <-ctx.Done():
		shutdownLogger.Warn().Msg("Shutdown timed out with localization runs in flight")
	}

	a.release()
}

func (a *Application) release() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.providers != nil {
		a.providers.close()
	}
}
