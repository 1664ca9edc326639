// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string   // debug, info, warn, error
	Format     string   // json, console, auto
	TimeFormat string   // RFC3339, Unix, etc.
	Output     *os.File // defaults to os.Stdout
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "auto",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	log.Logger = zerolog.New(output(cfg.Format, out)).
		With().
		Timestamp().
		Caller().
		Logger()
}

func output(format string, f *os.File) io.Writer {
	console := format == "console"
	if format == "auto" {
		console = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if console {
		return zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return f
}

// Logger returns the global service logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithCourse returns a logger with course context.
func WithCourse(courseId string) zerolog.Logger {
	return log.With().
		Str("courseId", courseId).
		Logger()
}

// WithLanguage returns a logger for one language of a course.
func WithLanguage(courseId, language string) zerolog.Logger {
	return log.With().
		Str("courseId", courseId).
		Str("language", language).
		Logger()
}

// WithStage returns a logger for one pipeline stage of a course.
func WithStage(courseId, stage string) zerolog.Logger {
	return log.With().
		Str("courseId", courseId).
		Str("stage", stage).
		Logger()
}

// WithSession returns a logger with live session context.
func WithSession(sessionId string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Logger()
}
