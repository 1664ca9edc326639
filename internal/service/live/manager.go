package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"course-localization-service/internal/observability/metrics"
)

// Manager is the registry of connected sessions.
type Manager struct {
	deps    Deps
	cfg     Config
	metrics *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(deps Deps, cfg Config) (*Manager, error) {
	switch {
	case deps.Provider == nil:
		return nil, errors.New("live: stt provider is required")
	case deps.Translator == nil:
		return nil, errors.New("live: translator is required")
	case deps.Languages == nil || deps.Languages.Len() == 0:
		return nil, errors.New("live: supported languages are required")
	}
	if cfg.RecognitionLanguage == "" {
		cfg.RecognitionLanguage = deps.Languages.Source()
	}
	if cfg.ResultBuffer < 0 {
		cfg.ResultBuffer = 0
	}
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		metrics:  metrics.DefaultMetrics,
		sessions: make(map[string]*Session),
	}, nil
}

// Open starts a fresh session for a newly connected client.
func (m *Manager) Open(emitter Emitter) *Session {
	s := newSession(uuid.NewString(), m.deps, m.cfg, emitter)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionStart()
	log.Info().Str("sessionId", s.ID()).Int("active", active).Msg("Live session opened")
	return s
}

// Close removes and tears down a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Close()
	m.metrics.RecordSessionEnd(time.Since(s.startedAt).Seconds())
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Active returns the number of open sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session, giving up when ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, id := range ids {
			m.Close(id)
		}
	}()

	select {
	case <-done:
		log.Info().Int("sessions", len(ids)).Msg("Live sessions closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
