// Package ws serves the live session protocol over WebSocket. Every message
// is a JSON envelope {"event": "...", "data": {...}}.
package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"course-localization-service/internal/models"
	"course-localization-service/internal/schema"
	"course-localization-service/internal/service/live"
)

// Config holds connection limits.
type Config struct {
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns limits suited to one-second float frames.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 4 << 20,
	}
}

// Server upgrades HTTP requests and runs one live session per connection.
type Server struct {
	manager   *live.Manager
	validator *schema.Validator
	cfg       Config
	upgrader  websocket.Upgrader
}

// New creates a WebSocket server.
func New(manager *live.Manager, validator *schema.Validator, cfg Config) *Server {
	return &Server{
		manager:   manager,
		validator: validator,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 64 << 10,
			CheckOrigin: func(r *http.Request) bool {
				return true // playback clients are served from other origins
			},
		},
	}
}

// conn serializes writes to one WebSocket and implements live.Emitter.
type conn struct {
	ws           *websocket.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
}

func (c *conn) Emit(msg models.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteJSON(msg)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer wsConn.Close()
	if s.cfg.MaxMessageSize > 0 {
		wsConn.SetReadLimit(s.cfg.MaxMessageSize)
	}

	c := &conn{ws: wsConn, writeTimeout: s.cfg.WriteTimeout}
	session := s.manager.Open(c)
	defer s.manager.Close(session.ID())

	logger := log.With().Str("sessionId", session.ID()).Str("remote", r.RemoteAddr).Logger()
	logger.Info().Msg("Live client connected")

	for {
		_, payload, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Debug().Err(err).Msg("Live client read error")
			}
			logger.Info().Msg("Live client disconnected")
			return
		}
		s.dispatch(r, session, c, payload, logger)
	}
}

func (s *Server) dispatch(r *http.Request, session *live.Session, c *conn, payload []byte, logger zerolog.Logger) {
	var msg models.ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		replyError(c, fmt.Errorf("malformed message: %w", err))
		return
	}

	switch msg.Event {
	case models.EventProcessAudioFile:
		var req models.ProcessAudioFileRequest
		if err := decode(msg.Data, &req); err != nil {
			replyError(c, err)
			return
		}
		if err := s.validator.Validate(req); err != nil {
			replyError(c, err)
			return
		}
		if err := session.ProcessAudioFile(req); err != nil {
			logger.Debug().Err(err).Msg("processAudioFile rejected")
		}

	case models.EventAudioStream:
		var req models.AudioStreamRequest
		if err := decode(msg.Data, &req); err != nil {
			replyError(c, err)
			return
		}
		if err := s.validator.Validate(req); err != nil {
			replyError(c, err)
			return
		}
		if err := session.PushAudio(r.Context(), req); err != nil {
			logger.Debug().Err(err).Msg("audioStream frame rejected")
		}

	default:
		replyError(c, fmt.Errorf("unknown event %q", msg.Event))
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: data is required", schema.ErrInvalid)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalid, err)
	}
	return nil
}

func replyError(c *conn, err error) {
	_ = c.Emit(models.ServerMessage{
		Event: models.EventError,
		Data:  models.ErrorMessage{Message: err.Error()},
	})
}
