package live

import (
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle state of a live session.
type State int

const (
	// StateConnected - client connected, no recognition stream yet.
	StateConnected State = iota
	// StateStreamOpen - recognition stream established, frames are forwarded.
	StateStreamOpen
	// StateClosed - client disconnected or the stream failed. Terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateStreamOpen:
		return "STREAM_OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid transitions and session failures.
var (
	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionStream     = errors.New("recognition stream failed")
	ErrStreamAlreadyOpen = errors.New("recognition stream already open")
)

// Lifecycle is the state machine of one session. Thread-safe.
//
// State transitions:
//
//	CONNECTED ──OpenStream()──→ STREAM_OPEN
//	    │                           │
//	    └──────── Close() ──────────┴──→ CLOSED
//
// There is no way back from CLOSED: a reconnect is a new session.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionId string
	state     State
	reason    error
}

// NewLifecycle creates a lifecycle in CONNECTED state.
func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{sessionId: sessionId, state: StateConnected}
}

// SessionId returns the session ID.
func (l *Lifecycle) SessionId() string {
	return l.sessionId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsClosed returns true once the session reached CLOSED.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateClosed
}

// CanOpenStream returns true if a stream may be established now.
func (l *Lifecycle) CanOpenStream() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateConnected
}

// OpenStream transitions CONNECTED to STREAM_OPEN.
func (l *Lifecycle) OpenStream() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateConnected:
		l.state = StateStreamOpen
		return nil
	case StateStreamOpen:
		return ErrStreamAlreadyOpen
	case StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close transitions to CLOSED from any state, recording reason (nil for a
// client disconnect). Returns false if the session was already closed, in
// which case the first reason is kept.
func (l *Lifecycle) Close(reason error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		return false
	}
	l.state = StateClosed
	l.reason = reason
	return true
}

// Reason returns why the session closed.
func (l *Lifecycle) Reason() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reason
}
