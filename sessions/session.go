package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/ggoodman/sessionmux/eventlog"
	"github.com/google/uuid"
)

// Session is one client's transport. It owns its session id, a stream in the
// event store created for it, and the uninitialized → active → closed state
// machine. A Session is safe for concurrent use; requests for the same
// session serialize on its internal lock for state transitions while stream
// delivery runs on the caller's goroutine.
type Session struct {
	id     string
	userID string
	store  eventlog.Store

	mu       sync.Mutex
	state    State
	streamID string
	reg      *Registry
}

// New builds an uninitialized session transport for the given principal. The
// session is not yet resolvable anywhere: it must be activated and published
// through Registry.Create before any other request can reference it.
func New(userID string, store eventlog.Store) *Session {
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		store:  store,
		state:  StateUninitialized,
	}
}

// ID returns the server-generated session id.
func (s *Session) ID() string { return s.id }

// UserID returns the authenticated principal the session belongs to, or ""
// when the transport runs without an authentication gate.
func (s *Session) UserID() string { return s.userID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StreamID returns the id of the session's event stream, or "" before
// activation.
func (s *Session) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// Activate commits the uninitialized → active transition, allocating the
// session's event stream. It must succeed before the session is published to
// the registry; a second activation is an error.
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateActive:
		return fmt.Errorf("session %s already active", s.id)
	case StateClosed:
		return ErrSessionClosed
	}

	streamID, err := s.store.CreateStream(ctx)
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}

	s.streamID = streamID
	s.state = StateActive
	return nil
}

// Push appends payload to the session's event stream and returns the
// assigned cursor. The cursor is returned only after the store mutation
// succeeded, so callers may acknowledge against it.
func (s *Session) Push(ctx context.Context, payload []byte) (string, error) {
	streamID, err := s.activeStream()
	if err != nil {
		return "", err
	}
	return s.store.Append(ctx, streamID, payload)
}

// Attach services a push-stream (re)open. A non-empty lastCursor replays
// every missed event first; an empty one starts live-only. Attach blocks
// until ctx is canceled, the session closes, or sink fails. Closing the
// session ends delivery without error.
func (s *Session) Attach(ctx context.Context, lastCursor string, sink eventlog.SinkFunc) error {
	streamID, err := s.activeStream()
	if err != nil {
		return err
	}
	return s.store.Subscribe(ctx, streamID, lastCursor, sink)
}

// Close commits the terminal transition. It is idempotent: closing a closed
// session is a no-op and never an error. Closing drops the event stream
// (ending any in-flight delivery) and consumes the registry's removal path,
// so the id stops resolving atomically with the transition.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	streamID := s.streamID
	s.streamID = ""
	reg := s.reg
	s.reg = nil
	s.mu.Unlock()

	// Deregister before releasing store resources so that no request can
	// resolve the session while teardown is in progress.
	if reg != nil {
		reg.Remove(s.id)
	}

	if streamID != "" {
		if err := s.store.DropStream(ctx, streamID); err != nil {
			return fmt.Errorf("drop stream %s: %w", streamID, err)
		}
	}
	return nil
}

func (s *Session) activeStream() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return "", ErrSessionClosed
	case StateUninitialized:
		return "", ErrSessionNotActive
	}
	return s.streamID, nil
}

// bind attaches the registry whose removal path the close transition feeds.
func (s *Session) bind(r *Registry) {
	s.mu.Lock()
	s.reg = r
	s.mu.Unlock()
}
