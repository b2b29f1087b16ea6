package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry is the process-wide mapping from session id to live transport.
// It is the one piece of shared mutable state in the system: insertion on
// creation and deletion on close are atomic with respect to concurrent
// lookups. A Registry is an explicitly owned instance passed to the router
// at construction; there is no package-level singleton.
type Registry struct {
	log *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for shutdown diagnostics.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		log:      slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InitFunc builds a fully initialized session: id allocated, event stream
// created, application initialization complete. The registry publishes the
// result as a single atomic step, so no lookup can observe a half-built
// session.
type InitFunc func(ctx context.Context) (*Session, error)

// Create runs initFn and, only on success, publishes the session. A lookup
// issued by any request that observed the returned session's id is
// guaranteed to resolve it; a lookup racing the creation resolves to
// ErrSessionNotFound rather than a partially initialized session.
func (r *Registry) Create(ctx context.Context, initFn InitFunc) (*Session, error) {
	sess, err := initFn(ctx)
	if err != nil {
		return nil, err
	}
	if sess.State() != StateActive {
		return nil, fmt.Errorf("init returned session %s in state %q", sess.ID(), sess.State())
	}

	r.mu.Lock()
	if _, exists := r.sessions[sess.ID()]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("session id collision: %s", sess.ID())
	}
	sess.bind(r)
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()

	return sess, nil
}

// Lookup resolves a session id to its live transport.
func (r *Registry) Lookup(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove deletes the mapping for id. It is idempotent: removing an unknown
// id is a no-op, never an error.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the live sessions at a point in time. Sessions created or
// closed afterwards are not reflected.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// CloseAll is the shutdown coordinator. It closes every session in a
// snapshot of the registry, bounding each close by perSession. A session
// that fails to close is recorded and does not block the remaining
// sessions; the returned count is for reporting only and must not fail the
// shutdown.
func (r *Registry) CloseAll(ctx context.Context, perSession time.Duration) (failed int) {
	snapshot := r.Snapshot()
	r.log.InfoContext(ctx, "shutdown.sessions.start", slog.Int("count", len(snapshot)))

	for _, sess := range snapshot {
		closeCtx := ctx
		cancel := context.CancelFunc(func() {})
		if perSession > 0 {
			closeCtx, cancel = context.WithTimeout(ctx, perSession)
		}
		if err := sess.Close(closeCtx); err != nil {
			failed++
			r.log.ErrorContext(ctx, "shutdown.session.close.fail",
				slog.String("session_id", sess.ID()),
				slog.String("err", err.Error()))
		} else {
			r.log.InfoContext(ctx, "shutdown.session.close.ok", slog.String("session_id", sess.ID()))
		}
		cancel()
	}

	r.log.InfoContext(ctx, "shutdown.sessions.done",
		slog.Int("count", len(snapshot)),
		slog.Int("failed", failed))
	return failed
}
