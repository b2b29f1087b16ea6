// Package sessions implements the session lifecycle core: a per-client
// transport state machine, a process-wide registry mapping session ids to
// live transports, and the shutdown coordinator that drains the registry on
// process termination.
//
// A session is created exactly once, on the first request that carries no
// session id and identifies itself as initialization. It becomes visible to
// lookups only after the registry's publish step completes, and once closed
// it is never revived: a later request bearing the same id is invalid.
package sessions

import "errors"

// State is the lifecycle state of a session transport.
type State string

const (
	// StateUninitialized is the state of a freshly built transport that has
	// not yet committed its initialization.
	StateUninitialized State = "uninitialized"
	// StateActive is the state of a session accepting calls and streams.
	StateActive State = "active"
	// StateClosed is terminal. Any further request bearing the session id is
	// rejected, never silently re-created.
	StateClosed State = "closed"
)

var (
	// ErrSessionNotFound indicates the session id does not resolve to a live
	// transport. Unknown and destroyed ids are indistinguishable.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed indicates an operation against a closed transport.
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionNotActive indicates a call or stream operation reached a
	// transport before its initialization committed.
	ErrSessionNotActive = errors.New("session not active")
)
