// Package eventlog defines the resumable event store used to replay missed
// push-stream events after a client reconnects. A store keeps an append-only,
// per-stream ordered log of opaque payloads, each assigned a monotonically
// increasing cursor. The store is a pure data component: it has no awareness
// of sessions, transports, or the network.
package eventlog

import (
	"context"
	"errors"
)

var (
	// ErrStreamNotFound indicates the stream id is unknown to the store.
	// Callers must treat this as "cannot resume" and start a fresh stream.
	ErrStreamNotFound = errors.New("eventlog: stream not found")

	// ErrCursorNotFound indicates the supplied cursor was never issued for
	// the stream. Resuming from it would risk gaps, so the store refuses.
	ErrCursorNotFound = errors.New("eventlog: cursor not found")

	// ErrStreamClosed indicates the stream was dropped and can no longer
	// accept appends.
	ErrStreamClosed = errors.New("eventlog: stream closed")
)

// SinkFunc receives one event. Delivery stops if it returns an error.
// Implementations must not retain payload beyond the call.
type SinkFunc func(ctx context.Context, cursor string, payload []byte) error

// Store is the resumable event store contract.
//
// Cursors are strictly increasing within a stream, start from 1, and are
// never reused. Subscribing with lastCursor "" starts live-only; any other
// value replays every stored event with a cursor strictly greater than it,
// in order, then continues with live events. Replay never delivers an event
// twice and never skips one, even when appends race the replay.
type Store interface {
	// CreateStream allocates a new, empty stream and returns its id.
	CreateStream(ctx context.Context) (streamID string, err error)

	// Append stores payload on the stream and returns the assigned cursor.
	// The cursor is returned only after the event is durably recorded in the
	// store, so the caller may acknowledge against it.
	Append(ctx context.Context, streamID string, payload []byte) (cursor string, err error)

	// Subscribe delivers the replay backlog (if lastCursor is non-empty)
	// followed by live events to sink, in order. It blocks until ctx is
	// canceled, the stream is dropped, or sink returns an error. A dropped
	// stream ends the subscription without error.
	Subscribe(ctx context.Context, streamID string, lastCursor string, sink SinkFunc) error

	// DropStream removes the stream and cancels its subscribers. Dropping an
	// unknown stream is a no-op.
	DropStream(ctx context.Context, streamID string) error
}
