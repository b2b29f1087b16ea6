// Package memory provides a volatile, in-process implementation of
// eventlog.Store. It is suitable for single-node deployments: all state is
// local and is lost on process exit.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/ggoodman/sessionmux/eventlog"
	"github.com/google/uuid"
)

// Store implements eventlog.Store backed by per-stream in-memory logs.
// Entries persist for the lifetime of the stream; there is no eviction.
type Store struct {
	mu      sync.RWMutex
	streams map[string]*stream
}

type stream struct {
	mu      sync.Mutex
	events  []event
	wake    chan struct{}
	dropped bool
}

// event cursors are 1-based positions in the log: events[i] carries cursor
// i+1. The log is never compacted, so the index doubles as the cursor.
type event struct {
	payload []byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{streams: make(map[string]*stream)}
}

func (s *Store) CreateStream(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.streams[id] = &stream{wake: make(chan struct{})}
	s.mu.Unlock()

	return id, nil
}

func (s *Store) Append(ctx context.Context, streamID string, payload []byte) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	st, err := s.lookup(streamID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.dropped {
		return "", eventlog.ErrStreamClosed
	}

	st.events = append(st.events, event{payload: append([]byte(nil), payload...)})
	cursor := uint64(len(st.events))

	// Wake every waiting subscriber; they resume scanning the log from
	// their own position, so there is nothing to enqueue per subscriber.
	close(st.wake)
	st.wake = make(chan struct{})

	return formatCursor(cursor), nil
}

func (s *Store) Subscribe(ctx context.Context, streamID string, lastCursor string, sink eventlog.SinkFunc) error {
	st, err := s.lookup(streamID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	var next uint64
	if lastCursor == "" {
		// Live-only: no backlog delivery.
		next = uint64(len(st.events))
	} else {
		n, perr := strconv.ParseUint(lastCursor, 10, 64)
		if perr != nil || n > uint64(len(st.events)) {
			// The cursor was never issued for this stream; resuming from it
			// cannot be done without risking gaps.
			st.mu.Unlock()
			return eventlog.ErrCursorNotFound
		}
		next = n
	}
	st.mu.Unlock()

	for {
		st.mu.Lock()
		if next < uint64(len(st.events)) {
			ev := st.events[next]
			st.mu.Unlock()
			if err := sink(ctx, formatCursor(next+1), ev.payload); err != nil {
				return err
			}
			next++
			continue
		}
		if st.dropped {
			st.mu.Unlock()
			return nil
		}
		wake := st.wake
		st.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (s *Store) DropStream(ctx context.Context, streamID string) error {
	s.mu.Lock()
	st, ok := s.streams[streamID]
	if ok {
		delete(s.streams, streamID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	if !st.dropped {
		st.dropped = true
		close(st.wake)
	}
	st.mu.Unlock()
	return nil
}

func (s *Store) lookup(streamID string) (*stream, error) {
	s.mu.RLock()
	st, ok := s.streams[streamID]
	s.mu.RUnlock()
	if !ok {
		return nil, eventlog.ErrStreamNotFound
	}
	return st, nil
}

func formatCursor(c uint64) string {
	return strconv.FormatUint(c, 10)
}

var _ eventlog.Store = (*Store)(nil)
