package sessions_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/sessionmux/eventlog"
	"github.com/ggoodman/sessionmux/eventlog/memory"
	"github.com/ggoodman/sessionmux/sessions"
)

func mustCreate(t *testing.T, reg *sessions.Registry, store eventlog.Store, userID string) *sessions.Session {
	t.Helper()
	sess, err := reg.Create(context.Background(), func(ctx context.Context) (*sessions.Session, error) {
		s := sessions.New(userID, store)
		if err := s.Activate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	t.Run("NewSessionIsUninitialized", func(t *testing.T) {
		s := sessions.New("alice", memory.New())
		if s.State() != sessions.StateUninitialized {
			t.Fatalf("expected uninitialized, got %q", s.State())
		}
		if s.ID() == "" {
			t.Fatal("expected server-generated id")
		}
		if _, err := s.Push(context.Background(), []byte("x")); !errors.Is(err, sessions.ErrSessionNotActive) {
			t.Fatalf("expected ErrSessionNotActive on push, got %v", err)
		}
	})

	t.Run("ActivateAllocatesStream", func(t *testing.T) {
		s := sessions.New("alice", memory.New())
		if err := s.Activate(context.Background()); err != nil {
			t.Fatalf("activate failed: %v", err)
		}
		if s.State() != sessions.StateActive {
			t.Fatalf("expected active, got %q", s.State())
		}
		if s.StreamID() == "" {
			t.Fatal("expected a stream id after activation")
		}
		if err := s.Activate(context.Background()); err == nil {
			t.Fatal("expected second activation to fail")
		}
	})

	t.Run("PushReturnsCursor", func(t *testing.T) {
		s := sessions.New("alice", memory.New())
		if err := s.Activate(context.Background()); err != nil {
			t.Fatal(err)
		}
		cursor, err := s.Push(context.Background(), []byte("hello"))
		if err != nil {
			t.Fatalf("push failed: %v", err)
		}
		if cursor == "" {
			t.Fatal("expected a non-empty cursor")
		}
	})

	t.Run("CloseIsTerminalAndIdempotent", func(t *testing.T) {
		s := sessions.New("alice", memory.New())
		if err := s.Activate(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := s.Close(context.Background()); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if s.State() != sessions.StateClosed {
			t.Fatalf("expected closed, got %q", s.State())
		}
		if err := s.Close(context.Background()); err != nil {
			t.Fatalf("second close must be a no-op, got %v", err)
		}
		if _, err := s.Push(context.Background(), []byte("x")); !errors.Is(err, sessions.ErrSessionClosed) {
			t.Fatalf("expected ErrSessionClosed on push, got %v", err)
		}
		if err := s.Activate(context.Background()); !errors.Is(err, sessions.ErrSessionClosed) {
			t.Fatalf("closed session must not be revivable, got %v", err)
		}
	})

	t.Run("CloseEndsAttachedStreams", func(t *testing.T) {
		store := memory.New()
		s := sessions.New("alice", store)
		if err := s.Activate(context.Background()); err != nil {
			t.Fatal(err)
		}
		c1, err := s.Push(context.Background(), []byte("one"))
		if err != nil {
			t.Fatal(err)
		}

		done := make(chan error, 1)
		go func() {
			done <- s.Attach(context.Background(), c1, func(ctx context.Context, cursor string, payload []byte) error {
				return nil
			})
		}()

		// Give the attach a moment to reach the store before closing.
		time.Sleep(10 * time.Millisecond)
		if err := s.Close(context.Background()); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected clean stream end after close, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("attached stream did not end after close")
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("CreatePublishesAtomically", func(t *testing.T) {
		reg := sessions.NewRegistry()
		store := memory.New()

		sess := mustCreate(t, reg, store, "alice")
		got, err := reg.Lookup(sess.ID())
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if got != sess {
			t.Fatal("lookup returned a different session")
		}
	})

	t.Run("CreateRejectsNonActiveSessions", func(t *testing.T) {
		reg := sessions.NewRegistry()

		_, err := reg.Create(context.Background(), func(ctx context.Context) (*sessions.Session, error) {
			return sessions.New("alice", memory.New()), nil
		})
		if err == nil {
			t.Fatal("expected create to reject an uninitialized session")
		}
		if reg.Len() != 0 {
			t.Fatalf("failed create must leave no state, got %d sessions", reg.Len())
		}
	})

	t.Run("FailedInitLeavesNoState", func(t *testing.T) {
		reg := sessions.NewRegistry()

		boom := errors.New("init failed")
		_, err := reg.Create(context.Background(), func(ctx context.Context) (*sessions.Session, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected init error to surface, got %v", err)
		}
		if reg.Len() != 0 {
			t.Fatalf("failed create must leave no state, got %d sessions", reg.Len())
		}
	})

	t.Run("CloseRemovesFromRegistry", func(t *testing.T) {
		reg := sessions.NewRegistry()
		sess := mustCreate(t, reg, memory.New(), "alice")

		if err := sess.Close(context.Background()); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if _, err := reg.Lookup(sess.ID()); !errors.Is(err, sessions.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound after close, got %v", err)
		}
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		reg := sessions.NewRegistry()
		reg.Remove("never-existed")
		if reg.Len() != 0 {
			t.Fatalf("expected empty registry, got %d", reg.Len())
		}
	})

	t.Run("ConcurrentCreateAndLookup", func(t *testing.T) {
		reg := sessions.NewRegistry()
		store := memory.New()

		const n = 32
		ids := make(chan string, n)
		errs := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sess, err := reg.Create(context.Background(), func(ctx context.Context) (*sessions.Session, error) {
					s := sessions.New(fmt.Sprintf("user-%d", i), store)
					if err := s.Activate(ctx); err != nil {
						return nil, err
					}
					return s, nil
				})
				if err != nil {
					errs <- err
					return
				}
				ids <- sess.ID()
			}(i)
		}
		wg.Wait()
		close(ids)
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent create failed: %v", err)
		}

		// Every observed id must resolve: publication happens before the id
		// leaves the creating goroutine.
		for id := range ids {
			if _, err := reg.Lookup(id); err != nil {
				t.Fatalf("id %s did not resolve: %v", id, err)
			}
		}
		if reg.Len() != n {
			t.Fatalf("expected %d sessions, got %d", n, reg.Len())
		}
	})
}

// flakyStore fails DropStream for marked streams so shutdown error paths can
// be exercised.
type flakyStore struct {
	eventlog.Store
	mu       sync.Mutex
	failDrop map[string]bool
}

func (f *flakyStore) DropStream(ctx context.Context, streamID string) error {
	f.mu.Lock()
	fail := f.failDrop[streamID]
	f.mu.Unlock()
	if fail {
		return errors.New("drop rejected")
	}
	return f.Store.DropStream(ctx, streamID)
}

func TestCloseAll(t *testing.T) {
	t.Run("ClosesEverySession", func(t *testing.T) {
		reg := sessions.NewRegistry()
		store := memory.New()

		for i := 0; i < 5; i++ {
			mustCreate(t, reg, store, "alice")
		}

		if failed := reg.CloseAll(context.Background(), time.Second); failed != 0 {
			t.Fatalf("expected no failures, got %d", failed)
		}
		if reg.Len() != 0 {
			t.Fatalf("expected empty registry after CloseAll, got %d", reg.Len())
		}
	})

	t.Run("FailuresDoNotBlockRemainingSessions", func(t *testing.T) {
		reg := sessions.NewRegistry()
		store := &flakyStore{Store: memory.New(), failDrop: make(map[string]bool)}

		bad := mustCreate(t, reg, store, "alice")
		store.mu.Lock()
		store.failDrop[bad.StreamID()] = true
		store.mu.Unlock()

		good := mustCreate(t, reg, store, "bob")

		if failed := reg.CloseAll(context.Background(), time.Second); failed != 1 {
			t.Fatalf("expected exactly one failure, got %d", failed)
		}
		if good.State() != sessions.StateClosed {
			t.Fatal("healthy session was not closed")
		}
		// The failing session still left the registry: its terminal
		// transition committed even though resource teardown failed.
		if reg.Len() != 0 {
			t.Fatalf("expected empty registry, got %d", reg.Len())
		}
	})
}

func TestTokenSigner(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		signer, err := sessions.NewTokenSigner()
		if err != nil {
			t.Fatalf("failed to build signer: %v", err)
		}

		tok, err := signer.Mint("sess-1", "alice")
		if err != nil {
			t.Fatalf("mint failed: %v", err)
		}
		sid, sub, err := signer.Verify(tok)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if sid != "sess-1" || sub != "alice" {
			t.Fatalf("unexpected record: sid=%q sub=%q", sid, sub)
		}
	})

	t.Run("RejectsForeignTokens", func(t *testing.T) {
		a, err := sessions.NewTokenSigner()
		if err != nil {
			t.Fatal(err)
		}
		b, err := sessions.NewTokenSigner()
		if err != nil {
			t.Fatal(err)
		}

		tok, err := a.Mint("sess-1", "alice")
		if err != nil {
			t.Fatal(err)
		}
		if _, _, err := b.Verify(tok); err == nil {
			t.Fatal("expected verification to fail for a foreign token")
		}
	})

	t.Run("RejectsGarbage", func(t *testing.T) {
		signer, err := sessions.NewTokenSigner()
		if err != nil {
			t.Fatal(err)
		}
		for _, tok := range []string{"", "not-a-token", "a.b.c"} {
			if _, _, err := signer.Verify(tok); err == nil {
				t.Fatalf("expected verification to fail for %q", tok)
			}
		}
	})

	t.Run("SurvivesKeyRotation", func(t *testing.T) {
		signer, err := sessions.NewTokenSigner()
		if err != nil {
			t.Fatal(err)
		}
		tok, err := signer.Mint("sess-1", "alice")
		if err != nil {
			t.Fatal(err)
		}
		if err := signer.RotateKey(); err != nil {
			t.Fatalf("rotate failed: %v", err)
		}
		if _, _, err := signer.Verify(tok); err != nil {
			t.Fatalf("pre-rotation token stopped verifying: %v", err)
		}
		tok2, err := signer.Mint("sess-2", "bob")
		if err != nil {
			t.Fatal(err)
		}
		if sid, _, err := signer.Verify(tok2); err != nil || sid != "sess-2" {
			t.Fatalf("post-rotation token failed: sid=%q err=%v", sid, err)
		}
	})
}
