package sessionmux

import (
	"context"

	"github.com/ggoodman/sessionmux/protocol"
	"github.com/ggoodman/sessionmux/sessions"
)

// Service is the application-facing boundary of the transport. The transport
// resolves the session, classifies the request, and hands the payload over;
// everything the payload means belongs to the Service.
//
// Both methods run on the request goroutine. A returned error is reported as
// an internal failure; application-level failures should be expressed as an
// error Response instead.
type Service interface {
	// Initialize handles the session initialization payload. It runs after
	// the session transport is built but before the session is published, so
	// it must not assume the session id resolves yet. Its response rides on
	// the creation reply together with the minted session identifier.
	Initialize(ctx context.Context, sess *sessions.Session, req *protocol.Request) (*protocol.Response, error)

	// Handle processes a call on an active session. Notifications (requests
	// without a correlation id) are delivered here too; their return value's
	// Response is ignored.
	Handle(ctx context.Context, sess *sessions.Session, req *protocol.Request) (*protocol.Response, error)
}

// ServiceFunc adapts plain functions to the Service interface with a shared
// handler for initialization and calls.
type ServiceFunc func(ctx context.Context, sess *sessions.Session, req *protocol.Request) (*protocol.Response, error)

func (f ServiceFunc) Initialize(ctx context.Context, sess *sessions.Session, req *protocol.Request) (*protocol.Response, error) {
	return f(ctx, sess, req)
}

func (f ServiceFunc) Handle(ctx context.Context, sess *sessions.Session, req *protocol.Request) (*protocol.Response, error) {
	return f(ctx, sess, req)
}
