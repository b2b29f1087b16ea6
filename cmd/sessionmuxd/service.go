package main

import (
	"context"
	"encoding/json"

	sessionmux "github.com/ggoodman/sessionmux"
	"github.com/ggoodman/sessionmux/protocol"
	"github.com/ggoodman/sessionmux/sessions"
)

// devService is the built-in development service the daemon hosts. It is
// enough to exercise the transport end to end: echo round-trips call params
// and publish pushes them onto the session's event stream.
type devService struct{}

var _ sessionmux.Service = devService{}

func (devService) Initialize(ctx context.Context, sess *sessions.Session, req *protocol.Request) (*protocol.Response, error) {
	return protocol.NewResultResponse(req.ID, map[string]any{
		"service": "sessionmuxd",
		"methods": []string{"echo", "publish"},
	})
}

func (devService) Handle(ctx context.Context, sess *sessions.Session, req *protocol.Request) (*protocol.Response, error) {
	switch req.Method {
	case "echo":
		return &protocol.Response{
			Version: protocol.Version,
			Result:  orEmptyObject(req.Params),
			ID:      req.ID,
		}, nil
	case "publish":
		cursor, err := sess.Push(ctx, orEmptyObject(req.Params))
		if err != nil {
			return nil, err
		}
		return protocol.NewResultResponse(req.ID, map[string]string{"cursor": cursor})
	}
	return protocol.NewErrorResponse(req.ID, protocol.ErrorCodeMethodNotFound, "unknown method: "+req.Method, nil), nil
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
