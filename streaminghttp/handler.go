package streaminghttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	sessionmux "github.com/ggoodman/sessionmux"
	"github.com/ggoodman/sessionmux/auth"
	"github.com/ggoodman/sessionmux/eventlog"
	"github.com/ggoodman/sessionmux/internal/logctx"
	"github.com/ggoodman/sessionmux/protocol"
	"github.com/ggoodman/sessionmux/sessions"
	"github.com/google/uuid"
)

var (
	_ http.Handler = (*StreamingHTTPHandler)(nil)
)

var (
	jsonMediaType         = contenttype.NewMediaType("application/json")
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

const (
	// Use canonical header names for clarity; Go matches headers case-insensitively.
	sessionIDHeader       = "Session-Id"
	lastEventIDHeader     = "Last-Event-ID"
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"
)

// writeProtocolError emits a structured error envelope with a null
// correlation id for rejections that happen before any part of a response
// has been sent. Once streaming has begun a fatal condition terminates the
// stream instead; callers must not reach for this helper after framing.
func writeProtocolError(w http.ResponseWriter, status int, code protocol.ErrorCode, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(protocol.NewErrorResponse(nil, code, msg, nil))
}

// Option configures the StreamingHTTPHandler.
type Option func(*newConfig)

type newConfig struct {
	logger *slog.Logger
	realm  string
	signer *sessions.TokenSigner
}

// WithLogger sets the slog logger used as the handler's diagnostics sink.
// If not provided, slog.Default() is used.
func WithLogger(h *slog.Logger) Option {
	return func(c *newConfig) { c.logger = h }
}

// WithRealm sets the HTTP authentication realm advertised in WWW-Authenticate
// challenges. If empty (default), the realm attribute is omitted entirely per
// RFC 6750 (it is optional) keeping challenges concise.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithTokenSigner supplies the signer used to mint and verify session
// tokens. By default each handler generates a fresh in-memory key, which is
// correct for a single-process deployment: tokens die with the process, as
// do the sessions they name.
func WithTokenSigner(s *sessions.TokenSigner) Option {
	return func(c *newConfig) { c.signer = s }
}

// buildBearerChallenge builds a standardized Bearer challenge header value.
// Format:
//
//	Bearer realm="<realm>", error="...", error_description="..."
//
// Realm is omitted if empty. Go map iteration is randomized, so the slice is
// built in the key order we care about explicitly.
func buildBearerChallenge(realm string, params map[string]string) string {
	pieces := make([]string, 0, 1+len(params))
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	if params != nil {
		if v, ok := params["error"]; ok {
			pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(v)))
		}
		if v, ok := params["error_description"]; ok {
			pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(v)))
		}
		if v, ok := params["scope"]; ok {
			pieces = append(pieces, fmt.Sprintf(`scope="%s"`, esc(v)))
		}
		for k, v := range params {
			if k == "error" || k == "error_description" || k == "scope" {
				continue
			}
			pieces = append(pieces, fmt.Sprintf(`%s="%s"`, k, esc(v)))
		}
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}

// StreamingHTTPHandler multiplexes session conversations over a single HTTP
// route: POST initializes sessions and carries calls, GET (re)opens the push
// stream, DELETE terminates the session.
type StreamingHTTPHandler struct {
	mux   *http.ServeMux
	log   *slog.Logger
	realm string

	authn    auth.Authenticator // nil means the gate is disabled
	registry *sessions.Registry
	store    eventlog.Store
	signer   *sessions.TokenSigner
	svc      sessionmux.Service
}

// lockedWriteFlusher wraps an io.Writer + http.Flusher with a mutex and an optional context.
// It serializes concurrent writes/flushes and avoids writing after ctx is canceled.
type lockedWriteFlusher struct {
	io.Writer
	http.Flusher
	mu  sync.Mutex
	ctx context.Context
}

func (l *lockedWriteFlusher) Write(p []byte) (int, error) {
	if l.ctx != nil && l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Re-check after acquiring the lock to minimize races with cancellation
	if l.ctx != nil && l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	return l.Writer.Write(p)
}

func (l *lockedWriteFlusher) Flush() {
	if l.ctx != nil && l.ctx.Err() != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil && l.ctx.Err() != nil {
		return
	}
	l.Flusher.Flush()
}

// New constructs a StreamingHTTPHandler serving the session route at
// endpointPath.
//
// Required:
//   - endpointPath: URL path of the session endpoint (e.g. "/sessions")
//   - registry: the process's session registry; ownership stays with the
//     caller, whose shutdown path drains it
//   - store: the resumable event store backing session streams
//   - svc: the application Service handling initialization and calls
//
// An authenticator of nil disables the authentication gate entirely; no
// credential is demanded and sessions carry an empty principal.
func New(endpointPath string, registry *sessions.Registry, store eventlog.Store, svc sessionmux.Service, authenticator auth.Authenticator, opts ...Option) (*StreamingHTTPHandler, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if store == nil {
		return nil, fmt.Errorf("event store is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("service is required")
	}
	if endpointPath == "" || !strings.HasPrefix(endpointPath, "/") {
		return nil, fmt.Errorf("endpoint path must be rooted, got %q", endpointPath)
	}

	cfg := &newConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.signer == nil {
		signer, err := sessions.NewTokenSigner()
		if err != nil {
			return nil, fmt.Errorf("create token signer: %w", err)
		}
		cfg.signer = signer
	}

	loggerWithContextHandler := slog.New(logctx.Handler{Handler: cfg.logger.Handler()})

	h := &StreamingHTTPHandler{
		log:      loggerWithContextHandler,
		realm:    cfg.realm,
		authn:    authenticator,
		registry: registry,
		store:    store,
		signer:   cfg.signer,
		svc:      svc,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("POST %s", endpointPath), h.handlePost)
	mux.HandleFunc(fmt.Sprintf("GET %s", endpointPath), h.handleGet)
	mux.HandleFunc(fmt.Sprintf("DELETE %s", endpointPath), h.handleDelete)
	h.mux = mux
	return h, nil
}

func (h *StreamingHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// handlePost carries session initialization and ongoing calls. A request
// without a session header must identify itself as initialization; anything
// else without a header is invalid and creates no state.
func (h *StreamingHTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeProtocolError(w, http.StatusUnsupportedMediaType, protocol.ErrorCodeInvalidRequest, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	userID, ok := h.checkAuthentication(ctx, r, w)
	if !ok {
		h.log.InfoContext(ctx, "auth.fail")
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeParseError, "invalid JSON body")
		h.log.WarnContext(ctx, "json.decode.fail", slog.String("err", err.Error()))
		return
	}
	if len(raw) > 0 && raw[0] == '[' {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeInvalidRequest, "batch arrays are forbidden on this transport")
		h.log.WarnContext(ctx, "envelope.batch.forbidden")
		return
	}

	var msg protocol.AnyMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeInvalidRequest, "invalid envelope: "+err.Error())
		h.log.WarnContext(ctx, "envelope.invalid", slog.String("err", err.Error()))
		return
	}

	sessToken := r.Header.Get(sessionIDHeader)
	if sessToken == "" {
		h.handleInitialize(ctx, w, r, userID, &msg, start)
		return
	}

	sess, ok := h.resolveSession(ctx, w, sessToken, userID)
	if !ok {
		return
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID: sess.ID(),
		UserID:    sess.UserID(),
		State:     sess.State(),
	})
	h.log.InfoContext(ctx, "session.resolve.ok")

	req := msg.AsRequest()
	if req == nil {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeInvalidRequest, "expected a request or notification envelope")
		h.log.WarnContext(ctx, "envelope.unrecognized")
		return
	}

	if req.IsInitialize() {
		writeProtocolError(w, http.StatusConflict, protocol.ErrorCodeInvalidRequest, "session already initialized")
		h.log.WarnContext(ctx, "session.initialize.redundant")
		return
	}

	if req.ID.IsNil() {
		if _, err := h.svc.Handle(ctx, sess, req); err != nil {
			writeProtocolError(w, http.StatusInternalServerError, protocol.ErrorCodeInternalError, "internal server error")
			h.log.ErrorContext(ctx, "notification.inbound.fail", slog.String("err", err.Error()))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		h.log.InfoContext(ctx, "notification.inbound.ok", slog.Duration("dur", time.Since(start)))
		return
	}

	res, err := h.svc.Handle(ctx, sess, req)
	if err != nil {
		h.log.ErrorContext(ctx, "call.inbound.fail", slog.String("err", err.Error()))
		res = protocol.NewErrorResponse(req.ID, protocol.ErrorCodeInternalError, "internal server error", nil)
	}

	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.log.ErrorContext(ctx, "call.response.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "call.inbound.ok", slog.Duration("dur", time.Since(start)))
}

// handleInitialize commits the uninitialized → active transition for a new
// session. The session id is allocated and the application initialization
// completes before the registry publish, so no concurrent request can
// observe a half-built session; the minted token only leaves the process in
// the response header once publication is done.
func (h *StreamingHTTPHandler) handleInitialize(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string, msg *protocol.AnyMessage, start time.Time) {
	req := msg.AsRequest()
	if req == nil || !req.IsInitialize() {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeInvalidRequest, "expected initialization request")
		h.log.InfoContext(ctx, "session.initialize.invalid")
		return
	}

	var initRes *protocol.Response
	sess, err := h.registry.Create(ctx, func(ctx context.Context) (*sessions.Session, error) {
		s := sessions.New(userID, h.store)
		if err := s.Activate(ctx); err != nil {
			return nil, err
		}
		res, err := h.svc.Initialize(ctx, s, req)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		initRes = res
		return s, nil
	})
	if err != nil {
		writeProtocolError(w, http.StatusInternalServerError, protocol.ErrorCodeInternalError, "failed to initialize session")
		h.log.ErrorContext(ctx, "session.initialize.fail", slog.String("err", err.Error()))
		return
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID: sess.ID(),
		UserID:    userID,
		State:     sess.State(),
	})

	token, err := h.signer.Mint(sess.ID(), userID)
	if err != nil {
		_ = sess.Close(ctx)
		writeProtocolError(w, http.StatusInternalServerError, protocol.ErrorCodeInternalError, "failed to mint session token")
		h.log.ErrorContext(ctx, "session.token.mint.fail", slog.String("err", err.Error()))
		return
	}

	if initRes == nil {
		initRes = &protocol.Response{Version: protocol.Version, Result: json.RawMessage(`{}`), ID: req.ID}
	}

	w.Header().Set(sessionIDHeader, token)
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(initRes); err != nil {
		h.log.ErrorContext(ctx, "session.initialize.write.fail", slog.String("err", err.Error()))
	}
	h.log.InfoContext(ctx, "session.initialize.ok", slog.Duration("dur", time.Since(start)))
}

// handleGet (re)opens the session's push stream. A Last-Event-ID header
// resumes delivery after that cursor; without one the stream is live-only.
func (h *StreamingHTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		h.log.WarnContext(ctx, "http.get.unsupported_media_type")
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		return
	}
	wf := &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx}

	userID, ok := h.checkAuthentication(ctx, r, w)
	if !ok {
		h.log.InfoContext(ctx, "auth.fail")
		return
	}

	sessToken := r.Header.Get(sessionIDHeader)
	if sessToken == "" {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeInvalidRequest, "missing session id header")
		h.log.WarnContext(ctx, "session.id.missing")
		return
	}

	sess, ok := h.resolveSession(ctx, w, sessToken, userID)
	if !ok {
		return
	}

	lastEventID := r.Header.Get(lastEventIDHeader)

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID: sess.ID(),
		UserID:    sess.UserID(),
		State:     sess.State(),
	})
	ctx = logctx.WithStreamData(ctx, &logctx.StreamData{
		StreamID:   sess.StreamID(),
		LastCursor: lastEventID,
	})

	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	wf.Flush()

	h.log.InfoContext(ctx, "sse.stream.start")

	err := sess.Attach(ctx, lastEventID, func(cbCtx context.Context, cursor string, payload []byte) error {
		if err := writeSSEEvent(wf, cursor, payload); err != nil {
			h.log.ErrorContext(cbCtx, "sse.write.fail", slog.String("err", err.Error()))
			return err
		}
		h.log.InfoContext(cbCtx, "sse.event.deliver")
		return nil
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		// Clean end: session closed or client went away.
		h.log.InfoContext(ctx, "sse.stream.end", slog.Duration("dur", time.Since(start)))
	case errors.Is(err, eventlog.ErrCursorNotFound), errors.Is(err, eventlog.ErrStreamNotFound), errors.Is(err, sessions.ErrSessionClosed):
		// Framing is committed, so the resume failure terminates the stream;
		// the client's remedy is a fresh stream without a cursor.
		h.log.WarnContext(ctx, "sse.resume.fail", slog.String("err", err.Error()))
	default:
		h.log.ErrorContext(ctx, "sse.stream.fail", slog.String("err", err.Error()))
	}
}

// handleDelete terminates an existing session. Termination requires a
// resolvable session id; a closed or unknown id is never revived.
func (h *StreamingHTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.delete.start")

	userID, ok := h.checkAuthentication(ctx, r, w)
	if !ok {
		h.log.InfoContext(ctx, "auth.fail")
		return
	}

	sessToken := r.Header.Get(sessionIDHeader)
	if sessToken == "" {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeInvalidRequest, "missing session id header")
		h.log.WarnContext(ctx, "delete.missing_session_id")
		return
	}

	sess, ok := h.resolveSession(ctx, w, sessToken, userID)
	if !ok {
		return
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID: sess.ID(),
		UserID:    sess.UserID(),
		State:     sess.State(),
	})

	if err := sess.Close(ctx); err != nil {
		writeProtocolError(w, http.StatusInternalServerError, protocol.ErrorCodeInternalError, "failed to close session")
		h.log.ErrorContext(ctx, "session.close.fail", slog.String("err", err.Error()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
	h.log.InfoContext(ctx, "session.close.ok", slog.Duration("dur", time.Since(start)))
}

// resolveSession verifies the session token and resolves it to a live
// transport. Classification failures are written to w; the boolean reports
// whether a session was produced. A token minted for a different principal
// resolves like an unknown session to avoid confirming its existence.
func (h *StreamingHTTPHandler) resolveSession(ctx context.Context, w http.ResponseWriter, sessToken string, userID string) (*sessions.Session, bool) {
	sid, sub, err := h.signer.Verify(sessToken)
	if err != nil {
		writeProtocolError(w, http.StatusBadRequest, protocol.ErrorCodeInvalidRequest, "invalid session id")
		h.log.WarnContext(ctx, "session.token.invalid", slog.String("err", err.Error()))
		return nil, false
	}

	if h.authn != nil && sub != userID {
		writeProtocolError(w, http.StatusNotFound, protocol.ErrorCodeInvalidRequest, "session not found")
		h.log.WarnContext(ctx, "session.token.principal.mismatch")
		return nil, false
	}

	sess, err := h.registry.Lookup(sid)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			writeProtocolError(w, http.StatusNotFound, protocol.ErrorCodeInvalidRequest, "session not found")
			h.log.InfoContext(ctx, "session.resolve.miss")
			return nil, false
		}
		writeProtocolError(w, http.StatusInternalServerError, protocol.ErrorCodeInternalError, "failed to resolve session")
		h.log.ErrorContext(ctx, "session.resolve.fail", slog.String("err", err.Error()))
		return nil, false
	}

	return sess, true
}

// checkAuthentication applies the optional authentication gate. It returns
// the principal's user id and whether the request may proceed; on failure
// the response (including the Bearer challenge) has already been written.
// With the gate disabled every request proceeds with an empty principal.
func (h *StreamingHTTPHandler) checkAuthentication(ctx context.Context, r *http.Request, w http.ResponseWriter) (string, bool) {
	if h.authn == nil {
		return "", true
	}

	authHeader := r.Header.Get(authorizationHeader)

	if authHeader == "" {
		// RFC 6750 §3.1: if the request lacks any authentication information
		// the resource server SHOULD NOT include an error code. Provide only
		// a bare Bearer challenge with realm.
		h.log.InfoContext(ctx, "auth.check.missing", slog.String("err", "no authorization header"))
		w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, nil))
		w.WriteHeader(http.StatusUnauthorized)
		return "", false
	}

	// Malformed header or wrong scheme -> invalid_request 400 per RFC 6750 §3.1.
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) <= len(bearerPrefix) {
		h.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "malformed bearer authorization header"))
		w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, map[string]string{"error": "invalid_request", "error_description": "malformed bearer authorization header"}))
		w.WriteHeader(http.StatusBadRequest)
		return "", false
	}
	tok := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if tok == "" {
		h.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "empty bearer token"))
		w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, map[string]string{"error": "invalid_request", "error_description": "empty bearer token"}))
		w.WriteHeader(http.StatusBadRequest)
		return "", false
	}

	userInfo, err := h.authn.CheckAuthentication(ctx, tok)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			// Authentication attempted but token invalid -> 401 invalid_token
			h.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, map[string]string{"error": "invalid_token", "error_description": err.Error()}))
			w.WriteHeader(http.StatusUnauthorized)
			return "", false
		}

		if errors.Is(err, auth.ErrInsufficientScope) {
			// Auth succeeded but insufficient privileges -> 403 insufficient_scope
			h.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, map[string]string{"error": "insufficient_scope", "error_description": err.Error()}))
			w.WriteHeader(http.StatusForbidden)
			return "", false
		}

		h.log.InfoContext(ctx, "auth.check.err", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return "", false
	}

	h.log.InfoContext(ctx, "auth.ok", slog.String("user_id", userInfo.UserID()))
	return userInfo.UserID(), true
}

// writeSSEEvent writes one Server-Sent Event: the cursor as the event id and
// the payload as the data field, followed by a flush.
func writeSSEEvent(wf *lockedWriteFlusher, cursor string, payload []byte) error {
	if cursor != "" {
		if _, err := fmt.Fprintf(wf, "id: %s\n", cursor); err != nil {
			return fmt.Errorf("failed to write SSE event ID: %w", err)
		}
	}
	if _, err := wf.Write([]byte("data: ")); err != nil {
		return fmt.Errorf("failed to write SSE data prefix: %w", err)
	}
	if _, err := wf.Write(payload); err != nil {
		return fmt.Errorf("failed to write SSE payload: %w", err)
	}
	if _, err := wf.Write([]byte("\n\n")); err != nil {
		return fmt.Errorf("failed to write SSE frame terminator: %w", err)
	}
	wf.Flush()
	return nil
}
