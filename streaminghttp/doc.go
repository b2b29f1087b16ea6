// Package streaminghttp multiplexes concurrent client sessions over a
// single HTTP route.
//
// A POST without a session header and with an initialization payload creates
// a session, returning its token in the Session-Id response header. Further
// POSTs carrying that header deliver calls (JSON response) and notifications
// (202, no body). A GET with the header opens the session's Server-Sent
// Events push stream; supplying Last-Event-ID resumes it after the last
// event the client observed. A DELETE with the header terminates the
// session.
//
// Authentication is optional. When an auth.Authenticator is supplied, every
// request must carry a valid bearer token and sessions are scoped to the
// authenticated principal; failures answer with RFC 6750 WWW-Authenticate
// challenges. With no authenticator the gate is absent entirely.
package streaminghttp
