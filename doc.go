// Package sessionmux multiplexes many concurrent client conversations over a
// single HTTP route. The server mints a session identifier on the first
// initialization request, routes every subsequent request bearing that
// identifier to the session's in-memory transport, and lets a client reopen
// a dropped push stream and receive exactly the events it missed.
//
// The module is split along its collaboration boundaries:
//
//   - protocol: the JSON envelope exchanged on the route.
//   - eventlog: the resumable, cursor-ordered event store.
//   - sessions: the session state machine, registry, and shutdown coordinator.
//   - streaminghttp: the http.Handler tying it together.
//   - auth: the optional bearer-credential gate.
//
// Application content, meaning the operations a session can call, lives
// behind the Service interface defined here and is not part of the transport.
package sessionmux
