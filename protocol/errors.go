package protocol

// ErrorCode is an envelope error code. The numbering follows the JSON-RPC 2.0
// convention so that generic tooling renders these sensibly.
type ErrorCode int

const (
	// ErrorCodeParseError indicates invalid JSON was received by the server.
	ErrorCodeParseError ErrorCode = -32700
	// ErrorCodeInvalidRequest indicates the payload is not a valid request,
	// including requests bearing a missing, unknown, or closed session id.
	ErrorCodeInvalidRequest ErrorCode = -32600
	// ErrorCodeMethodNotFound indicates the method is not available.
	ErrorCodeMethodNotFound ErrorCode = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams ErrorCode = -32602
	// ErrorCodeInternalError indicates an unexpected internal failure.
	ErrorCodeInternalError ErrorCode = -32603
)
