package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the supported envelope protocol version.
const Version = "1"

// MethodInitialize is the method by which a payload identifies itself as a
// session initialization request. It is the only method the transport layer
// interprets; every other method is opaque application traffic.
const MethodInitialize = "session.initialize"

// Message is the raw JSON representation of an envelope.
type Message []byte

// AnyMessage is a generic envelope (request, notification, or response).
type AnyMessage struct {
	Version string          `json:"v"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      *RequestID      `json:"id,omitempty"`
}

// Request represents a request (with an ID) or notification (without ID).
type Request struct {
	Version string          `json:"v"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *RequestID      `json:"id,omitempty"`
}

// IsInitialize reports whether the request payload identifies itself as a
// session initialization request.
func (r *Request) IsInitialize() bool {
	return r != nil && r.Method == MethodInitialize
}

// Response represents a response envelope. The correlation id is always
// emitted: protocol-level rejections carry an explicit null id.
type Response struct {
	Version string          `json:"v"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      *RequestID      `json:"id"`
}

// NewResultResponse builds a successful response envelope.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		Version: Version,
		Result:  resultBytes,
		ID:      id,
	}, nil
}

// NewErrorResponse builds an error response with the given code. A nil id
// yields the null correlation id used for protocol-level rejections.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		Version: Version,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// Error is an envelope error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// UnmarshalJSON implements custom JSON unmarshaling for AnyMessage.
// It enforces envelope semantics and validates message structure.
func (m *AnyMessage) UnmarshalJSON(data []byte) error {
	type rawMessage struct {
		Version string          `json:"v"`
		Method  string          `json:"method,omitempty"`
		Params  json.RawMessage `json:"params,omitempty"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *Error          `json:"error,omitempty"`
		ID      *RequestID      `json:"id,omitempty"`
	}

	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if raw.Version != Version {
		return fmt.Errorf("invalid protocol version: expected %q, got %q", Version, raw.Version)
	}

	hasMethod := raw.Method != ""
	hasResult := len(raw.Result) > 0
	hasError := raw.Error != nil

	if hasMethod {
		if hasResult || hasError {
			return fmt.Errorf("request message cannot have result or error fields")
		}
	} else {
		if hasResult && hasError {
			return fmt.Errorf("response message cannot have both result and error fields")
		}
		if !hasResult && !hasError {
			return fmt.Errorf("response message must have either result or error field")
		}
	}

	m.Version = raw.Version
	m.Method = raw.Method
	m.Params = raw.Params
	m.Result = raw.Result
	m.Error = raw.Error
	m.ID = raw.ID

	return nil
}

// Type returns "request", "notification", or "response".
func (m *AnyMessage) Type() string {
	if m.Method != "" {
		if m.ID == nil {
			return "notification"
		}
		return "request"
	}
	return "response"
}

// AsRequest returns the message as a Request if it is a request or
// notification message, otherwise nil.
func (m *AnyMessage) AsRequest() *Request {
	if m.Method == "" {
		return nil
	}

	return &Request{
		Version: m.Version,
		Method:  m.Method,
		Params:  m.Params,
		ID:      m.ID,
	}
}

// AsResponse returns the message as a Response if it is a response message,
// otherwise nil.
func (m *AnyMessage) AsResponse() *Response {
	if m.Method != "" {
		return nil
	}

	return &Response{
		Version: m.Version,
		Result:  m.Result,
		Error:   m.Error,
		ID:      m.ID,
	}
}
