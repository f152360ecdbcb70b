// Package ws serves the chat protocol over WebSocket.
package ws

import "github.com/AbhigyanVE/ScrumMaster/internal/domain"

// Message types from client to server
const (
	TypeHello = "hello"
	TypeQuery = "query"
	TypeReset = "reset"
)

// Message types from server to client
const (
	TypeHelloAck = "hello_ack"
	TypeResponse = "response"
	TypeResetAck = "reset_ack"
	TypeError    = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrorCodeSessionRequired = "SESSION_REQUIRED"
	ErrorCodeInternal        = "INTERNAL_ERROR"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage binds the connection to a session. An empty session id asks
// the server to mint one.
type HelloMessage struct {
	BaseMessage
}

// QueryMessage asks a question in the bound session.
type QueryMessage struct {
	BaseMessage
	Query string `json:"query"`
}

// ResponseMessage carries the answer to a query.
type ResponseMessage struct {
	BaseMessage
	Response *domain.Response `json:"response"`
}

// ErrorMessage reports a protocol or server failure.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
