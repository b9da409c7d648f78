// Package protocol defines the WebSocket message protocol between chat
// clients and the server.
package protocol

import "github.com/xiaot623/studyclub/internal/domain"

// Message types from client to server
const (
	TypeHello = "hello"
	TypeChat  = "chat"
)

// Message types from server to client
const (
	TypeHelloAck       = "hello_ack"
	TypeReply          = "reply"
	TypeSessionUpdated = "session_updated"
	TypeSessionDeleted = "session_deleted"
	TypeError          = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage binds the connection to a session. An empty session id
// asks the server to create one.
type HelloMessage struct {
	BaseMessage
	Name string `json:"name,omitempty"`
}

// HelloAckMessage is sent after a successful hello.
type HelloAckMessage struct {
	BaseMessage
	Session domain.ChatSession `json:"session"`
}

// ChatMessage is sent by the client to talk to the study assistant.
type ChatMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ReplyMessage answers a chat message on the connection that sent it.
type ReplyMessage struct {
	BaseMessage
	Reply   string             `json:"reply"`
	Session domain.ChatSession `json:"session"`
}

// SessionUpdatedMessage is broadcast to every connection bound to a session
// after it changes.
type SessionUpdatedMessage struct {
	BaseMessage
	Session domain.ChatSession `json:"session"`
}

// SessionDeletedMessage is broadcast when a bound session is deleted.
type SessionDeletedMessage struct {
	BaseMessage
}

// ErrorMessage is sent when a request fails.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeSessionNotFound = "session_not_found"
	ErrorCodeEmptyMessage    = "empty_message"
	ErrorCodeBlocked         = "message_blocked"
	ErrorCodeInternalError   = "internal_error"
)
