package domain

import (
	"fmt"
	"time"
)

// ChatMessage is a single immutable message in a session.
// Timestamp is milliseconds since the Unix epoch.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// NewChatMessage builds a message stamped at now. The id is the timestamp
// suffixed with the role tag, so a user message and its assistant reply
// created in the same millisecond do not collide.
func NewChatMessage(role Role, text string, now time.Time) ChatMessage {
	ts := now.UnixMilli()
	return ChatMessage{
		ID:        fmt.Sprintf("%d-%s", ts, role.Tag()),
		Role:      role,
		Text:      text,
		Timestamp: ts,
	}
}

// ChatSession is a named conversation thread.
type ChatSession struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
}

// Clone returns a copy that shares no message storage with s.
func (s ChatSession) Clone() ChatSession {
	out := s
	out.Messages = make([]ChatMessage, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

// State reports the lifecycle state of a live session.
func (s ChatSession) State() SessionState {
	if len(s.Messages) == 0 {
		return SessionStateEmpty
	}
	return SessionStateActive
}

// SessionState is the informal lifecycle of a session. Deleted sessions are
// simply absent from the collection.
type SessionState string

const (
	SessionStateEmpty  SessionState = "EMPTY"
	SessionStateActive SessionState = "ACTIVE"
)
