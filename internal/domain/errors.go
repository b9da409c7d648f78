package domain

import "errors"

var (
	// ErrSessionNotFound is returned by the service layer when a session id
	// is not in the collection.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyMessage is returned when a chat message has no text.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrMessageBlocked is returned when the message policy rejects a message.
	ErrMessageBlocked = errors.New("message blocked by policy")
	// ErrInvalidRole is returned when a message carries an unknown role.
	ErrInvalidRole = errors.New("invalid message role")
	// ErrEmptyName is returned when a rename carries a blank name.
	ErrEmptyName = errors.New("session name is empty")
)
