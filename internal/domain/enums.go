// Package domain defines the core domain models for the chat session service.
package domain

// Role tags the speaker of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Tag returns the short suffix used in message ids.
func (r Role) Tag() string {
	switch r {
	case RoleUser:
		return "u"
	case RoleAssistant:
		return "a"
	case RoleSystem:
		return "s"
	default:
		return "x"
	}
}

// PolicyDecision is the outcome of evaluating the message policy.
type PolicyDecision string

const (
	PolicyAllow PolicyDecision = "allow"
	PolicyBlock PolicyDecision = "block"
)
