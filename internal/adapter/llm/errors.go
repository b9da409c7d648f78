package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies collaborator failures.
type ErrorKind string

const (
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindQuota     ErrorKind = "quota"
	ErrorKindSafety    ErrorKind = "safety"
	ErrorKindMalformed ErrorKind = "malformed"
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindUnknown   ErrorKind = "unknown"
)

// CollaboratorError is a classified failure from a text-completion service.
type CollaboratorError struct {
	Kind ErrorKind
	err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.err
}

// NewCollaboratorError wraps err with the given kind.
func NewCollaboratorError(kind ErrorKind, err error) *CollaboratorError {
	return &CollaboratorError{Kind: kind, err: err}
}

// Classify returns err as a *CollaboratorError, classifying it if it is not
// one already. A nil err yields nil.
func Classify(err error) *CollaboratorError {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewCollaboratorError(ErrorKindNetwork, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewCollaboratorError(ErrorKindNetwork, err)
	}
	return NewCollaboratorError(ErrorKindUnknown, err)
}

// classifyStatus maps an HTTP status returned by a provider API.
func classifyStatus(status int, err error) *CollaboratorError {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusPaymentRequired:
		return NewCollaboratorError(ErrorKindQuota, err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewCollaboratorError(ErrorKindAuth, err)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return NewCollaboratorError(ErrorKindMalformed, err)
	case status >= 500:
		return NewCollaboratorError(ErrorKindNetwork, err)
	default:
		return NewCollaboratorError(ErrorKindUnknown, err)
	}
}

// ErrEmptyReply is wrapped when a provider answers without any text.
var ErrEmptyReply = errors.New("empty reply")
