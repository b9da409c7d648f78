// Package repository provides the durable single-slot substrates the chat
// session store persists its collection into.
package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the slot has never been written.
var ErrNotFound = errors.New("slot not found")

// Backend is a single named slot supporting atomic whole-value get and set.
type Backend interface {
	// Get returns the current value of the slot, or ErrNotFound.
	Get(ctx context.Context) ([]byte, error)
	// Set replaces the value of the slot.
	Set(ctx context.Context, value []byte) error
	// Close releases the underlying resources.
	Close() error
}

// DefaultKey is the slot name used when none is configured.
const DefaultKey = "studyclub24.chat.sessions"
