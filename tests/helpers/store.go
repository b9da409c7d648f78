// Package helpers builds test fixtures shared across packages.
package helpers

import (
	"testing"
	"time"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/chatstore"
	"github.com/xiaot623/studyclub/internal/repository"
)

// NewTestSQLiteBackend opens an in-memory SQLite backend closed with t.
func NewTestSQLiteBackend(t *testing.T) *repository.SQLiteBackend {
	t.Helper()

	b, err := repository.NewSQLiteBackend(":memory:", repository.DefaultKey)
	if err != nil {
		t.Fatalf("failed to create sqlite backend: %v", err)
	}

	t.Cleanup(func() {
		_ = b.Close()
	})

	return b
}

// NewTestStore returns a store over an in-memory SQLite backend. A nil
// client selects the mock collaborator.
func NewTestStore(t *testing.T, client llm.LLMClient, opts ...chatstore.Option) *chatstore.Store {
	t.Helper()

	if client == nil {
		client = llm.NewMockClient()
	}
	return chatstore.New(NewTestSQLiteBackend(t), client, opts...)
}

// Clock is a manually advanced time source.
type Clock struct {
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.UnixMilli(1_718_000_000_000)}
}

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
