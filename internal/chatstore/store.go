// Package chatstore implements the chat session store: a durable collection
// of named conversation threads whose messages expire after a fixed TTL.
//
// Every mutation reads the whole collection from the backend, applies the
// change and writes the whole collection back. Storage failures are logged
// and never returned; callers always get a usable view.
package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/metrics"
	"github.com/xiaot623/studyclub/internal/repository"
)

// DefaultTTL is how long a message survives before pruning.
const DefaultTTL = 24 * time.Hour

// Store owns the session collection and its persistence.
type Store struct {
	// mu serializes read-modify-write cycles within this process. Writers in
	// other processes sharing the backend still race, last full write wins.
	mu sync.Mutex

	backend repository.Backend
	llm     llm.LLMClient

	ttl          time.Duration
	now          func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
	systemPrompt string
	model        string
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the message time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithSystemPrompt prepends a system message to every reply request.
func WithSystemPrompt(prompt string) Option {
	return func(s *Store) {
		s.systemPrompt = prompt
	}
}

// WithModel pins the model name sent with reply requests.
func WithModel(model string) Option {
	return func(s *Store) {
		s.model = model
	}
}

// New creates a store persisting into backend and asking client for replies.
func New(backend repository.Backend, client llm.LLMClient, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		llm:     client,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured message time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// LoadSessions returns the pruned collection. An absent or unreadable slot
// yields an empty collection.
func (s *Store) LoadSessions(ctx context.Context) []domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// SaveSessions replaces the persisted collection. Write failures are logged.
func (s *Store) SaveSessions(ctx context.Context, sessions []domain.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(ctx, sessions)
}

// PruneExpired forces a load, which drops expired messages, and returns the
// resulting collection.
func (s *Store) PruneExpired(ctx context.Context) []domain.ChatSession {
	return s.LoadSessions(ctx)
}

// transact is the only mutation primitive: load, apply fn, and persist when
// fn reports a change. It returns the collection as left by fn. When the
// backend read fails the change is not persisted, so stored sessions are
// never replaced by a view built from an empty fallback.
func (s *Store) transact(ctx context.Context, fn func([]domain.ChatSession) ([]domain.ChatSession, bool)) []domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, readOK := s.read(ctx)
	next, changed := fn(sessions)
	if changed && readOK {
		s.save(ctx, next)
	} else if changed {
		s.logger.Warn("skipping chat sessions write after failed read")
		s.metrics.PersistenceError("skip_write")
	}
	return next
}

// load must be called with mu held.
func (s *Store) load(ctx context.Context) []domain.ChatSession {
	sessions, _ := s.read(ctx)
	return sessions
}

// read loads and prunes the collection. It reports false only when the
// backend itself could not be read; an absent or undecodable slot counts
// as readable and yields an empty collection.
func (s *Store) read(ctx context.Context) ([]domain.ChatSession, bool) {
	raw, err := s.backend.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return []domain.ChatSession{}, true
	}
	if err != nil {
		s.logger.Warn("failed to read chat sessions", "error", err)
		s.metrics.PersistenceError("load")
		return []domain.ChatSession{}, false
	}

	var sessions []domain.ChatSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		s.logger.Warn("failed to decode chat sessions", "error", err, "bytes", len(raw))
		s.metrics.PersistenceError("decode")
		return []domain.ChatSession{}, true
	}

	pruned, removed := prune(sessions, s.now(), s.ttl)
	if removed > 0 {
		s.logger.Debug("pruned expired chat messages", "removed", removed)
		s.metrics.MessagesPruned(removed)
		s.save(ctx, pruned)
	}
	return pruned, true
}

// save must be called with mu held.
func (s *Store) save(ctx context.Context, sessions []domain.ChatSession) {
	if sessions == nil {
		sessions = []domain.ChatSession{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		s.logger.Error("failed to encode chat sessions", "error", err)
		s.metrics.PersistenceError("encode")
		return
	}
	if err := s.backend.Set(ctx, data); err != nil {
		s.logger.Error("failed to write chat sessions", "error", err)
		s.metrics.PersistenceError("save")
	}
}

// prune drops messages whose age is at least ttl. Sessions are kept even
// when all of their messages expire. It returns how many messages it removed.
func prune(sessions []domain.ChatSession, now time.Time, ttl time.Duration) ([]domain.ChatSession, int) {
	nowMs := now.UnixMilli()
	ttlMs := ttl.Milliseconds()

	out := make([]domain.ChatSession, 0, len(sessions))
	removed := 0
	for _, sess := range sessions {
		kept := make([]domain.ChatMessage, 0, len(sess.Messages))
		for _, msg := range sess.Messages {
			if nowMs-msg.Timestamp < ttlMs {
				kept = append(kept, msg)
			}
		}
		removed += len(sess.Messages) - len(kept)
		sess.Messages = kept
		out = append(out, sess)
	}
	return out, removed
}
