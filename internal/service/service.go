// Package service implements the chat use cases on top of the session store.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/chatstore"
	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/policy"
)

// DefaultPruneInterval is how often the sweeper drops expired messages.
const DefaultPruneInterval = time.Hour

// Notifier receives session change notifications.
type Notifier interface {
	SessionUpdated(session domain.ChatSession)
	SessionDeleted(sessionID string)
}

type nopNotifier struct{}

func (nopNotifier) SessionUpdated(domain.ChatSession) {}
func (nopNotifier) SessionDeleted(string)             {}

type Service struct {
	store         *chatstore.Store
	llmClient     llm.LLMClient
	policyEngine  *policy.Engine
	notifier      Notifier
	logger        *slog.Logger
	pruneInterval time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the receiver of session change notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPruneInterval sets the sweeper period.
func WithPruneInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pruneInterval = d
		}
	}
}

// New creates a Service. A nil policy engine allows every message.
func New(store *chatstore.Store, llmClient llm.LLMClient, policyEngine *policy.Engine, opts ...Option) *Service {
	s := &Service{
		store:         store,
		llmClient:     llmClient,
		policyEngine:  policyEngine,
		notifier:      nopNotifier{},
		logger:        slog.Default(),
		pruneInterval: DefaultPruneInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier replaces the notifier after construction.
func (s *Service) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// ListModels returns the models offered by the text-completion collaborator.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	if s.llmClient == nil {
		return []llm.Model{}, nil
	}
	return s.llmClient.ListModels(ctx)
}
