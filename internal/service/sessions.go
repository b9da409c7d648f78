package service

import (
	"context"
	"strings"

	"github.com/xiaot623/studyclub/internal/domain"
)

// ListSessions returns every live session, newest first.
func (s *Service) ListSessions(ctx context.Context) []domain.ChatSession {
	return s.store.LoadSessions(ctx)
}

func (s *Service) CreateSession(ctx context.Context, name string) domain.ChatSession {
	return s.store.CreateSession(ctx, name)
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (domain.ChatSession, error) {
	sess, ok := s.store.GetSession(ctx, sessionID)
	if !ok {
		return domain.ChatSession{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

// RenameSession trims and applies a new name.
func (s *Service) RenameSession(ctx context.Context, sessionID, name string) (domain.ChatSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ChatSession{}, domain.ErrEmptyName
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return domain.ChatSession{}, err
	}
	s.store.RenameSession(ctx, sessionID, name)
	return s.refreshed(ctx, sessionID)
}

// DeleteSession is idempotent.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) {
	s.store.DeleteSession(ctx, sessionID)
	s.notifier.SessionDeleted(sessionID)
}

func (s *Service) ClearSession(ctx context.Context, sessionID string) (domain.ChatSession, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return domain.ChatSession{}, err
	}
	s.store.ClearSession(ctx, sessionID)
	return s.refreshed(ctx, sessionID)
}

// AppendMessage stores a message without contacting the collaborator.
func (s *Service) AppendMessage(ctx context.Context, sessionID string, role domain.Role, text string) (domain.ChatSession, error) {
	if !role.Valid() {
		return domain.ChatSession{}, domain.ErrInvalidRole
	}
	if strings.TrimSpace(text) == "" {
		return domain.ChatSession{}, domain.ErrEmptyMessage
	}
	current, found := s.store.GetSession(ctx, sessionID)
	if !found {
		return domain.ChatSession{}, domain.ErrSessionNotFound
	}
	msg := domain.NewChatMessage(role, text, afterLast(current, s.store.Now()))
	sess, ok := s.store.AddMessage(ctx, sessionID, msg)
	if !ok {
		return domain.ChatSession{}, domain.ErrSessionNotFound
	}
	s.notifier.SessionUpdated(sess)
	return sess, nil
}

func (s *Service) Messages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// Prune drops expired messages and returns how many sessions remain.
func (s *Service) Prune(ctx context.Context) int {
	return len(s.store.PruneExpired(ctx))
}

// refreshed reloads a session after a mutation and notifies subscribers.
// The session may have been deleted concurrently.
func (s *Service) refreshed(ctx context.Context, sessionID string) (domain.ChatSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	s.notifier.SessionUpdated(sess)
	return sess, nil
}
