package chatstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/studyclub/internal/domain"
)

// CreateSession prepends a new empty session. An empty name becomes
// "Session <n+1>" where n is the number of existing sessions.
func (s *Store) CreateSession(ctx context.Context, name string) domain.ChatSession {
	now := s.now()
	name = strings.TrimSpace(name)

	var created domain.ChatSession
	s.transact(ctx, func(sessions []domain.ChatSession) ([]domain.ChatSession, bool) {
		if name == "" {
			name = fmt.Sprintf("Session %d", len(sessions)+1)
		}
		id := newSessionID(now)
		for indexOf(sessions, id) >= 0 {
			id = newSessionID(now)
		}
		created = domain.ChatSession{
			ID:        id,
			Name:      name,
			Messages:  []domain.ChatMessage{},
			CreatedAt: now.UnixMilli(),
			UpdatedAt: now.UnixMilli(),
		}
		return append([]domain.ChatSession{created}, sessions...), true
	})

	s.metrics.SessionCreated()
	s.logger.Debug("chat session created", "session_id", created.ID, "name", created.Name)
	return created.Clone()
}

// DeleteSession removes the session. Unknown ids are ignored.
func (s *Store) DeleteSession(ctx context.Context, id string) {
	s.transact(ctx, func(sessions []domain.ChatSession) ([]domain.ChatSession, bool) {
		i := indexOf(sessions, id)
		if i < 0 {
			return sessions, false
		}
		return append(sessions[:i:i], sessions[i+1:]...), true
	})
}

// RenameSession sets the session name. Unknown ids are ignored.
func (s *Store) RenameSession(ctx context.Context, id, name string) {
	now := s.now()
	s.transact(ctx, func(sessions []domain.ChatSession) ([]domain.ChatSession, bool) {
		i := indexOf(sessions, id)
		if i < 0 {
			return sessions, false
		}
		sessions[i].Name = name
		touch(&sessions[i], now)
		return sessions, true
	})
}

// GetSession returns the pruned session with the given id.
func (s *Store) GetSession(ctx context.Context, id string) (domain.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load(ctx)
	i := indexOf(sessions, id)
	if i < 0 {
		return domain.ChatSession{}, false
	}
	return sessions[i].Clone(), true
}

// AddMessage appends msg to the session and returns the updated session.
func (s *Store) AddMessage(ctx context.Context, sessionID string, msg domain.ChatMessage) (domain.ChatSession, bool) {
	now := s.now()
	var updated domain.ChatSession
	found := false
	s.transact(ctx, func(sessions []domain.ChatSession) ([]domain.ChatSession, bool) {
		i := indexOf(sessions, sessionID)
		if i < 0 {
			return sessions, false
		}
		sessions[i].Messages = append(sessions[i].Messages, msg)
		touch(&sessions[i], now)
		updated = sessions[i].Clone()
		found = true
		return sessions, true
	})
	if found {
		s.metrics.MessageAppended(string(msg.Role))
	}
	return updated, found
}

// ClearSession empties the session's messages. Unknown ids are ignored.
func (s *Store) ClearSession(ctx context.Context, sessionID string) {
	now := s.now()
	s.transact(ctx, func(sessions []domain.ChatSession) ([]domain.ChatSession, bool) {
		i := indexOf(sessions, sessionID)
		if i < 0 {
			return sessions, false
		}
		sessions[i].Messages = []domain.ChatMessage{}
		touch(&sessions[i], now)
		return sessions, true
	})
}

func indexOf(sessions []domain.ChatSession, id string) int {
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// touch refreshes UpdatedAt without ever moving it backwards.
func touch(sess *domain.ChatSession, now time.Time) {
	if ms := now.UnixMilli(); ms > sess.UpdatedAt {
		sess.UpdatedAt = ms
	}
}

// newSessionID combines the creation time with random entropy.
func newSessionID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
