package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/policy"
)

// ChatResult is the outcome of one chat exchange.
type ChatResult struct {
	Reply   string             `json:"reply"`
	Session domain.ChatSession `json:"session"`
}

// Chat sends text to the collaborator and records the exchange. The reply is
// requested with the history as it stood before text; then the user message
// and the reply are appended in that order with strictly increasing
// timestamps. Collaborator failures produce the fallback reply, not an error.
func (s *Service) Chat(ctx context.Context, sessionID, text string) (ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResult{}, domain.ErrEmptyMessage
	}

	sess, found := s.store.GetSession(ctx, sessionID)
	if err := s.checkPolicy(ctx, sessionID, text, len(sess.Messages)); err != nil {
		return ChatResult{}, err
	}
	if !found {
		return ChatResult{}, domain.ErrSessionNotFound
	}

	sentAt := afterLast(sess, s.store.Now())
	reply := s.store.SendMessageToAI(ctx, sessionID, text)
	repliedAt := s.store.Now()
	if repliedAt.UnixMilli() <= sentAt.UnixMilli() {
		repliedAt = time.UnixMilli(sentAt.UnixMilli() + 1)
	}

	// The exchange is recorded even if the caller went away mid-reply.
	writeCtx := context.WithoutCancel(ctx)
	if _, ok := s.store.AddMessage(writeCtx, sessionID, domain.NewChatMessage(domain.RoleUser, text, sentAt)); !ok {
		return ChatResult{}, domain.ErrSessionNotFound
	}
	updated, ok := s.store.AddMessage(writeCtx, sessionID, domain.NewChatMessage(domain.RoleAssistant, reply, repliedAt))
	if !ok {
		return ChatResult{}, domain.ErrSessionNotFound
	}

	s.notifier.SessionUpdated(updated)
	return ChatResult{Reply: reply, Session: updated}, nil
}

// afterLast returns now, or one millisecond past the session's last message
// when the clock has not moved beyond it.
func afterLast(sess domain.ChatSession, now time.Time) time.Time {
	if n := len(sess.Messages); n > 0 {
		if last := sess.Messages[n-1].Timestamp; now.UnixMilli() <= last {
			return time.UnixMilli(last + 1)
		}
	}
	return now
}

func (s *Service) checkPolicy(ctx context.Context, sessionID, text string, historyCount int) error {
	if s.policyEngine == nil {
		return nil
	}
	result, err := s.policyEngine.Evaluate(ctx, policy.Input{
		SessionID:    sessionID,
		Text:         text,
		Length:       utf8.RuneCountInString(text),
		HistoryCount: historyCount,
	})
	if err != nil {
		return fmt.Errorf("evaluate message policy: %w", err)
	}
	if !result.Allowed() {
		s.logger.Info("chat message blocked", "session_id", sessionID, "reason", result.Reason)
		return fmt.Errorf("%w: %s", domain.ErrMessageBlocked, result.Reason)
	}
	return nil
}
