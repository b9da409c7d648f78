package chatstore

import (
	"context"
	"errors"
	"time"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/domain"
)

// FallbackReply is returned by SendMessageToAI whenever the collaborator fails.
const FallbackReply = "Sorry, I couldn't reach the AI service. Please try again later."

// SendMessageToAI asks the collaborator to answer text in the context of the
// session's history. It never retries and never fails: any collaborator
// error is logged and replaced by FallbackReply.
func (s *Store) SendMessageToAI(ctx context.Context, sessionID, text string) string {
	reply, err := s.generateReply(ctx, sessionID, text)
	if err != nil {
		s.logger.Warn("ai reply failed, using fallback",
			"session_id", sessionID,
			"kind", err.Kind,
			"error", err,
		)
		return FallbackReply
	}
	return reply
}

// generateReply performs the collaborator call. The store lock is not held
// while waiting for the reply.
func (s *Store) generateReply(ctx context.Context, sessionID, text string) (string, *llm.CollaboratorError) {
	if s.llm == nil {
		ce := llm.NewCollaboratorError(llm.ErrorKindUnknown, errors.New("no llm client configured"))
		s.metrics.ReplyDone(0, string(ce.Kind))
		return "", ce
	}

	var history []domain.ChatMessage
	if sess, ok := s.GetSession(ctx, sessionID); ok {
		history = sess.Messages
	}
	req := &llm.ChatCompletionRequest{
		Model:    s.model,
		Messages: s.buildContext(history, text),
	}

	start := time.Now()
	resp, err := s.llm.CreateChatCompletion(ctx, req)
	if err != nil {
		ce := llm.Classify(err)
		s.metrics.ReplyDone(time.Since(start), string(ce.Kind))
		return "", ce
	}
	reply := resp.Content()
	if reply == "" {
		ce := llm.NewCollaboratorError(llm.ErrorKindMalformed, llm.ErrEmptyReply)
		s.metrics.ReplyDone(time.Since(start), string(ce.Kind))
		return "", ce
	}
	s.metrics.ReplyDone(time.Since(start), "")
	return reply, nil
}

// buildContext flattens the history into role-tagged turns followed by the
// new user message.
func (s *Store) buildContext(history []domain.ChatMessage, text string) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, len(history)+2)
	if s.systemPrompt != "" {
		msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: s.systemPrompt})
	}
	for _, m := range history {
		msgs = append(msgs, llm.ChatMessage{Role: string(m.Role), Content: m.Text})
	}
	return append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: text})
}
