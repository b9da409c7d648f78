package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const (
	mockModelID    = "mock-tutor"
	mockQuoteLimit = 100
)

// MockClient is a deterministic LLMClient for local runs and tests. It
// quotes the newest user turn back.
type MockClient struct {
	calls atomic.Int64
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateChatCompletion answers with a canned reply quoting the last user turn.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewCollaboratorError(ErrorKindNetwork, err)
	}
	n := m.calls.Add(1)

	reply := mockReply(lastUserTurn(req.Messages))
	prompt := approxTokens(req.Messages)
	completion := len(strings.Fields(reply))

	return &ChatCompletionResponse{
		ID:    fmt.Sprintf("mock-%d", n),
		Model: mockModelID,
		Choices: []Choice{{
			Message:      &ChatMessage{Role: RoleAssistant, Content: reply},
			FinishReason: "stop",
		}},
		Usage: &Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// ListModels returns the single mock model.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{{ID: mockModelID, Object: "model", Created: time.Now().Unix(), OwnedBy: "mock"}}, nil
}

// Calls reports how many completions were served.
func (m *MockClient) Calls() int64 {
	return m.calls.Load()
}

func lastUserTurn(msgs []ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func mockReply(question string) string {
	if question == "" {
		return "[MOCK] This is a mock response from the study assistant."
	}
	if r := []rune(question); len(r) > mockQuoteLimit {
		question = string(r[:mockQuoteLimit]) + "..."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", question)
}

// approxTokens counts whitespace-separated words across the conversation.
func approxTokens(msgs []ChatMessage) int {
	total := 0
	for _, msg := range msgs {
		total += len(strings.Fields(msg.Content))
	}
	return total
}
