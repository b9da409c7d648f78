package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicClient uses the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a client with SDK retries disabled.
func NewAnthropicClient(apiKey, model string, timeout time.Duration) *AnthropicClient {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, anthropicoption.WithRequestTimeout(timeout))
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// CreateChatCompletion sends the transcript as a Messages API request.
// System messages are lifted into the system prompt.
func (c *AnthropicClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := int64(defaultAnthropicMaxTokens)
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = int64(*req.MaxTokens)
	}

	system, msgs := buildAnthropicMessages(req.Messages)
	if len(msgs) == 0 {
		return nil, NewCollaboratorError(ErrorKindMalformed, errors.New("no user or assistant messages"))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(apiErr.StatusCode, err)
		}
		return nil, Classify(err)
	}
	if resp.StopReason == "refusal" {
		return nil, NewCollaboratorError(ErrorKindSafety, fmt.Errorf("message %s refused", resp.ID))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, NewCollaboratorError(ErrorKindMalformed, ErrEmptyReply)
	}

	prompt := int(resp.Usage.InputTokens)
	completion := int(resp.Usage.OutputTokens)
	return &ChatCompletionResponse{
		ID:    resp.ID,
		Model: string(resp.Model),
		Choices: []Choice{{
			Message:      &ChatMessage{Role: RoleAssistant, Content: text.String()},
			FinishReason: string(resp.StopReason),
		}},
		Usage: &Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// ListModels retrieves the first page of available models.
func (c *AnthropicClient) ListModels(ctx context.Context) ([]Model, error) {
	page, err := c.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(apiErr.StatusCode, err)
		}
		return nil, Classify(err)
	}
	models := make([]Model, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, Model{
			ID:      m.ID,
			Object:  "model",
			Created: m.CreatedAt.Unix(),
			OwnedBy: "anthropic",
		})
	}
	return models, nil
}

// buildAnthropicMessages splits out system text and merges consecutive
// same-role turns, since the Messages API requires alternating roles.
func buildAnthropicMessages(msgs []ChatMessage) (string, []anthropic.MessageParam) {
	var system []string
	type turn struct {
		role string
		text []string
	}
	var turns []turn
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].text = append(turns[n-1].text, m.Content)
			continue
		}
		turns = append(turns, turn{role: role, text: []string{m.Content}})
	}
	// The first turn must come from the user.
	for len(turns) > 0 && turns[0].role == RoleAssistant {
		turns = turns[1:]
	}

	params := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.text, "\n\n"))
		if t.role == RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(block))
		} else {
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	return strings.Join(system, "\n\n"), params
}
