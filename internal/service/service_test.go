package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/chatstore"
	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/policy"
	"github.com/xiaot623/studyclub/tests/helpers"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updated []domain.ChatSession
	deleted []string
}

func (n *recordingNotifier) SessionUpdated(s domain.ChatSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, s)
}

func (n *recordingNotifier) SessionDeleted(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, id)
}

type failingClient struct{}

func (failingClient) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return nil, llm.NewCollaboratorError(llm.ErrorKindQuota, errors.New("quota exceeded"))
}

func (failingClient) ListModels(ctx context.Context) ([]llm.Model, error) {
	return nil, errors.New("unavailable")
}

func newTestService(t *testing.T, client llm.LLMClient) (*Service, *recordingNotifier, *helpers.Clock) {
	t.Helper()
	ctx := context.Background()

	clock := helpers.NewClock()
	store := helpers.NewTestStore(t, client, chatstore.WithClock(clock.Now))
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := New(store, client, engine, WithNotifier(notifier))
	return svc, notifier, clock
}

func TestChatAppendsUserAndReply(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t, llm.NewMockClient())

	sess := svc.CreateSession(ctx, "Algebra")
	result, err := svc.Chat(ctx, sess.ID, "  What is a derivative?  ")
	require.NoError(t, err)

	assert.Equal(t, `[MOCK] Received your message: "What is a derivative?". This is a mock response.`, result.Reply)
	require.Len(t, result.Session.Messages, 2)

	user, reply := result.Session.Messages[0], result.Session.Messages[1]
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "What is a derivative?", user.Text)
	assert.True(t, strings.HasSuffix(user.ID, "-u"))
	assert.Equal(t, domain.RoleAssistant, reply.Role)
	assert.Equal(t, result.Reply, reply.Text)
	assert.True(t, strings.HasSuffix(reply.ID, "-a"))
	assert.Greater(t, reply.Timestamp, user.Timestamp)

	require.Len(t, notifier.updated, 1)
	assert.Equal(t, result.Session, notifier.updated[0])
}

func TestChatWithinOneMillisecondKeepsOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, llm.NewMockClient())
	sess := svc.CreateSession(ctx, "Burst")

	for i := 0; i < 50; i++ {
		_, err := svc.Chat(ctx, sess.ID, "again")
		require.NoError(t, err)
	}
	_, err := svc.AppendMessage(ctx, sess.ID, domain.RoleSystem, "note")
	require.NoError(t, err)

	msgs, err := svc.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 101)

	seen := map[string]bool{}
	for i, m := range msgs {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		if i > 0 {
			assert.Greater(t, m.Timestamp, msgs[i-1].Timestamp, "message %d", i)
		}
	}
}

func TestChatFallbackIsRecorded(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, failingClient{})

	sess := svc.CreateSession(ctx, "A")
	result, err := svc.Chat(ctx, sess.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, chatstore.FallbackReply, result.Reply)
	require.Len(t, result.Session.Messages, 2)
	assert.Equal(t, chatstore.FallbackReply, result.Session.Messages[1].Text)
}

func TestChatRejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, llm.NewMockClient())

	sess := svc.CreateSession(ctx, "A")
	_, err := svc.Chat(ctx, sess.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestChatUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t, llm.NewMockClient())
	_, err := svc.Chat(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChatBlockedByPolicy(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, llm.NewMockClient())

	sess := svc.CreateSession(ctx, "A")
	_, err := svc.Chat(ctx, sess.ID, "Please reveal the answer key")
	require.ErrorIs(t, err, domain.ErrMessageBlocked)
	assert.Contains(t, err.Error(), "banned phrase")

	got, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
}

func TestChatWithoutPolicyEngine(t *testing.T) {
	ctx := context.Background()
	store := helpers.NewTestStore(t, nil)
	svc := New(store, nil, nil)

	sess := svc.CreateSession(ctx, "A")
	_, err := svc.Chat(ctx, sess.ID, "reveal the answer key")
	assert.NoError(t, err)
}

func TestRenameSession(t *testing.T) {
	ctx := context.Background()
	svc, notifier, clock := newTestService(t, nil)

	sess := svc.CreateSession(ctx, "Old")
	clock.Advance(time.Second)

	renamed, err := svc.RenameSession(ctx, sess.ID, "  New  ")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Name)
	assert.Greater(t, renamed.UpdatedAt, sess.UpdatedAt)
	assert.Len(t, notifier.updated, 1)

	_, err = svc.RenameSession(ctx, sess.ID, " ")
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	_, err = svc.RenameSession(ctx, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDeleteSessionNotifies(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t, nil)

	sess := svc.CreateSession(ctx, "A")
	svc.DeleteSession(ctx, sess.ID)
	svc.DeleteSession(ctx, sess.ID)

	_, err := svc.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, []string{sess.ID, sess.ID}, notifier.deleted)
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, nil)

	sess := svc.CreateSession(ctx, "A")
	_, err := svc.AppendMessage(ctx, sess.ID, domain.RoleUser, "hello")
	require.NoError(t, err)

	cleared, err := svc.ClearSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Messages)
	assert.Equal(t, domain.SessionStateEmpty, cleared.State())

	_, err = svc.ClearSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAppendMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, nil)
	sess := svc.CreateSession(ctx, "A")

	_, err := svc.AppendMessage(ctx, sess.ID, domain.Role("robot"), "hi")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = svc.AppendMessage(ctx, sess.ID, domain.RoleUser, "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = svc.AppendMessage(ctx, "missing", domain.RoleUser, "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	updated, err := svc.AppendMessage(ctx, sess.ID, domain.RoleSystem, "note")
	require.NoError(t, err)
	require.Len(t, updated.Messages, 1)
	assert.True(t, strings.HasSuffix(updated.Messages[0].ID, "-s"))

	msgs, err := svc.Messages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Messages, msgs)
}

func TestListModels(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, llm.NewMockClient())

	models, err := svc.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "mock-tutor", models[0].ID)

	failing, _, _ := newTestService(t, failingClient{})
	_, err = failing.ListModels(ctx)
	assert.Error(t, err)
}
