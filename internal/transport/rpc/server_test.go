package rpc

import (
	"context"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/service"
	"github.com/xiaot623/studyclub/tests/helpers"
)

func newTestClient(t *testing.T) (*rpc.Client, *service.Service) {
	t.Helper()

	client := llm.NewMockClient()
	svc := service.New(helpers.NewTestStore(t, client), client, nil)
	srv, err := NewServer(svc, nil)
	require.NoError(t, err)

	serverConn, clientConn := net.Pipe()
	go srv.ServeConn(serverConn)

	rpcClient := jsonrpc.NewClient(clientConn)
	t.Cleanup(func() { rpcClient.Close() })
	return rpcClient, svc
}

func TestCreateChatAndList(t *testing.T) {
	client, _ := newTestClient(t)

	var created domain.ChatSession
	require.NoError(t, client.Call("ChatStore.CreateSession", &CreateSessionArgs{Name: "Algebra"}, &created))
	assert.Equal(t, "Algebra", created.Name)

	var result service.ChatResult
	require.NoError(t, client.Call("ChatStore.Chat", &ChatArgs{SessionID: created.ID, Text: "What is x?"}, &result))
	assert.Contains(t, result.Reply, "What is x?")
	assert.Len(t, result.Session.Messages, 2)

	var list ListSessionsResponse
	require.NoError(t, client.Call("ChatStore.ListSessions", &struct{}{}, &list))
	require.Len(t, list.Sessions, 1)
	assert.Len(t, list.Sessions[0].Messages, 2)
}

func TestRenameClearDelete(t *testing.T) {
	client, svc := newTestClient(t)
	sess := svc.CreateSession(context.Background(), "Old")

	var renamed domain.ChatSession
	require.NoError(t, client.Call("ChatStore.RenameSession", &RenameSessionArgs{SessionID: sess.ID, Name: "New"}, &renamed))
	assert.Equal(t, "New", renamed.Name)

	var withMsg domain.ChatSession
	require.NoError(t, client.Call("ChatStore.AddMessage", &AddMessageArgs{SessionID: sess.ID, Role: "user", Text: "hi"}, &withMsg))
	assert.Len(t, withMsg.Messages, 1)

	var cleared domain.ChatSession
	require.NoError(t, client.Call("ChatStore.ClearSession", &SessionArgs{SessionID: sess.ID}, &cleared))
	assert.Empty(t, cleared.Messages)

	var ack AckResponse
	require.NoError(t, client.Call("ChatStore.DeleteSession", &SessionArgs{SessionID: sess.ID}, &ack))
	assert.True(t, ack.OK)

	var got domain.ChatSession
	err := client.Call("ChatStore.GetSession", &SessionArgs{SessionID: sess.ID}, &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrSessionNotFound.Error())
}

func TestValidation(t *testing.T) {
	client, _ := newTestClient(t)

	var got domain.ChatSession
	err := client.Call("ChatStore.GetSession", &SessionArgs{}, &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_id is required")

	var pruned PruneResponse
	require.NoError(t, client.Call("ChatStore.Prune", &struct{}{}, &pruned))
	assert.Equal(t, 0, pruned.Sessions)
}
