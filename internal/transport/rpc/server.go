// Package rpc exposes the chat session operations over JSON-RPC for other
// internal services.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/service"
)

// ServiceName is the JSON-RPC service prefix, as in "ChatStore.Chat".
const ServiceName = "ChatStore"

// Server exposes internal RPC endpoints.
type Server struct {
	mu        sync.Mutex
	listener  net.Listener
	rpcServer *rpc.Server
	logger    *slog.Logger
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the chat service.
func NewServer(svc *service.Service, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, &Handler{service: svc}); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			s.logger.Warn("rpc accept failed", "error", err)
			continue
		}

		go s.ServeConn(conn)
	}
}

// ServeConn serves JSON-RPC on a single connection until it closes.
func (s *Server) ServeConn(conn net.Conn) {
	s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the ChatStore RPC methods.
type Handler struct {
	service *service.Service
}

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// CreateSessionArgs names a new session.
type CreateSessionArgs struct {
	Name string `json:"name"`
}

// RenameSessionArgs renames a session.
type RenameSessionArgs struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// AddMessageArgs appends a message without contacting the assistant.
type AddMessageArgs struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
}

// ChatArgs sends a message to the assistant.
type ChatArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// ListSessionsResponse lists sessions newest first.
type ListSessionsResponse struct {
	Sessions []domain.ChatSession `json:"sessions"`
}

// PruneResponse reports how many sessions remain after pruning.
type PruneResponse struct {
	Sessions int `json:"sessions"`
}

// AckResponse is a generic OK response.
type AckResponse struct {
	OK bool `json:"ok"`
}

// ListSessions returns every live session.
func (h *Handler) ListSessions(_ *struct{}, resp *ListSessionsResponse) error {
	resp.Sessions = h.service.ListSessions(context.Background())
	return nil
}

// CreateSession creates a session.
func (h *Handler) CreateSession(req *CreateSessionArgs, resp *domain.ChatSession) error {
	if req == nil {
		req = &CreateSessionArgs{}
	}
	*resp = h.service.CreateSession(context.Background(), req.Name)
	return nil
}

// GetSession returns one session.
func (h *Handler) GetSession(req *SessionArgs, resp *domain.ChatSession) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}
	sess, err := h.service.GetSession(context.Background(), req.SessionID)
	if err != nil {
		return err
	}
	*resp = sess
	return nil
}

// RenameSession renames a session.
func (h *Handler) RenameSession(req *RenameSessionArgs, resp *domain.ChatSession) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}
	sess, err := h.service.RenameSession(context.Background(), req.SessionID, req.Name)
	if err != nil {
		return err
	}
	*resp = sess
	return nil
}

// DeleteSession deletes a session. Unknown ids succeed.
func (h *Handler) DeleteSession(req *SessionArgs, resp *AckResponse) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}
	h.service.DeleteSession(context.Background(), req.SessionID)
	resp.OK = true
	return nil
}

// ClearSession removes every message of a session.
func (h *Handler) ClearSession(req *SessionArgs, resp *domain.ChatSession) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}
	sess, err := h.service.ClearSession(context.Background(), req.SessionID)
	if err != nil {
		return err
	}
	*resp = sess
	return nil
}

// AddMessage appends a message.
func (h *Handler) AddMessage(req *AddMessageArgs, resp *domain.ChatSession) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}
	sess, err := h.service.AppendMessage(context.Background(), req.SessionID, domain.Role(req.Role), req.Text)
	if err != nil {
		return err
	}
	*resp = sess
	return nil
}

// Chat runs one exchange with the study assistant.
func (h *Handler) Chat(req *ChatArgs, resp *service.ChatResult) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}
	result, err := h.service.Chat(context.Background(), req.SessionID, req.Text)
	if err != nil {
		return err
	}
	*resp = result
	return nil
}

// Prune drops expired messages.
func (h *Handler) Prune(_ *struct{}, resp *PruneResponse) error {
	resp.Sessions = h.service.Prune(context.Background())
	return nil
}
