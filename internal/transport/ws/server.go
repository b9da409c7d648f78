// Package ws provides the WebSocket chat endpoint.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/studyclub/internal/config"
	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/hub"
	"github.com/xiaot623/studyclub/internal/protocol"
	"github.com/xiaot623/studyclub/internal/service"
)

// replyGrace is added to the collaborator timeout for a whole chat exchange.
const replyGrace = 10 * time.Second

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", "conn_id", conn.ID, "error", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes queued messages and keepalive pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("websocket write failed", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages by type.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, conn.SessionID, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeHello:
		s.handleHello(conn, data)
	case protocol.TypeChat:
		s.handleChat(conn, data)
	default:
		s.sendError(conn, conn.SessionID, baseMsg.RequestID, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleHello binds the connection to an existing session, or to a new one
// when no session id is given.
func (s *Server) handleHello(conn *hub.Connection, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, conn.SessionID, "", protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	ctx := context.Background()
	var session domain.ChatSession
	if msg.SessionID == "" {
		session = s.service.CreateSession(ctx, msg.Name)
	} else {
		var err error
		session, err = s.service.GetSession(ctx, msg.SessionID)
		if err != nil {
			s.sendError(conn, msg.SessionID, msg.RequestID, protocol.ErrorCodeSessionNotFound, err.Error())
			return
		}
	}

	s.hub.BindSession(conn, session.ID)

	ack := protocol.HelloAckMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			RequestID: msg.RequestID,
			SessionID: session.ID,
		},
		Session: session,
	}
	s.hub.SendJSONToConnection(conn, ack)

	s.logger.Info("hello handshake completed", "conn_id", conn.ID, "session_id", session.ID)
}

// handleChat runs a chat exchange without blocking the read loop.
func (s *Server) handleChat(conn *hub.Connection, data []byte) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, conn.SessionID, "", protocol.ErrorCodeInvalidMessage, "invalid chat message")
		return
	}

	if conn.SessionID == "" {
		s.sendError(conn, "", msg.RequestID, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}
	sessionID := conn.SessionID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LLMTimeout+replyGrace)
		defer cancel()

		result, err := s.service.Chat(ctx, sessionID, msg.Text)
		if err != nil {
			s.sendError(conn, sessionID, msg.RequestID, errorCode(err), err.Error())
			return
		}

		reply := protocol.ReplyMessage{
			BaseMessage: protocol.BaseMessage{
				Type:      protocol.TypeReply,
				Ts:        time.Now().UnixMilli(),
				RequestID: msg.RequestID,
				SessionID: sessionID,
			},
			Reply:   result.Reply,
			Session: result.Session,
		}
		if err := s.hub.SendJSONToConnection(conn, reply); err != nil {
			s.logger.Warn("failed to deliver reply", "conn_id", conn.ID, "error", err)
		}
	}()
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return protocol.ErrorCodeEmptyMessage
	case errors.Is(err, domain.ErrMessageBlocked):
		return protocol.ErrorCodeBlocked
	case errors.Is(err, domain.ErrSessionNotFound):
		return protocol.ErrorCodeSessionNotFound
	default:
		return protocol.ErrorCodeInternalError
	}
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, sessionID, requestID, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			SessionID: sessionID,
		},
		Code:    code,
		Message: message,
	}
	s.hub.SendJSONToConnection(conn, errMsg)
}
