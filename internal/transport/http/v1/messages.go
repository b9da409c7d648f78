package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/studyclub/internal/domain"
)

// AppendMessageRequest is the body of POST /v1/sessions/:session_id/messages.
type AppendMessageRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest is the body of POST /v1/sessions/:session_id/chat.
type ChatRequest struct {
	Text string `json:"text"`
}

// GetSessionMessages retrieves messages for a session.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	messages, err := h.service.Messages(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"messages": messages,
	})
}

// AppendMessage stores a message without asking the study assistant.
// POST /v1/sessions/:session_id/messages
func (h *Handler) AppendMessage(c echo.Context) error {
	var req AppendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.AppendMessage(c.Request().Context(), c.Param("session_id"), domain.Role(req.Role), req.Text)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// Chat sends a message to the study assistant and records the exchange.
// POST /v1/sessions/:session_id/chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.Chat(c.Request().Context(), c.Param("session_id"), req.Text)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListModels lists the models offered by the text-completion collaborator.
// GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"models": models,
	})
}
