// Package v1 provides the REST handlers for chat sessions.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/studyclub/internal/domain"
	"github.com/xiaot623/studyclub/internal/hub"
	"github.com/xiaot623/studyclub/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	hub     *hub.Hub
}

// NewHandler creates a new handler. The hub is optional and only feeds the
// health report.
func NewHandler(service *service.Service, h *hub.Hub) *Handler {
	return &Handler{
		service: service,
		hub:     h,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Sessions
	e.GET("/v1/sessions", h.ListSessions)
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.PATCH("/v1/sessions/:session_id", h.RenameSession)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)
	e.POST("/v1/sessions/:session_id/clear", h.ClearSession)

	// Messages
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.POST("/v1/sessions/:session_id/messages", h.AppendMessage)
	e.POST("/v1/sessions/:session_id/chat", h.Chat)

	// Maintenance
	e.POST("/v1/prune", h.Prune)
	e.GET("/v1/models", h.ListModels)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]any{
		"status":  "healthy",
		"version": "0.1.0",
	}
	if h.hub != nil {
		resp["connections"] = h.hub.ConnectionCount()
	}
	return c.JSON(http.StatusOK, resp)
}

// errorResponse maps service errors to HTTP status codes.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMessageBlocked):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrInvalidRole):
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
