package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// RenameSessionRequest is the body of PATCH /v1/sessions/:session_id.
type RenameSessionRequest struct {
	Name string `json:"name"`
}

// ListSessions returns every live session, newest first.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions := h.service.ListSessions(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

// CreateSession creates a session. The body is optional.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
	}

	session := h.service.CreateSession(c.Request().Context(), req.Name)
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns one session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// RenameSession renames a session.
// PATCH /v1/sessions/:session_id
func (h *Handler) RenameSession(c echo.Context) error {
	var req RenameSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.RenameSession(c.Request().Context(), c.Param("session_id"), req.Name)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// DeleteSession deletes a session. Deleting an unknown session succeeds.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	h.service.DeleteSession(c.Request().Context(), c.Param("session_id"))
	return c.NoContent(http.StatusNoContent)
}

// ClearSession removes every message of a session.
// POST /v1/sessions/:session_id/clear
func (h *Handler) ClearSession(c echo.Context) error {
	session, err := h.service.ClearSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// Prune drops expired messages now instead of waiting for the sweeper.
// POST /v1/prune
func (h *Handler) Prune(c echo.Context) error {
	n := h.service.Prune(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]int{"sessions": n})
}
