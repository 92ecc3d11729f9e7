package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetSession returns a session with its participants and last workflow state.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.service.GetSession(ctx, c.Param("session_id"))
	if err != nil {
		return failWith(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// ListCollaborations returns the audit trail of a session.
// GET /v1/sessions/:session_id/collaborations
func (h *Handler) ListCollaborations(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	collabs, err := h.service.ListCollaborations(ctx, sessionID)
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id":     sessionID,
		"collaborations": collabs,
	})
}
