// Package internalapi provides HTTP handlers for operator maintenance tasks.
// These APIs are only bound on the internal listener.
package internalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ensemble/internal/service"
)

// Handler handles internal HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new internal API handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/internal/sessions/sweep", h.SweepSessions)
}

// SweepSessions runs the stale-session sweep immediately.
// POST /internal/sessions/sweep
func (h *Handler) SweepSessions(c echo.Context) error {
	n := h.service.SweepStaleSessions(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]int{"marked_failed": n})
}
