// Package v1 provides the public HTTP handlers.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ensemble/internal/repository"
	"github.com/xiaot623/ensemble/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/orchestrate", h.Orchestrate)

	// Agent registry API
	e.GET("/v1/agents", h.ListAgents)
	e.GET("/v1/agents/:agent_id", h.GetAgent)
	e.PUT("/v1/agents/:agent_id", h.PutAgent)

	// Public API (for retrieving data)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.GET("/v1/sessions/:session_id/collaborations", h.ListCollaborations)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Success: false, Error: msg})
}

// failWith maps service errors onto HTTP statuses.
func failWith(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "not found")
	case service.IsUnavailable(err):
		return fail(c, http.StatusServiceUnavailable, err.Error())
	default:
		return fail(c, http.StatusInternalServerError, err.Error())
	}
}
