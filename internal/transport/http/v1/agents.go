package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ensemble/internal/domain"
)

// AgentRequest is the body of an agent upsert.
type AgentRequest struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Role         string   `json:"role"`
	SystemPrompt string   `json:"system_prompt"`
	Capabilities []string `json:"capabilities,omitempty"`
	Priority     int      `json:"priority"`
	Active       *bool    `json:"active,omitempty"`
}

// PutAgent creates or replaces an agent definition.
// PUT /v1/agents/:agent_id
func (h *Handler) PutAgent(c echo.Context) error {
	ctx := c.Request().Context()

	var req AgentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	agent, err := h.service.PutAgent(ctx, &domain.Agent{
		AgentID:      c.Param("agent_id"),
		Name:         req.Name,
		DisplayName:  req.DisplayName,
		Role:         domain.Role(req.Role),
		SystemPrompt: req.SystemPrompt,
		Capabilities: req.Capabilities,
		Priority:     req.Priority,
		Active:       active,
	})
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(http.StatusOK, agent)
}

// ListAgents lists all registered agents in priority order.
// GET /v1/agents
func (h *Handler) ListAgents(c echo.Context) error {
	ctx := c.Request().Context()

	agents, err := h.service.ListAgents(ctx)
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": agents,
	})
}

// GetAgent gets a specific agent by ID.
// GET /v1/agents/:agent_id
func (h *Handler) GetAgent(c echo.Context) error {
	ctx := c.Request().Context()

	agent, err := h.service.GetAgent(ctx, c.Param("agent_id"))
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(http.StatusOK, agent)
}
