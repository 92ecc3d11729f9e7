package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ensemble/internal/domain"
)

// Orchestrate routes a message to the relevant agents and returns their answers.
// POST /v1/orchestrate
func (h *Handler) Orchestrate(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.OrchestrateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fail(c, http.StatusBadRequest, "message is required")
	}

	resp, err := h.service.Orchestrate(ctx, req)
	if err != nil {
		return failWith(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
