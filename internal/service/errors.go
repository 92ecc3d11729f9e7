package service

import (
	"errors"

	"github.com/xiaot623/ensemble/internal/domain"
)

// Fatal orchestration errors. Everything else is absorbed into the response.
var (
	// ErrCompletionNotConfigured means no completion client could be built.
	ErrCompletionNotConfigured = errors.New("completion service is not configured")
	// ErrCatalogUnavailable means the agent registry could not be read.
	ErrCatalogUnavailable = errors.New("agent catalog unavailable")
	// ErrNoAgents means the registry holds no invocable agents.
	ErrNoAgents = errors.New("no active agents available")
	// ErrInvalidRequest wraps validation failures of caller input.
	ErrInvalidRequest = errors.New("invalid request")
)

// IsUnavailable reports whether err means no agent could be run at all.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNoAgents) ||
		errors.Is(err, ErrCatalogUnavailable) ||
		errors.Is(err, ErrCompletionNotConfigured)
}

// FailedResponse carries a fatal error in the regular response shape.
func FailedResponse(err error) *domain.OrchestrateResponse {
	return &domain.OrchestrateResponse{
		Success:   false,
		Responses: []domain.AgentResponse{},
		Error:     err.Error(),
	}
}
