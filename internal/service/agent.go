package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/ensemble/internal/catalog"
	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/repository"
)

// PutAgent validates and stores an agent definition.
func (s *Service) PutAgent(ctx context.Context, agent *domain.Agent) (*domain.Agent, error) {
	agent.Role = domain.NormalizeRole(string(agent.Role))
	if err := catalog.Validate(agent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	existing, err := s.store.GetAgent(ctx, agent.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if existing != nil {
		agent.CreatedAt = existing.CreatedAt
	}

	if err := s.store.UpsertAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to store agent: %w", err)
	}
	return agent, nil
}

func (s *Service) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	return agents, nil
}

func (s *Service) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if agent == nil {
		return nil, repository.ErrNotFound
	}
	return agent, nil
}
