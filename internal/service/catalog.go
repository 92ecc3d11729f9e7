package service

import (
	"context"
	"fmt"

	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/domain"
)

// loadCatalog takes the per-request registry snapshot: active agents in
// priority order that the policy allows for the first pass.
func (s *Service) loadCatalog(ctx context.Context, message string) (domain.Catalog, error) {
	agents, err := s.store.ListActiveAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}

	catalog := make(domain.Catalog, 0, len(agents))
	for _, a := range agents {
		if s.allowed(ctx, a, message, domain.RequestKindGenerate) {
			catalog = append(catalog, a)
		}
	}
	if len(catalog) == 0 {
		return nil, ErrNoAgents
	}
	return catalog.SortByPriority(), nil
}

// allowed consults the policy engine. Evaluation errors allow the agent.
func (s *Service) allowed(ctx context.Context, agent domain.Agent, message string, kind domain.RequestKind) bool {
	if s.policyEngine == nil {
		return true
	}
	ok, err := s.policyEngine.Allows(ctx, agent, message, kind)
	if err != nil {
		log.Warn(ctx,
			log.KV{K: "msg", V: "agent policy evaluation failed, allowing agent"},
			log.KV{K: "agent_id", V: agent.AgentID},
			log.KV{K: "err", V: err.Error()})
		return true
	}
	if !ok {
		log.Debug(ctx,
			log.KV{K: "msg", V: "agent blocked by policy"},
			log.KV{K: "agent_id", V: agent.AgentID},
			log.KV{K: "pass", V: string(kind)})
	}
	return ok
}
