package routing

import (
	"github.com/xiaot623/ensemble/internal/domain"
)

// Router selects and orders the agents that answer a request.
type Router struct {
	vocabulary *Vocabulary
}

// NewRouter creates a router over vocabulary. A nil vocabulary uses DefaultVocabulary.
func NewRouter(vocabulary *Vocabulary) *Router {
	if vocabulary == nil {
		vocabulary = DefaultVocabulary
	}
	return &Router{vocabulary: vocabulary}
}

// SelectAgents returns the agents to invoke for message, ordered by ascending
// priority and unique by agent id.
//
// A non-empty explicitRoles list bypasses keyword routing entirely and may
// yield no agents. Otherwise the keyword vocabulary is applied, generated code
// in reqCtx pulls in the code and testing roles, and an empty selection falls
// back to the code role.
func (r *Router) SelectAgents(message string, reqCtx *domain.RequestContext, catalog domain.Catalog, explicitRoles []domain.Role) []domain.Agent {
	eligible := catalog.Active()

	if len(explicitRoles) > 0 {
		wanted := make(map[domain.Role]bool, len(explicitRoles))
		for _, role := range explicitRoles {
			wanted[domain.NormalizeRole(string(role))] = true
		}
		return orderUnique(eligible.WithRoles(wanted))
	}

	wanted := make(map[domain.Role]bool)
	for _, role := range r.vocabulary.Match(message) {
		wanted[role] = true
	}
	if reqCtx.HasGeneratedCode() {
		wanted[domain.RoleCode] = true
		wanted[domain.RoleTesting] = true
	}

	selected := eligible.WithRoles(wanted)
	if len(selected) == 0 {
		selected = eligible.WithRoles(map[domain.Role]bool{domain.RoleCode: true})
	}
	return orderUnique(selected)
}

func orderUnique(agents domain.Catalog) []domain.Agent {
	sorted := agents.SortByPriority()
	seen := make(map[string]bool, len(sorted))
	out := make([]domain.Agent, 0, len(sorted))
	for _, a := range sorted {
		if seen[a.AgentID] {
			continue
		}
		seen[a.AgentID] = true
		out = append(out, a)
	}
	return out
}
