package domain

import (
	"sort"
	"time"
)

// Agent is a role-based prompt configuration the orchestrator can invoke.
type Agent struct {
	AgentID      string    `json:"agent_id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	DisplayName  string    `json:"display_name" yaml:"display_name"`
	Role         Role      `json:"role" yaml:"role"`
	SystemPrompt string    `json:"system_prompt" yaml:"system_prompt"`
	Capabilities []string  `json:"capabilities,omitempty" yaml:"capabilities"`
	Priority     int       `json:"priority" yaml:"priority"`
	Active       bool      `json:"active" yaml:"active"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// Label returns the name shown to users and to other agents.
func (a Agent) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Name
}

// Catalog is a read-only snapshot of the agent registry taken once per request.
type Catalog []Agent

// SortByPriority returns a copy ordered by ascending priority.
// Agents with equal priority keep their relative order.
func (c Catalog) SortByPriority() Catalog {
	out := make(Catalog, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Active returns the agents eligible for selection.
func (c Catalog) Active() Catalog {
	out := make(Catalog, 0, len(c))
	for _, a := range c {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

// WithRoles returns the agents whose role is in roles, in catalog order.
func (c Catalog) WithRoles(roles map[Role]bool) Catalog {
	out := make(Catalog, 0, len(roles))
	for _, a := range c {
		if roles[a.Role] {
			out = append(out, a)
		}
	}
	return out
}
