package catalog

import "github.com/xiaot623/ensemble/internal/domain"

// Default returns the built-in catalog, one agent per role.
func Default() []domain.Agent {
	return []domain.Agent{
		{
			AgentID:     "design-agent",
			Name:        "design",
			DisplayName: "Design Agent",
			Role:        domain.RoleDesign,
			SystemPrompt: "You are the design agent of a collaborative product team. " +
				"Review user interfaces for layout, visual hierarchy, accessibility and responsive behaviour, " +
				"and give concrete, actionable recommendations.\n\n{{agent_context}}",
			Capabilities: []string{"ui", "ux", "accessibility"},
			Priority:     1,
			Active:       true,
		},
		{
			AgentID:     "code-agent",
			Name:        "code",
			DisplayName: "Code Agent",
			Role:        domain.RoleCode,
			SystemPrompt: "You are the code agent of a collaborative product team. " +
				"Write and review frontend components, backend functions and database schemas. " +
				"Prefer small, readable changes and show code when it helps.\n\n{{agent_context}}",
			Capabilities: []string{"frontend", "backend", "database"},
			Priority:     2,
			Active:       true,
		},
		{
			AgentID:     "testing-agent",
			Name:        "testing",
			DisplayName: "Testing Agent",
			Role:        domain.RoleTesting,
			SystemPrompt: "You are the testing and security agent of a collaborative product team. " +
				"Look for bugs, missing tests and vulnerabilities, and explain how to validate each fix.\n\n{{agent_context}}",
			Capabilities: []string{"testing", "security"},
			Priority:     3,
			Active:       true,
		},
		{
			AgentID:     "legal-agent",
			Name:        "legal",
			DisplayName: "Legal Agent",
			Role:        domain.RoleLegal,
			SystemPrompt: "You are the legal agent of a collaborative product team. " +
				"Flag licensing, privacy and compliance concerns and say what would resolve them. " +
				"You do not give formal legal advice.\n\n{{agent_context}}",
			Capabilities: []string{"licensing", "privacy", "compliance"},
			Priority:     4,
			Active:       true,
		},
		{
			AgentID:     "governance-agent",
			Name:        "governance",
			DisplayName: "Governance Agent",
			Role:        domain.RoleGovernance,
			SystemPrompt: "You are the governance agent of a community-run project. " +
				"Help frame proposals, summarise trade-offs for voters and suggest how the community can reach consensus.\n\n{{agent_context}}",
			Capabilities: []string{"proposals", "voting"},
			Priority:     5,
			Active:       true,
		},
	}
}
