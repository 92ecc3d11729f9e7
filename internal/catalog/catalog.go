// Package catalog loads, validates and seeds agent definitions.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"goa.design/clue/log"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/repository"
)

// File is the YAML layout of a catalog file.
type File struct {
	Agents []fileAgent `yaml:"agents"`
}

type fileAgent struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	DisplayName  string   `yaml:"display_name"`
	Role         string   `yaml:"role"`
	SystemPrompt string   `yaml:"system_prompt"`
	Capabilities []string `yaml:"capabilities"`
	Priority     int      `yaml:"priority"`
	Active       *bool    `yaml:"active"`
}

// Validate checks the fields every stored agent must carry.
func Validate(a *domain.Agent) error {
	if strings.TrimSpace(a.AgentID) == "" {
		return fmt.Errorf("agent id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("agent %s: name is required", a.AgentID)
	}
	if !a.Role.IsKnown() {
		return fmt.Errorf("agent %s: unknown role %q", a.AgentID, a.Role)
	}
	if strings.TrimSpace(a.SystemPrompt) == "" {
		return fmt.Errorf("agent %s: system_prompt is required", a.AgentID)
	}
	return nil
}

// Parse decodes a YAML catalog. Agents default to active and the name
// doubles as the id when no id is given.
func Parse(data []byte) ([]domain.Agent, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Agents))
	agents := make([]domain.Agent, 0, len(f.Agents))
	for _, fa := range f.Agents {
		a := domain.Agent{
			AgentID:      strings.TrimSpace(fa.ID),
			Name:         strings.TrimSpace(fa.Name),
			DisplayName:  fa.DisplayName,
			Role:         domain.NormalizeRole(fa.Role),
			SystemPrompt: fa.SystemPrompt,
			Capabilities: fa.Capabilities,
			Priority:     fa.Priority,
			Active:       fa.Active == nil || *fa.Active,
		}
		if a.AgentID == "" {
			a.AgentID = a.Name
		}
		if err := Validate(&a); err != nil {
			return nil, err
		}
		if seen[a.AgentID] {
			return nil, fmt.Errorf("duplicate agent id %s", a.AgentID)
		}
		seen[a.AgentID] = true
		agents = append(agents, a)
	}
	return agents, nil
}

// LoadFile reads and parses the catalog at path.
func LoadFile(path string) ([]domain.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Seed upserts agents into store. Unless force is set it only writes when
// the registry is empty, and it reports how many agents were written.
func Seed(ctx context.Context, store repository.Store, agents []domain.Agent, force bool) (int, error) {
	if !force {
		n, err := store.CountAgents(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count agents: %w", err)
		}
		if n > 0 {
			log.Debugf(ctx, "agent registry holds %d agents, skipping seed", n)
			return 0, nil
		}
	}
	for i := range agents {
		if err := store.UpsertAgent(ctx, &agents[i]); err != nil {
			return i, fmt.Errorf("failed to seed agent %s: %w", agents[i].AgentID, err)
		}
	}
	log.Info(ctx, log.KV{K: "msg", V: "agent registry seeded"}, log.KV{K: "agents", V: len(agents)})
	return len(agents), nil
}
