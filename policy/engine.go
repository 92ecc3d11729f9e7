// Package policy evaluates the rego policy that decides which catalog agents
// may be invoked.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
	"github.com/xiaot623/ensemble/internal/domain"
)

// Decisions a policy may return.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.agent_policy.decision"),
		rego.Module("agent_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy at path, or DefaultPolicy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return NewEngine(ctx, string(content))
}

// Input is the document a policy sees as input.
type Input struct {
	Agent   AgentInput `json:"agent"`
	Message string     `json:"message"`
	Pass    string     `json:"pass"`
}

// AgentInput is the agent as exposed to policies.
type AgentInput struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	SystemPrompt string   `json:"system_prompt"`
	Capabilities []string `json:"capabilities"`
	Priority     int      `json:"priority"`
	Active       bool     `json:"active"`
}

// NewInput builds the policy input for one candidate agent.
func NewInput(agent domain.Agent, message string, kind domain.RequestKind) Input {
	caps := agent.Capabilities
	if caps == nil {
		caps = []string{}
	}
	return Input{
		Agent: AgentInput{
			ID:           agent.AgentID,
			Name:         agent.Name,
			Role:         string(agent.Role),
			SystemPrompt: agent.SystemPrompt,
			Capabilities: caps,
			Priority:     agent.Priority,
			Active:       agent.Active,
		},
		Message: message,
		Pass:    string(kind),
	}
}

// Evaluate checks the agent policy.
// Returns: decision (allow, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}

	return DecisionAllow, "unexpected return type", nil
}

// Allows reports whether agent may be invoked. Evaluation errors are returned
// to the caller, which decides how to treat them.
func (e *Engine) Allows(ctx context.Context, agent domain.Agent, message string, kind domain.RequestKind) (bool, error) {
	decision, _, err := e.Evaluate(ctx, NewInput(agent, message, kind))
	if err != nil {
		return false, err
	}
	return decision != DecisionBlock, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package agent_policy

default decision = "allow"

# Inactive agents are never invoked.
decision = "block" {
	not input.agent.active
}

# An agent without a prompt has nothing to say.
decision = "block" {
	trim_space(input.agent.system_prompt) == ""
}
`
