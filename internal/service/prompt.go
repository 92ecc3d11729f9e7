package service

import (
	"strings"

	"github.com/xiaot623/ensemble/internal/domain"
)

// contextPlaceholder marks where a prompt template wants the other agents' answers.
const contextPlaceholder = "{{agent_context}}"

// toPrior converts responses into the form threaded into later prompts.
func toPrior(responses []domain.AgentResponse) []domain.PriorResponse {
	out := make([]domain.PriorResponse, len(responses))
	for i, r := range responses {
		out[i] = domain.PriorResponse{
			AgentName: r.AgentName,
			AgentRole: r.AgentRole,
			Response:  r.Response,
		}
	}
	return out
}

// buildSystemPrompt renders an agent's template with the answers of the
// agents that ran before it, in run order.
func buildSystemPrompt(template string, prior []domain.PriorResponse) string {
	section := agentContextSection(prior)
	if strings.Contains(template, contextPlaceholder) {
		return strings.TrimSpace(strings.ReplaceAll(template, contextPlaceholder, section))
	}
	if section == "" {
		return template
	}
	return strings.TrimRight(template, "\n") + "\n\n" + section
}

func agentContextSection(prior []domain.PriorResponse) string {
	if len(prior) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Context from other agents\n")
	for _, p := range prior {
		b.WriteString("\n### ")
		b.WriteString(p.AgentName)
		b.WriteString(" (")
		b.WriteString(string(p.AgentRole))
		b.WriteString(")\n")
		b.WriteString(p.Response)
		b.WriteString("\n")
	}
	return b.String()
}

// buildUserMessage appends the code fragments present in reqCtx to message.
func buildUserMessage(message string, reqCtx *domain.RequestContext) string {
	if reqCtx == nil || reqCtx.Code == nil {
		return message
	}
	fragments := []struct {
		label, lang, body string
	}{
		{"Frontend code", "tsx", reqCtx.Code.Frontend},
		{"Backend code", "typescript", reqCtx.Code.Backend},
		{"Database schema", "sql", reqCtx.Code.Database},
	}

	var b strings.Builder
	b.WriteString(message)
	for _, f := range fragments {
		if strings.TrimSpace(f.body) == "" {
			continue
		}
		body := strings.TrimRight(f.body, "\n")
		fence := codeFence(body)
		b.WriteString("\n\n")
		b.WriteString(f.label)
		b.WriteString(":\n")
		b.WriteString(fence)
		b.WriteString(f.lang)
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
		b.WriteString(fence)
	}
	return b.String()
}

// codeFence returns a backtick fence longer than any backtick run in body.
func codeFence(body string) string {
	longest, run := 0, 0
	for _, r := range body {
		if r != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return strings.Repeat("`", max(3, longest+1))
}
