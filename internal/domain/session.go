package domain

import (
	"encoding/json"
	"time"
)

// Session represents a multi-agent conversation.
type Session struct {
	SessionID      string          `json:"session_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Stage          SessionStage    `json:"current_stage"`
	AgentsInvolved []string        `json:"agents_involved"`
	WorkflowState  json.RawMessage `json:"workflow_state,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SessionUpdate is applied once at the end of each orchestration call.
// AgentsInvolved is merged into the stored set, never replacing it.
type SessionUpdate struct {
	AgentsInvolved []string
	Stage          SessionStage
	WorkflowState  json.RawMessage
}

// WorkflowState is the snapshot stored on the session after each call.
type WorkflowState struct {
	Responses   []AgentResponse `json:"responses"`
	CompletedAt int64           `json:"completed_at"`
}

// MergeAgentIDs returns existing followed by any ids from added not already present.
func MergeAgentIDs(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, id := range existing {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range added {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
