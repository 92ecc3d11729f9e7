package domain

import (
	"encoding/json"
	"time"
)

// Collaboration is the audit entry for one agent invocation. Records are write-once.
type Collaboration struct {
	CollaborationID  string              `json:"collaboration_id"`
	SessionID        string              `json:"session_id"`
	AgentID          string              `json:"agent_id"`
	RequestKind      RequestKind         `json:"request_type"`
	RequestPayload   json.RawMessage     `json:"request_payload"`
	ResponsePayload  json.RawMessage     `json:"response_payload"`
	Status           CollaborationStatus `json:"status"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
	CompletedAt      time.Time           `json:"completed_at"`
}

// CollaborationRequest is the request payload stored with a collaboration.
// PriorResponses holds exactly what the agent saw from earlier agents.
type CollaborationRequest struct {
	Message        string          `json:"message"`
	Context        *RequestContext `json:"context,omitempty"`
	PriorResponses []PriorResponse `json:"prior_responses"`
}

// PriorResponse is one earlier agent's output as threaded into a later prompt.
type PriorResponse struct {
	AgentName string `json:"agent_name"`
	AgentRole Role   `json:"agent_role"`
	Response  string `json:"response"`
}
