package domain

import "strings"

// CodeContext carries generated source fragments attached to a request.
type CodeContext struct {
	Frontend string `json:"frontend,omitempty"`
	Backend  string `json:"backend,omitempty"`
	Database string `json:"database,omitempty"`
}

// RequestContext is the optional structured context of a request.
type RequestContext struct {
	Code       *CodeContext `json:"code,omitempty"`
	ProposalID string       `json:"proposalId,omitempty"`
	Stage      string       `json:"stage,omitempty"`
}

// HasGeneratedCode reports whether a frontend or backend fragment is present.
func (c *RequestContext) HasGeneratedCode() bool {
	if c == nil || c.Code == nil {
		return false
	}
	return strings.TrimSpace(c.Code.Frontend) != "" || strings.TrimSpace(c.Code.Backend) != ""
}

// OrchestrateRequest is the inbound request for one orchestration call.
type OrchestrateRequest struct {
	SessionID       string          `json:"sessionId,omitempty"`
	Message         string          `json:"message"`
	Context         *RequestContext `json:"context,omitempty"`
	RequestedAgents []Role          `json:"requestedAgents,omitempty"`
}

// AgentResponse is one agent's answer within a single request.
type AgentResponse struct {
	AgentID             string `json:"agentId"`
	AgentName           string `json:"agentName"`
	AgentRole           Role   `json:"agentRole"`
	Response            string `json:"response"`
	ProcessingTimeMs    int64  `json:"processingTimeMs"`
	SuggestedNextAgents []Role `json:"suggestedNextAgents,omitempty"`
	Failed              bool   `json:"failed,omitempty"`
}

// OrchestrateResponse is returned for every orchestration call.
type OrchestrateResponse struct {
	Success               bool            `json:"success"`
	SessionID             string          `json:"sessionId,omitempty"`
	Responses             []AgentResponse `json:"responses"`
	TotalAgents           int             `json:"totalAgents"`
	TotalProcessingTimeMs int64           `json:"totalProcessingTimeMs"`
	Summary               string          `json:"summary"`
	Error                 string          `json:"error,omitempty"`
}
