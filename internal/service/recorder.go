package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/repository"
)

// RecordResult reports the outcome of a best-effort audit write.
type RecordResult struct {
	CollaborationID string
	Skipped         bool
	Err             error
}

// Recorder writes one collaboration record per agent invocation.
type Recorder struct {
	store repository.Store
}

// NewRecorder creates a recorder over store.
func NewRecorder(store repository.Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists one invocation. Failures are logged and returned in the
// result; callers are not expected to act on them.
func (r *Recorder) Record(ctx context.Context, sessionID string, agent domain.Agent, kind domain.RequestKind, payload domain.CollaborationRequest, resp domain.AgentResponse, status domain.CollaborationStatus) RecordResult {
	if sessionID == "" || r.store == nil {
		return RecordResult{Skipped: true}
	}

	if payload.PriorResponses == nil {
		payload.PriorResponses = []domain.PriorResponse{}
	}
	reqJSON, err := json.Marshal(payload)
	if err != nil {
		return r.failed(ctx, agent, fmt.Errorf("marshal request payload: %w", err))
	}
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return r.failed(ctx, agent, fmt.Errorf("marshal response payload: %w", err))
	}

	collab := &domain.Collaboration{
		CollaborationID:  "collab_" + uuid.New().String(),
		SessionID:        sessionID,
		AgentID:          agent.AgentID,
		RequestKind:      kind,
		RequestPayload:   reqJSON,
		ResponsePayload:  respJSON,
		Status:           status,
		ProcessingTimeMs: resp.ProcessingTimeMs,
	}
	if err := r.store.CreateCollaboration(ctx, collab); err != nil {
		return r.failed(ctx, agent, err)
	}
	return RecordResult{CollaborationID: collab.CollaborationID}
}

func (r *Recorder) failed(ctx context.Context, agent domain.Agent, err error) RecordResult {
	log.Error(ctx, err,
		log.KV{K: "msg", V: "failed to record collaboration"},
		log.KV{K: "agent_id", V: agent.AgentID})
	return RecordResult{Err: err}
}
