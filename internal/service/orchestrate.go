package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/domain"
)

// Orchestrate answers one request with the relevant agents.
//
// Agents run strictly one after another; each sees the answers of those
// before it. Roles suggested by first-pass answers, and not already selected,
// get exactly one review round. Only a missing completion client or an empty
// or unreachable registry fail the call. Agent and persistence failures are
// absorbed into the response.
func (s *Service) Orchestrate(ctx context.Context, req domain.OrchestrateRequest) (*domain.OrchestrateResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	if s.invoker == nil {
		return nil, ErrCompletionNotConfigured
	}

	ctx, span := s.tracer.Start(ctx, "ensemble.orchestrate",
		trace.WithAttributes(attribute.Int("ensemble.requested_roles", len(req.RequestedAgents))))
	defer span.End()

	catalog, err := s.loadCatalog(ctx, req.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog")
		return nil, err
	}

	sessionID := s.resolveSession(ctx, req)
	if sessionID != "" {
		ctx = log.With(ctx, log.KV{K: "session_id", V: sessionID})
		span.SetAttributes(attribute.String("ensemble.session_id", sessionID))
	}

	acc := &accumulator{}

	selected := s.router.SelectAgents(req.Message, req.Context, catalog, req.RequestedAgents)
	selectedRoles := make(map[domain.Role]bool, len(selected))
	for _, a := range selected {
		selectedRoles[a.Role] = true
	}

	var pending []domain.Role
	pendingSet := make(map[domain.Role]bool)
	for _, agent := range selected {
		if ctx.Err() != nil {
			break
		}
		resp := s.invokeAndRecord(ctx, sessionID, agent, req, domain.RequestKindGenerate, acc)
		for _, role := range resp.SuggestedNextAgents {
			if selectedRoles[role] || pendingSet[role] {
				continue
			}
			pendingSet[role] = true
			pending = append(pending, role)
		}
	}

	if ctx.Err() == nil && len(pending) > 0 {
		for _, agent := range s.reviewers(ctx, catalog, pendingSet, req.Message) {
			if ctx.Err() != nil {
				break
			}
			// Review answers are not scanned again: one extra round at most.
			s.invokeAndRecord(ctx, sessionID, agent, req, domain.RequestKindReview, acc)
		}
	}

	s.finalizeSession(context.WithoutCancel(ctx), sessionID, acc)

	span.SetAttributes(attribute.Int("ensemble.responses", len(acc.responses)))
	log.Info(ctx,
		log.KV{K: "msg", V: "orchestration completed"},
		log.KV{K: "first_pass", V: len(selected)},
		log.KV{K: "suggested_roles", V: len(pending)},
		log.KV{K: "responses", V: len(acc.responses)})

	return assemble(sessionID, acc), nil
}

// reviewers returns the catalog agents whose role was suggested, in priority order.
func (s *Service) reviewers(ctx context.Context, catalog domain.Catalog, roles map[domain.Role]bool, message string) []domain.Agent {
	var out []domain.Agent
	for _, a := range catalog.WithRoles(roles).SortByPriority() {
		if s.allowed(ctx, a, message, domain.RequestKindReview) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) invokeAndRecord(ctx context.Context, sessionID string, agent domain.Agent, req domain.OrchestrateRequest, kind domain.RequestKind, acc *accumulator) domain.AgentResponse {
	prior := acc.prior()
	resp := s.invoker.Invoke(ctx, agent, req.Message, req.Context, prior)
	acc.add(resp)

	status := domain.CollaborationStatusCompleted
	if resp.Failed {
		status = domain.CollaborationStatusFailed
	}
	payload := domain.CollaborationRequest{
		Message:        req.Message,
		Context:        req.Context,
		PriorResponses: toPrior(prior),
	}
	// Audit writes are best-effort.
	_ = s.recorder.Record(context.WithoutCancel(ctx), sessionID, agent, kind, payload, resp, status)
	s.touchSession(context.WithoutCancel(ctx), sessionID, agent.AgentID)
	return resp
}

// touchSession records a participant as soon as it has answered, which also
// keeps a long request from looking stale to the sweeper.
func (s *Service) touchSession(ctx context.Context, sessionID, agentID string) {
	if sessionID == "" {
		return
	}
	err := s.store.UpdateSessionProgress(ctx, sessionID, domain.SessionUpdate{
		AgentsInvolved: []string{agentID},
		Stage:          domain.SessionStageProcessing,
	})
	if err != nil {
		log.Warn(ctx,
			log.KV{K: "msg", V: "failed to update session progress"},
			log.KV{K: "agent_id", V: agentID},
			log.KV{K: "err", V: err.Error()})
	}
}

// resolveSession reopens the caller's session or creates one. A failed
// creation yields an empty id and the request continues without persistence.
func (s *Service) resolveSession(ctx context.Context, req domain.OrchestrateRequest) string {
	if req.SessionID != "" {
		if err := s.store.ReopenSession(ctx, req.SessionID); err != nil {
			log.Error(ctx, err,
				log.KV{K: "msg", V: "failed to reopen session, continuing"},
				log.KV{K: "session_id", V: req.SessionID})
		}
		return req.SessionID
	}

	session := &domain.Session{
		SessionID:   "sess_" + uuid.New().String(),
		Title:       sessionTitle(req.Message),
		Description: req.Message,
		Stage:       domain.SessionStageProcessing,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to create session, continuing without one"})
		return ""
	}
	return session.SessionID
}

func sessionTitle(message string) string {
	title := strings.TrimSpace(message)
	runes := []rune(title)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes])
	}
	return title
}

func (s *Service) finalizeSession(ctx context.Context, sessionID string, acc *accumulator) {
	if sessionID == "" {
		return
	}
	state, err := json.Marshal(domain.WorkflowState{
		Responses:   acc.prior(),
		CompletedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to marshal workflow state"})
		return
	}
	err = s.store.UpdateSessionProgress(ctx, sessionID, domain.SessionUpdate{
		AgentsInvolved: acc.participants,
		Stage:          domain.SessionStageCompleted,
		WorkflowState:  state,
	})
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to update session"})
	}
}

func assemble(sessionID string, acc *accumulator) *domain.OrchestrateResponse {
	responses := acc.prior()
	return &domain.OrchestrateResponse{
		Success:               true,
		SessionID:             sessionID,
		Responses:             responses,
		TotalAgents:           len(responses),
		TotalProcessingTimeMs: acc.totalMs(),
		Summary:               summarize(responses),
	}
}

// summarize returns a single answer verbatim, or labelled sections in
// invocation order.
func summarize(responses []domain.AgentResponse) string {
	if len(responses) == 1 {
		return responses[0].Response
	}
	sections := make([]string, 0, len(responses))
	for _, r := range responses {
		sections = append(sections, fmt.Sprintf("**%s** (%s):\n%s", r.AgentName, r.AgentRole, r.Response))
	}
	return strings.Join(sections, "\n\n")
}
