package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/adapter/llm"
	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/routing"
)

// InvokerConfig bounds each completion call.
type InvokerConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Invoker runs one agent against the completion service.
type Invoker struct {
	completer llm.Completer
	extractor routing.SuggestionExtractor
	cfg       InvokerConfig
	tracer    trace.Tracer
}

// NewInvoker creates an invoker. Zero limits fall back to the defaults.
func NewInvoker(completer llm.Completer, extractor routing.SuggestionExtractor, cfg InvokerConfig) *Invoker {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	if extractor == nil {
		extractor = routing.NewDefaultExtractor()
	}
	return &Invoker{
		completer: completer,
		extractor: extractor,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/xiaot623/ensemble/internal/service"),
	}
}

// Invoke asks agent to answer message given the responses produced so far.
// It never fails: upstream errors become a degraded response with Failed set.
func (inv *Invoker) Invoke(ctx context.Context, agent domain.Agent, message string, reqCtx *domain.RequestContext, prior []domain.AgentResponse) domain.AgentResponse {
	ctx, span := inv.tracer.Start(ctx, "ensemble.agent.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ensemble.agent_id", agent.AgentID),
			attribute.String("ensemble.agent_role", string(agent.Role)),
			attribute.Int("ensemble.prior_responses", len(prior)),
		),
	)
	defer span.End()

	resp := domain.AgentResponse{
		AgentID:   agent.AgentID,
		AgentName: agent.Label(),
		AgentRole: agent.Role,
	}

	req := &llm.CompletionRequest{
		Model:        inv.cfg.Model,
		SystemPrompt: buildSystemPrompt(agent.SystemPrompt, toPrior(prior)),
		UserMessage:  buildUserMessage(message, reqCtx),
		MaxTokens:    inv.cfg.MaxTokens,
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, inv.cfg.Timeout)
	defer cancel()

	result, err := inv.completer.Complete(callCtx, req)
	resp.ProcessingTimeMs = elapsedMs(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		log.Error(ctx, err,
			log.KV{K: "msg", V: "agent invocation failed"},
			log.KV{K: "agent_id", V: agent.AgentID},
			log.KV{K: "elapsed_ms", V: resp.ProcessingTimeMs})
		resp.Response = describeFailure(agent, err)
		resp.Failed = true
		return resp
	}

	resp.Response = result.Content
	resp.SuggestedNextAgents = inv.extractor.Extract(result.Content)
	span.SetAttributes(attribute.Int("ensemble.total_tokens", result.Usage.TotalTokens))
	log.Debug(ctx,
		log.KV{K: "msg", V: "agent responded"},
		log.KV{K: "agent_id", V: agent.AgentID},
		log.KV{K: "elapsed_ms", V: resp.ProcessingTimeMs},
		log.KV{K: "suggested", V: len(resp.SuggestedNextAgents)})
	return resp
}

func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// describeFailure renders a message safe to show callers. Upstream bodies
// and transport details are never included.
func describeFailure(agent domain.Agent, err error) string {
	var reason string
	var apiErr *llm.APIError
	switch {
	case errors.As(err, &apiErr):
		reason = fmt.Sprintf("the upstream service returned status %d", apiErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		reason = "the request timed out"
	case errors.Is(err, context.Canceled):
		reason = "the request was cancelled"
	default:
		reason = "the upstream service is unavailable"
	}
	return fmt.Sprintf("%s could not respond because %s. Please try again later.", agent.Label(), reason)
}
