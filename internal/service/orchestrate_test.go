package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/ensemble/internal/adapter/llm"
	"github.com/xiaot623/ensemble/internal/config"
	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/policy"
)

func TestOrchestrateKeywordRoutingRunsInPriorityOrder(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "necesito ayuda con el diseño de este componente"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, 2, resp.TotalAgents)
	require.Len(t, resp.Responses, 2)
	assert.Equal(t, "design-agent", resp.Responses[0].AgentID)
	assert.Equal(t, "code-agent", resp.Responses[1].AgentID)
	assert.Equal(t, []string{key(domain.RoleDesign), key(domain.RoleCode)}, completer.keys())
	assert.Equal(t,
		"**Design Agent** (design):\nok from agent:design\n\n**Code Agent** (code):\nok from agent:code",
		resp.Summary)

	collabs, err := store.ListCollaborations(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, collabs, 2)
	for _, c := range collabs {
		assert.Equal(t, domain.RequestKindGenerate, c.RequestKind)
		assert.Equal(t, domain.CollaborationStatusCompleted, c.Status)
	}

	session, err := store.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStageCompleted, session.Stage)
	assert.Equal(t, []string{"design-agent", "code-agent"}, session.AgentsInvolved)
	assert.Equal(t, "necesito ayuda con el diseño de este componente", session.Title)

	var state domain.WorkflowState
	require.NoError(t, json.Unmarshal(session.WorkflowState, &state))
	assert.Len(t, state.Responses, 2)
	assert.NotZero(t, state.CompletedAt)
}

func TestOrchestrateSuggestionsTriggerOneReviewRound(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	completer.replies[key(domain.RoleTesting)] = "Conviene validar la entrada y revisar compliance."
	completer.replies[key(domain.RoleLegal)] = "Licensing is fine. The community should vote on the logo."
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{
		Message: "revisa la seguridad de este código",
		Context: &domain.RequestContext{Code: &domain.CodeContext{Backend: "export async function handler() {}"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{key(domain.RoleCode), key(domain.RoleTesting), key(domain.RoleLegal)}, completer.keys())
	require.Len(t, resp.Responses, 3)
	assert.Equal(t, []domain.Role{domain.RoleTesting, domain.RoleLegal}, resp.Responses[1].SuggestedNextAgents)

	collabs, err := store.ListCollaborations(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, collabs, 3)
	assert.Equal(t, domain.RequestKindGenerate, collabs[0].RequestKind)
	assert.Equal(t, domain.RequestKindGenerate, collabs[1].RequestKind)
	assert.Equal(t, domain.RequestKindReview, collabs[2].RequestKind)
	assert.Equal(t, "legal-agent", collabs[2].AgentID)

	var payload domain.CollaborationRequest
	require.NoError(t, json.Unmarshal(collabs[2].RequestPayload, &payload))
	require.Len(t, payload.PriorResponses, 2)
	assert.Equal(t, "Conviene validar la entrada y revisar compliance.", payload.PriorResponses[1].Response)
	require.NotNil(t, payload.Context)
	assert.Equal(t, "export async function handler() {}", payload.Context.Code.Backend)

	legalPrompt := completer.calls[2].SystemPrompt
	assert.Contains(t, legalPrompt, "ok from agent:code")
	assert.Contains(t, legalPrompt, "Conviene validar la entrada y revisar compliance.")
	assert.Contains(t, completer.calls[0].UserMessage, "```typescript\nexport async function handler() {}\n```")
}

func TestOrchestrateReviewRoundFollowsCatalogPriority(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	completer.replies[key(domain.RoleCode)] = "Put the schema to a vote, then check compliance."
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "implement the api endpoint"})
	require.NoError(t, err)

	assert.Equal(t, []string{key(domain.RoleCode), key(domain.RoleLegal), key(domain.RoleGovernance)}, completer.keys())
	assert.Equal(t, 3, resp.TotalAgents)
}

func TestOrchestrateExplicitRoleMissingYieldsEmptySuccess(t *testing.T) {
	ctx := context.Background()
	catalog := fullCatalog()[:4]
	store := seededStore(t, catalog...)
	completer := newScriptedCompleter()
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{
		Message:         "should we merge this?",
		RequestedAgents: []domain.Role{domain.RoleGovernance},
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.TotalAgents)
	assert.Empty(t, resp.Responses)
	assert.Equal(t, "", resp.Summary)
	assert.Empty(t, completer.keys())
}

func TestOrchestrateExplicitRoleInvokesOnlyThatAgent(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	completer.replies[key(domain.RoleGovernance)] = "Open a proposal and let the community vote."
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{
		Message:         "design the new api",
		RequestedAgents: []domain.Role{"Governance"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{key(domain.RoleGovernance)}, completer.keys())
	require.Len(t, resp.Responses, 1)
	assert.Equal(t, resp.Responses[0].Response, resp.Summary)
}

func TestOrchestrateUpstreamFailureIsDegradedResponse(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	completer.failures[key(domain.RoleCode)] = &llm.APIError{StatusCode: http.StatusInternalServerError, Message: "secret stack trace"}
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "hello there"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.TotalAgents)
	require.Len(t, resp.Responses, 1)
	got := resp.Responses[0]
	assert.True(t, got.Failed)
	assert.Contains(t, got.Response, "500")
	assert.NotContains(t, got.Response, "secret stack trace")
	assert.Empty(t, got.SuggestedNextAgents)
	assert.Equal(t, got.Response, resp.Summary)

	collabs, err := store.ListCollaborations(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, collabs, 1)
	assert.Equal(t, domain.CollaborationStatusFailed, collabs[0].Status)
}

func TestOrchestrateFailureTextIsPriorContextForLaterAgents(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	completer.failures[key(domain.RoleDesign)] = context.DeadlineExceeded
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "design the layout of this component"})
	require.NoError(t, err)

	require.Len(t, resp.Responses, 2)
	assert.True(t, resp.Responses[0].Failed)
	assert.Contains(t, resp.Responses[0].Response, "timed out")
	assert.False(t, resp.Responses[1].Failed)
	assert.Contains(t, completer.calls[1].SystemPrompt, resp.Responses[0].Response)
}

func TestOrchestrateSessionParticipantsGrowAcrossRequests(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	svc := newTestService(t, store, newScriptedCompleter())

	first, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "design the layout"})
	require.NoError(t, err)

	second, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{SessionID: first.SessionID, Message: "implement the api endpoint"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	session, err := store.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"design-agent", "code-agent"}, session.AgentsInvolved)

	collabs, err := store.ListCollaborations(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, collabs, 2)
}

func TestOrchestrateUnresponsiveAgentTimesOut(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	completer.hang[key(domain.RoleDesign)] = true
	timeout := 50 * time.Millisecond
	svc := New(store, completer, &config.Config{LLMTimeout: timeout}, nil)

	start := time.Now()
	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "design the layout of this component"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.Len(t, resp.Responses, 2)
	stalled := resp.Responses[0]
	assert.Equal(t, "design-agent", stalled.AgentID)
	assert.True(t, stalled.Failed)
	assert.Contains(t, stalled.Response, "timed out")
	assert.GreaterOrEqual(t, stalled.ProcessingTimeMs, timeout.Milliseconds())

	assert.Equal(t, "code-agent", resp.Responses[1].AgentID)
	assert.False(t, resp.Responses[1].Failed)
	assert.Equal(t, "ok from agent:code", resp.Responses[1].Response)
}

func TestOrchestrateSessionSweptMidRequestStaysFailed(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	require.NoError(t, store.CreateSession(ctx, &domain.Session{SessionID: "sess_long", Title: "t", Stage: domain.SessionStageCompleted}))

	completer := newScriptedCompleter()
	var stageAtStart domain.SessionStage
	completer.onCall = func(n int) {
		if n != 1 {
			return
		}
		session, err := store.GetSession(ctx, "sess_long")
		if err == nil && session != nil {
			stageAtStart = session.Stage
		}
		_, _ = store.MarkSessionFailed(ctx, "sess_long")
	}
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{SessionID: "sess_long", Message: "design the layout of this component"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalAgents)
	assert.Equal(t, domain.SessionStageProcessing, stageAtStart)

	session, err := store.GetSession(ctx, "sess_long")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStageFailed, session.Stage)
	assert.Equal(t, []string{"design-agent", "code-agent"}, session.AgentsInvolved)
}

func TestOrchestrateRecordsParticipantsAsTheyAnswer(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	require.NoError(t, store.CreateSession(ctx, &domain.Session{SessionID: "sess_p", Title: "t", Stage: domain.SessionStageCreated}))
	completer := newScriptedCompleter()
	svc := newTestService(t, store, completer)

	var seen *domain.Session
	completer.onCall = func(n int) {
		if n == 2 {
			seen, _ = store.GetSession(ctx, "sess_p")
		}
	}

	_, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{SessionID: "sess_p", Message: "design the layout of this component"})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, []string{"design-agent"}, seen.AgentsInvolved)
	assert.Equal(t, domain.SessionStageProcessing, seen.Stage)
}

func TestOrchestrateUnknownSessionStillAnswers(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	svc := newTestService(t, store, newScriptedCompleter())

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{SessionID: "sess_missing", Message: "implement it"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "sess_missing", resp.SessionID)
	assert.Equal(t, 1, resp.TotalAgents)
}

func TestOrchestrateSessionCreationFailureSkipsPersistence(t *testing.T) {
	ctx := context.Background()
	base := seededStore(t, fullCatalog()...)
	store := &flakyStore{Store: base, createErr: errStoreDown}
	completer := newScriptedCompleter()
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "implement it"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.SessionID)
	assert.Len(t, completer.keys(), 1)
}

func TestOrchestratePersistenceFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	base := seededStore(t, fullCatalog()...)
	store := &flakyStore{Store: base, collabErr: errStoreDown, updateErr: errStoreDown}
	svc := newTestService(t, store, newScriptedCompleter())

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "design the layout of this component"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.TotalAgents)
	assert.Empty(t, resp.Error)
}

func TestOrchestrateFatalErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty message", func(t *testing.T) {
		svc := newTestService(t, seededStore(t, fullCatalog()...), newScriptedCompleter())
		_, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "  "})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("no completion client", func(t *testing.T) {
		svc := newTestService(t, seededStore(t, fullCatalog()...), nil)
		_, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "hello"})
		assert.ErrorIs(t, err, ErrCompletionNotConfigured)
	})

	t.Run("empty registry", func(t *testing.T) {
		svc := newTestService(t, seededStore(t), newScriptedCompleter())
		_, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "hello"})
		assert.ErrorIs(t, err, ErrNoAgents)
	})

	t.Run("only inactive agents", func(t *testing.T) {
		agent := agentFor(domain.RoleCode, 1)
		agent.Active = false
		svc := newTestService(t, seededStore(t, agent), newScriptedCompleter())
		_, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "hello"})
		assert.ErrorIs(t, err, ErrNoAgents)
	})

	t.Run("all agents blocked by policy", func(t *testing.T) {
		agent := agentFor(domain.RoleCode, 1)
		agent.SystemPrompt = " "
		svc := newTestService(t, seededStore(t, agent), newScriptedCompleter())
		_, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "hello"})
		assert.ErrorIs(t, err, ErrNoAgents)
	})

	t.Run("registry unreachable", func(t *testing.T) {
		store := &flakyStore{Store: seededStore(t, fullCatalog()...), listErr: errStoreDown}
		svc := newTestService(t, store, newScriptedCompleter())
		_, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "hello"})
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
	})
}

func TestOrchestrateStopsOnCancellation(t *testing.T) {
	store := seededStore(t, fullCatalog()...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completer := newScriptedCompleter()
	completer.onCall = func(n int) {
		if n == 1 {
			cancel()
		}
	}
	svc := newTestService(t, store, completer)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "design the layout of this component"})
	require.NoError(t, err)

	assert.Len(t, resp.Responses, 1)
	assert.Len(t, completer.keys(), 1)

	session, err := store.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStageCompleted, session.Stage)
}

func TestOrchestrateTotalTimeIsSumOfResponses(t *testing.T) {
	store := seededStore(t, fullCatalog()...)
	svc := newTestService(t, store, newScriptedCompleter())

	resp, err := svc.Orchestrate(context.Background(), domain.OrchestrateRequest{Message: "design the layout of this component"})
	require.NoError(t, err)

	var sum int64
	for _, r := range resp.Responses {
		assert.GreaterOrEqual(t, r.ProcessingTimeMs, int64(0))
		sum += r.ProcessingTimeMs
	}
	assert.Equal(t, sum, resp.TotalProcessingTimeMs)
}

func TestOrchestrateReviewPassHonoursPolicy(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, fullCatalog()...)
	completer := newScriptedCompleter()
	completer.replies[key(domain.RoleCode)] = "Check compliance first."

	engine, err := policy.NewEngine(ctx, `
package agent_policy

default decision = "allow"

decision = "block" {
	input.agent.role == "legal"
	input.pass == "review"
}
`)
	require.NoError(t, err)
	svc := New(store, completer, &config.Config{}, engine)

	resp, err := svc.Orchestrate(ctx, domain.OrchestrateRequest{Message: "implement the api"})
	require.NoError(t, err)

	assert.Equal(t, []string{key(domain.RoleCode)}, completer.keys())
	assert.Equal(t, 1, resp.TotalAgents)
}

func TestOrchestrateWithMockClient(t *testing.T) {
	store := seededStore(t, fullCatalog()...)
	svc := New(store, llm.NewMockClient(), &config.Config{}, nil)

	resp, err := svc.Orchestrate(context.Background(), domain.OrchestrateRequest{Message: "implement the api"})
	require.NoError(t, err)
	require.Len(t, resp.Responses, 1)
	assert.Contains(t, resp.Responses[0].Response, "[MOCK]")
}

func TestOrchestrateMockRepliesDoNotTriggerReviews(t *testing.T) {
	store := seededStore(t, fullCatalog()...)
	svc := New(store, llm.NewMockClient(), &config.Config{}, nil)

	resp, err := svc.Orchestrate(context.Background(), domain.OrchestrateRequest{
		Message: "implement the api and validate it before the community vote",
	})
	require.NoError(t, err)

	var names []string
	for _, r := range resp.Responses {
		names = append(names, r.AgentID)
		assert.NotContains(t, r.Response, "validate")
	}
	assert.ElementsMatch(t, []string{"code-agent", "governance-agent"}, names)
	assert.Equal(t, 2, resp.TotalAgents)
}

func TestDescribeFailure(t *testing.T) {
	agent := domain.Agent{Name: "code", DisplayName: "Code Agent"}

	assert.Contains(t, describeFailure(agent, &llm.APIError{StatusCode: 429}), "status 429")
	assert.Contains(t, describeFailure(agent, context.Canceled), "cancelled")
	assert.Contains(t, describeFailure(agent, errors.New("dial tcp 10.0.0.1:443: connection refused")), "unavailable")
	assert.NotContains(t, describeFailure(agent, errors.New("dial tcp 10.0.0.1:443")), "10.0.0.1")
}
