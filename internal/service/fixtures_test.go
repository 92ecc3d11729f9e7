package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/xiaot623/ensemble/internal/adapter/llm"
	"github.com/xiaot623/ensemble/internal/config"
	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/repository"
	"github.com/xiaot623/ensemble/policy"
	"github.com/xiaot623/ensemble/tests/helpers"
)

// scriptedCompleter answers by agent: the first line of the system prompt
// names the agent.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  map[string]string
	failures map[string]error
	hang     map[string]bool
	calls    []llm.CompletionRequest
	onCall   func(n int)
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		replies:  make(map[string]string),
		failures: make(map[string]error),
		hang:     make(map[string]bool),
	}
}

func promptKey(systemPrompt string) string {
	return strings.SplitN(systemPrompt, "\n", 2)[0]
}

func (c *scriptedCompleter) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, *req)
	n := len(c.calls)
	key := promptKey(req.SystemPrompt)
	reply, ok := c.replies[key]
	err := c.failures[key]
	hang := c.hang[key]
	hook := c.onCall
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		reply = "ok from " + key
	}
	return &llm.CompletionResult{Content: reply, Model: "scripted"}, nil
}

func (c *scriptedCompleter) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = promptKey(call.SystemPrompt)
	}
	return out
}

func agentFor(role domain.Role, priority int) domain.Agent {
	return domain.Agent{
		AgentID:      string(role) + "-agent",
		Name:         string(role),
		DisplayName:  strings.ToUpper(string(role)[:1]) + string(role)[1:] + " Agent",
		Role:         role,
		SystemPrompt: "agent:" + string(role) + "\nAnswer as the " + string(role) + " specialist.",
		Priority:     priority,
		Active:       true,
	}
}

func fullCatalog() []domain.Agent {
	return []domain.Agent{
		agentFor(domain.RoleDesign, 1),
		agentFor(domain.RoleCode, 2),
		agentFor(domain.RoleTesting, 3),
		agentFor(domain.RoleLegal, 4),
		agentFor(domain.RoleGovernance, 5),
	}
}

func key(role domain.Role) string { return "agent:" + string(role) }

func newTestService(t *testing.T, store repository.Store, completer llm.Completer) *Service {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	cfg := &config.Config{LLMModel: "test-model", LLMMaxTokens: 256}
	return New(store, completer, cfg, engine)
}

func seededStore(t *testing.T, agents ...domain.Agent) *repository.SQLiteStore {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	helpers.SeedAgents(t, store, agents...)
	return store
}

// flakyStore fails selected operations of an otherwise working store.
type flakyStore struct {
	repository.Store
	listErr   error
	createErr error
	updateErr error
	collabErr error
}

func (f *flakyStore) ListActiveAgents(ctx context.Context) ([]domain.Agent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.ListActiveAgents(ctx)
}

func (f *flakyStore) CreateSession(ctx context.Context, s *domain.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.Store.CreateSession(ctx, s)
}

func (f *flakyStore) UpdateSessionProgress(ctx context.Context, id string, u domain.SessionUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.Store.UpdateSessionProgress(ctx, id, u)
}

func (f *flakyStore) CreateCollaboration(ctx context.Context, c *domain.Collaboration) error {
	if f.collabErr != nil {
		return f.collabErr
	}
	return f.Store.CreateCollaboration(ctx, c)
}

var errStoreDown = errors.New("database is locked")
