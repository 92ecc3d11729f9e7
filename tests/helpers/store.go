// Package helpers holds shared test fixtures.
package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/repository"
)

// NewTestSQLiteStore opens an in-memory store closed at test cleanup.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedAgents upserts agents into s or fails the test.
func SeedAgents(t *testing.T, s repository.Store, agents ...domain.Agent) {
	t.Helper()
	for i := range agents {
		if err := s.UpsertAgent(context.Background(), &agents[i]); err != nil {
			t.Fatalf("failed to seed agent %s: %v", agents[i].AgentID, err)
		}
	}
}
