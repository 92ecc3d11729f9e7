// Package repository defines the storage interface and its SQLite implementation.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/xiaot623/ensemble/internal/domain"
)

// ErrNotFound is returned by updates addressed at a missing row.
var ErrNotFound = errors.New("not found")

// Store defines the interface for data persistence.
type Store interface {
	// Agent operations
	UpsertAgent(ctx context.Context, agent *domain.Agent) error
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	ListActiveAgents(ctx context.Context) ([]domain.Agent, error)
	CountAgents(ctx context.Context) (int, error)

	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	UpdateSessionProgress(ctx context.Context, sessionID string, update domain.SessionUpdate) error
	ReopenSession(ctx context.Context, sessionID string) error
	ListStaleSessions(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Session, error)
	MarkSessionFailed(ctx context.Context, sessionID string) (bool, error)

	// Collaboration operations
	CreateCollaboration(ctx context.Context, collab *domain.Collaboration) error
	ListCollaborations(ctx context.Context, sessionID string) ([]domain.Collaboration, error)

	// Lifecycle
	Close() error
}
