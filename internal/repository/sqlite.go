package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/ensemble/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			agent_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			system_prompt TEXT NOT NULL,
			capabilities TEXT,
			priority INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agents_active_priority ON agents(active, priority)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			current_stage TEXT NOT NULL,
			agents_involved TEXT NOT NULL DEFAULT '[]',
			workflow_state TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_stage_updated ON sessions(current_stage, updated_at)`,
		`CREATE TABLE IF NOT EXISTS collaborations (
			collaboration_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			request_type TEXT NOT NULL,
			request_payload TEXT,
			response_payload TEXT,
			status TEXT NOT NULL,
			processing_time_ms INTEGER NOT NULL DEFAULT 0,
			completed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collaborations_session ON collaborations(session_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const agentColumns = `agent_id, name, display_name, role, system_prompt, capabilities, priority, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var caps sql.NullString
	if err := row.Scan(&agent.AgentID, &agent.Name, &agent.DisplayName, &agent.Role, &agent.SystemPrompt,
		&caps, &agent.Priority, &agent.Active, &agent.CreatedAt, &agent.UpdatedAt); err != nil {
		return nil, err
	}
	if caps.Valid && caps.String != "" {
		if err := json.Unmarshal([]byte(caps.String), &agent.Capabilities); err != nil {
			return nil, fmt.Errorf("agent %s capabilities: %w", agent.AgentID, err)
		}
	}
	return &agent, nil
}

// UpsertAgent registers or updates an agent. CreatedAt is kept on update.
func (s *SQLiteStore) UpsertAgent(ctx context.Context, agent *domain.Agent) error {
	caps, err := json.Marshal(agent.Capabilities)
	if err != nil {
		return fmt.Errorf("failed to marshal capabilities: %w", err)
	}
	now := time.Now().UTC()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (`+agentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET
			name = excluded.name,
			display_name = excluded.display_name,
			role = excluded.role,
			system_prompt = excluded.system_prompt,
			capabilities = excluded.capabilities,
			priority = excluded.priority,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		agent.AgentID, agent.Name, agent.DisplayName, agent.Role, agent.SystemPrompt,
		string(caps), agent.Priority, agent.Active, agent.CreatedAt.UTC(), agent.UpdatedAt)
	return err
}

// GetAgent retrieves an agent by ID. A missing agent yields nil, nil.
func (s *SQLiteStore) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := scanAgent(s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE agent_id = ?`, agentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return agent, err
}

// ListAgents lists all agents by ascending priority.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	return s.queryAgents(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY priority ASC, agent_id ASC`)
}

// ListActiveAgents lists active agents by ascending priority.
func (s *SQLiteStore) ListActiveAgents(ctx context.Context) ([]domain.Agent, error) {
	return s.queryAgents(ctx, `SELECT `+agentColumns+` FROM agents WHERE active = 1 ORDER BY priority ASC, agent_id ASC`)
}

func (s *SQLiteStore) queryAgents(ctx context.Context, query string) ([]domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}

// CountAgents returns the number of registered agents.
func (s *SQLiteStore) CountAgents(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&n)
	return n, err
}

const sessionColumns = `session_id, title, description, current_stage, agents_involved, workflow_state, created_at, updated_at`

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var agents string
	var state sql.NullString
	if err := row.Scan(&session.SessionID, &session.Title, &session.Description, &session.Stage,
		&agents, &state, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(agents), &session.AgentsInvolved); err != nil {
		return nil, fmt.Errorf("session %s agents_involved: %w", session.SessionID, err)
	}
	if state.Valid && state.String != "" {
		session.WorkflowState = json.RawMessage(state.String)
	}
	return &session, nil
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	agents, err := json.Marshal(domain.MergeAgentIDs(nil, session.AgentsInvolved))
	if err != nil {
		return fmt.Errorf("failed to marshal agents: %w", err)
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	var state sql.NullString
	if len(session.WorkflowState) > 0 {
		state = sql.NullString{String: string(session.WorkflowState), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.Title, session.Description, session.Stage, string(agents), state,
		session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	return err
}

// GetSession retrieves a session by ID. A missing session yields nil, nil.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

// UpdateSessionProgress merges update into a session in one transaction.
// Participants are unioned with the stored set and a stage that would move
// the session backwards is ignored.
func (s *SQLiteStore) UpdateSessionProgress(ctx context.Context, sessionID string, update domain.SessionUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var agentsJSON string
	var stage domain.SessionStage
	err = tx.QueryRowContext(ctx,
		`SELECT agents_involved, current_stage FROM sessions WHERE session_id = ?`, sessionID).Scan(&agentsJSON, &stage)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var existing []string
	if err := json.Unmarshal([]byte(agentsJSON), &existing); err != nil {
		return fmt.Errorf("session %s agents_involved: %w", sessionID, err)
	}
	merged, err := json.Marshal(domain.MergeAgentIDs(existing, update.AgentsInvolved))
	if err != nil {
		return err
	}

	next := stage
	if update.Stage != "" && update.Stage.Rank() >= stage.Rank() {
		next = update.Stage
	}

	var state sql.NullString
	if len(update.WorkflowState) > 0 {
		state = sql.NullString{String: string(update.WorkflowState), Valid: true}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET agents_involved = ?, current_stage = ?, workflow_state = COALESCE(?, workflow_state), updated_at = ?
		 WHERE session_id = ?`,
		string(merged), next, state, time.Now().UTC(), sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReopenSession starts a new request on an existing session: the stage goes
// back to processing whatever it was, and updated_at is refreshed.
func (s *SQLiteStore) ReopenSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET current_stage = ?, updated_at = ? WHERE session_id = ?`,
		domain.SessionStageProcessing, time.Now().UTC(), sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleSessions lists sessions still in flight whose last update is older than olderThan.
func (s *SQLiteStore) ListStaleSessions(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE current_stage IN ('created', 'processing')
		  AND ((julianday('now') - julianday(updated_at)) * 86400000.0) >= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`, olderThan.Milliseconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSessionFailed moves an in-flight session to failed. It reports false
// when the session already reached a terminal stage.
func (s *SQLiteStore) MarkSessionFailed(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET current_stage = ?, updated_at = ? WHERE session_id = ? AND current_stage IN ('created', 'processing')`,
		domain.SessionStageFailed, time.Now().UTC(), sessionID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CreateCollaboration writes one collaboration record.
func (s *SQLiteStore) CreateCollaboration(ctx context.Context, collab *domain.Collaboration) error {
	if collab.CompletedAt.IsZero() {
		collab.CompletedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collaborations (collaboration_id, session_id, agent_id, request_type, request_payload, response_payload, status, processing_time_ms, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		collab.CollaborationID, collab.SessionID, collab.AgentID, collab.RequestKind,
		string(collab.RequestPayload), string(collab.ResponsePayload), collab.Status,
		collab.ProcessingTimeMs, collab.CompletedAt.UTC())
	return err
}

// ListCollaborations lists a session's collaborations in insertion order.
func (s *SQLiteStore) ListCollaborations(ctx context.Context, sessionID string) ([]domain.Collaboration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT collaboration_id, session_id, agent_id, request_type, request_payload, response_payload, status, processing_time_ms, completed_at
		 FROM collaborations WHERE session_id = ? ORDER BY rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Collaboration
	for rows.Next() {
		var c domain.Collaboration
		var reqPayload, respPayload sql.NullString
		if err := rows.Scan(&c.CollaborationID, &c.SessionID, &c.AgentID, &c.RequestKind,
			&reqPayload, &respPayload, &c.Status, &c.ProcessingTimeMs, &c.CompletedAt); err != nil {
			return nil, err
		}
		if reqPayload.Valid && reqPayload.String != "" {
			c.RequestPayload = json.RawMessage(reqPayload.String)
		}
		if respPayload.Valid && respPayload.String != "" {
			c.ResponsePayload = json.RawMessage(respPayload.String)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
