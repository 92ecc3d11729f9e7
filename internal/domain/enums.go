// Package domain defines the core domain models for the orchestrator.
package domain

import "strings"

// Role tags an agent with the area it is responsible for.
type Role string

const (
	RoleDesign     Role = "design"
	RoleCode       Role = "code"
	RoleTesting    Role = "testing"
	RoleLegal      Role = "legal"
	RoleGovernance Role = "governance"
)

// KnownRoles lists the role tags the catalog accepts.
var KnownRoles = []Role{RoleDesign, RoleCode, RoleTesting, RoleLegal, RoleGovernance}

// NormalizeRole lower-cases and trims a role tag.
func NormalizeRole(r string) Role {
	return Role(strings.ToLower(strings.TrimSpace(r)))
}

// IsKnown reports whether r is one of KnownRoles.
func (r Role) IsKnown() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// SessionStage represents the lifecycle stage of a session.
type SessionStage string

const (
	SessionStageCreated    SessionStage = "created"
	SessionStageProcessing SessionStage = "processing"
	SessionStageCompleted  SessionStage = "completed"
	SessionStageFailed     SessionStage = "failed"
)

// Rank orders stages so updates can refuse to move a session backwards.
// Failed outranks completed: a request finishing after the sweeper gave up
// on it leaves the session failed.
func (s SessionStage) Rank() int {
	switch s {
	case SessionStageCreated:
		return 0
	case SessionStageProcessing:
		return 1
	case SessionStageCompleted:
		return 2
	case SessionStageFailed:
		return 3
	}
	return -1
}

// IsTerminal reports whether the stage ends a session's current request.
func (s SessionStage) IsTerminal() bool {
	return s == SessionStageCompleted || s == SessionStageFailed
}

// RequestKind tags a collaboration record with the pass that produced it.
type RequestKind string

const (
	RequestKindGenerate RequestKind = "generate"
	RequestKindReview   RequestKind = "review"
)

// CollaborationStatus represents the outcome of one agent invocation.
type CollaborationStatus string

const (
	CollaborationStatusCompleted CollaborationStatus = "completed"
	CollaborationStatusFailed    CollaborationStatus = "failed"
)
