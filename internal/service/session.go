package service

import (
	"context"
	"fmt"
	"time"

	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/repository"
)

// GetSession returns a session or repository.ErrNotFound.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, repository.ErrNotFound
	}
	return session, nil
}

// ListCollaborations returns the audit trail of a session in write order.
func (s *Service) ListCollaborations(ctx context.Context, sessionID string) ([]domain.Collaboration, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	collabs, err := s.store.ListCollaborations(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborations: %w", err)
	}
	if collabs == nil {
		collabs = []domain.Collaboration{}
	}
	return collabs, nil
}

// RunSessionMonitor marks sessions abandoned mid-request as failed until ctx ends.
func (s *Service) RunSessionMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepStaleSessions(ctx)
		}
	}
}

// SweepStaleSessions marks in-flight sessions idle longer than the configured
// threshold as failed and returns how many it updated.
func (s *Service) SweepStaleSessions(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	staleAfter := s.config.SessionStaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	stale, err := s.store.ListStaleSessions(sweepCtx, staleAfter, 100)
	if err != nil {
		log.Warn(ctx, log.KV{K: "msg", V: "stale session sweep failed"}, log.KV{K: "err", V: err.Error()})
		return 0
	}

	failed := 0
	for _, session := range stale {
		updated, err := s.store.MarkSessionFailed(sweepCtx, session.SessionID)
		if err != nil {
			log.Warn(ctx,
				log.KV{K: "msg", V: "failed to mark session failed"},
				log.KV{K: "session_id", V: session.SessionID},
				log.KV{K: "err", V: err.Error()})
			continue
		}
		if updated {
			failed++
			log.Info(ctx, log.KV{K: "msg", V: "stale session marked failed"}, log.KV{K: "session_id", V: session.SessionID})
		}
	}
	return failed
}
