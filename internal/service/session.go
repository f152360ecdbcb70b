package service

import (
	"context"
	"fmt"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// GetContext returns a session's context, creating an empty one on first use.
func (s *Service) GetContext(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	session, err := s.context.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session context: %w", err)
	}
	return session, nil
}

// ResetContext clears a session's persisted and mirrored context.
func (s *Service) ResetContext(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()
	return s.resetLocked(ctx, sessionID)
}

func (s *Service) resetLocked(ctx context.Context, sessionID string) error {
	if err := s.context.Reset(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session context: %w", err)
	}
	s.record(ctx, sessionID, domain.EventTypeContextReset, nil)
	return nil
}

// ListProjects returns the loaded projects.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, nil
}

// Stats returns the quick counters.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
