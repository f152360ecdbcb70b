package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/assembler"
	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
	"github.com/AbhigyanVE/ScrumMaster/internal/logging"
	"github.com/AbhigyanVE/ScrumMaster/internal/router"
)

// Handle answers one query for a session. Queries from the same session are
// handled one at a time. Pipeline failures are reported in the response; an
// error is returned only for invalid requests or when the session context
// cannot be read.
func (s *Service) Handle(ctx context.Context, query, sessionID string) (*domain.Response, error) {
	if err := validate(query, sessionID); err != nil {
		return nil, err
	}

	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	ctx = logging.WithSessionID(ctx, sessionID)
	log := logging.FromContext(ctx, s.logger)

	session, err := s.context.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session context: %w", err)
	}

	in := s.classifier.Classify(query, session)
	s.record(ctx, sessionID, domain.EventTypeQueryClassified, in)
	log.Info("query classified",
		zap.String("intent", string(in.Category)),
		zap.String("depth", string(in.Depth)),
		zap.String("pattern", in.Pattern),
		zap.Bool("follow_up", in.FollowUp()))

	route, err := s.router.Route(ctx, in, session)
	if err != nil {
		var ambiguous *domain.AmbiguousScopeError
		if errors.As(err, &ambiguous) {
			return s.clarify(ctx, sessionID, in, ambiguous)
		}
		return s.fail(ctx, sessionID, in, err), nil
	}
	s.record(ctx, sessionID, domain.EventTypeQueryRouted, map[string]any{
		"kind":      route.Kind,
		"pattern":   route.Pattern,
		"project":   route.Project,
		"needs_llm": route.NeedsLLM,
		"sql":       route.SQL,
	})

	if route.Kind == router.RouteCanned {
		if route.ResetContext {
			if err := s.resetLocked(ctx, sessionID); err != nil {
				return s.fail(ctx, sessionID, in, err), nil
			}
		}
		return assembler.Canned(sessionID, in), nil
	}

	rows, err := s.store.Query(ctx, route.SQL, route.Args...)
	if err != nil {
		return s.fail(ctx, sessionID, in, err), nil
	}
	s.record(ctx, sessionID, domain.EventTypeSQLExecuted, map[string]any{
		"rows":    rows.Len(),
		"columns": rows.Columns,
	})

	resp, err := s.assembler.Assemble(ctx, assembler.Input{SessionID: sessionID, Route: route, Rows: rows})
	if err != nil {
		return s.fail(ctx, sessionID, in, err), nil
	}
	s.record(ctx, sessionID, domain.EventTypeResponseAssembled, map[string]any{
		"kind":   resp.Kind,
		"status": resp.Status,
	})
	return resp, nil
}

func (s *Service) clarify(ctx context.Context, sessionID string, in domain.Intent, ambiguous *domain.AmbiguousScopeError) (*domain.Response, error) {
	s.record(ctx, sessionID, domain.EventTypeQueryRouted, map[string]any{
		"kind":       "clarification",
		"candidates": ambiguous.Candidates,
		"unknown":    ambiguous.Unknown,
	})
	resp, err := s.assembler.Clarify(ctx, sessionID, in, ambiguous)
	if err != nil {
		return s.fail(ctx, sessionID, in, err), nil
	}
	return resp, nil
}

// fail logs a pipeline failure and returns the matching response.
func (s *Service) fail(ctx context.Context, sessionID string, in domain.Intent, err error) *domain.Response {
	log := logging.FromContext(ctx, s.logger)
	resp := assembler.Failure(sessionID, in, err)
	if resp.Status == domain.StatusError {
		log.Error("query failed", zap.Error(err))
	} else {
		log.Warn("query not answered", zap.String("status", string(resp.Status)), zap.Error(err))
	}
	s.record(ctx, sessionID, domain.EventTypeQueryFailed, map[string]any{
		"status": resp.Status,
		"error":  err.Error(),
	})
	return resp
}
