// Package contextstore keeps the bounded per-session conversation context.
//
// The persisted record and the language model's mirrored conversation are a
// single logical resource: every mutation goes through Paired, which applies
// it to both sides or to neither.
package contextstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// Store is the context store contract used by the pipeline.
type Store interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Append(ctx context.Context, sessionID string, ex domain.Exchange) (*domain.Session, error)
	Reset(ctx context.Context, sessionID string) error
}

// Persistence is a keyed record store holding one record per session.
type Persistence interface {
	// LoadSession returns nil, nil when the session does not exist.
	LoadSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SaveSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Mirror is the conversational state held on the language model side.
type Mirror interface {
	Record(sessionID string, ex domain.Exchange) error
	Replace(sessionID string, exchanges []domain.Exchange) error
	Clear(sessionID string) error
	// Matches reports whether the mirror holds exactly these exchanges.
	Matches(sessionID string, exchanges []domain.Exchange) bool
}

// Paired couples a Persistence with a Mirror.
type Paired struct {
	persist Persistence
	mirror  Mirror
	locks   *KeyedMutex
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Paired store.
type Option func(*Paired)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Paired) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Paired) { p.logger = logger }
}

// NewPaired creates a paired store.
func NewPaired(persist Persistence, mirror Mirror, opts ...Option) *Paired {
	p := &Paired{
		persist: persist,
		mirror:  mirror,
		locks:   NewKeyedMutex(),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the session, creating it on first use. A mirror whose content
// has drifted from the persisted record (e.g. after a restart) is rebuilt.
func (p *Paired) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	unlock := p.locks.Lock(sessionID)
	defer unlock()

	s, err := p.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !p.mirror.Matches(sessionID, s.Exchanges) {
		if err := p.mirror.Replace(sessionID, s.Exchanges); err != nil {
			return nil, fmt.Errorf("resync mirror: %w", err)
		}
	}
	return s.Clone(), nil
}

// Append adds an exchange to both sides, keeping at most domain.MaxExchanges.
func (p *Paired) Append(ctx context.Context, sessionID string, ex domain.Exchange) (*domain.Session, error) {
	unlock := p.locks.Lock(sessionID)
	defer unlock()

	s, err := p.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snapshot := s.Clone()

	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = p.now()
	}
	s.Push(ex, p.now())
	if err := p.persist.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := p.mirror.Record(sessionID, ex); err != nil {
		if rbErr := p.persist.SaveSession(ctx, snapshot); rbErr != nil {
			p.logger.Error("context rollback failed",
				zap.String("session_id", sessionID), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("record exchange in mirror: %w", err)
	}
	return s.Clone(), nil
}

// Reset clears the persisted record and the mirror. It is idempotent.
func (p *Paired) Reset(ctx context.Context, sessionID string) error {
	unlock := p.locks.Lock(sessionID)
	defer unlock()

	snapshot, err := p.persist.LoadSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := p.persist.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := p.mirror.Clear(sessionID); err != nil {
		if snapshot != nil {
			if rbErr := p.persist.SaveSession(ctx, snapshot); rbErr != nil {
				p.logger.Error("context rollback failed",
					zap.String("session_id", sessionID), zap.Error(rbErr))
			}
		}
		return fmt.Errorf("clear mirror: %w", err)
	}
	return nil
}

func (p *Paired) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, err := p.persist.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s != nil {
		return s, nil
	}
	s = domain.NewSession(sessionID, p.now())
	if err := p.persist.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}
