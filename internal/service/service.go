// Package service runs the query pipeline: classify, route, execute,
// assemble, and record.
package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/assembler"
	"github.com/AbhigyanVE/ScrumMaster/internal/contextstore"
	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
	"github.com/AbhigyanVE/ScrumMaster/internal/intent"
	"github.com/AbhigyanVE/ScrumMaster/internal/repository"
	"github.com/AbhigyanVE/ScrumMaster/internal/router"
)

// ErrInvalidRequest is returned for requests missing a query or session.
var ErrInvalidRequest = domain.ErrInvalidRequest

// MaxQueryLength bounds the accepted question size in bytes.
const MaxQueryLength = 2000

type Service struct {
	store        repository.Store
	context      contextstore.Store
	classifier   *intent.Classifier
	router       *router.Router
	assembler    *assembler.Assembler
	sessionLocks *contextstore.KeyedMutex
	logger       *zap.Logger
	now          func() time.Time
}

func New(store repository.Store, ctxStore contextstore.Store, classifier *intent.Classifier, r *router.Router, a *assembler.Assembler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		context:      ctxStore,
		classifier:   classifier,
		router:       r,
		assembler:    a,
		sessionLocks: contextstore.NewKeyedMutex(),
		logger:       logger,
		now:          time.Now,
	}
}

func validate(query, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return fmt.Errorf("%w: query exceeds %d bytes", ErrInvalidRequest, MaxQueryLength)
	}
	return nil
}
