// Package repository persists tracker data, session context and pipeline
// events in SQLite.
package repository

import (
	"context"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Relational query surface (read-only)
	Query(ctx context.Context, query string, args ...any) (*domain.ResultSet, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListAssignees(ctx context.Context, limit int) ([]string, error)
	Stats(ctx context.Context) (*domain.Stats, error)

	// Loading
	ReplaceProject(ctx context.Context, project domain.Project, issues []domain.Issue) error

	// Session context persistence
	LoadSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SaveSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	Close() error
}

// Tables lists the tables generated SQL may read.
var Tables = []string{"issues", "projects"}
