// Package router decides how a classified query is answered: a canned reply,
// a pattern shortcut, or SQL generated by the language model.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/adapter/llm"
	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
	"github.com/AbhigyanVE/ScrumMaster/internal/logging"
	"github.com/AbhigyanVE/ScrumMaster/internal/patterns"
)

// RouteKind is the path a query takes through the pipeline.
type RouteKind string

const (
	RouteCanned    RouteKind = "canned"
	RoutePattern   RouteKind = "pattern"
	RouteGenerated RouteKind = "generated"
)

// Route is the router's decision for one query.
type Route struct {
	Kind   RouteKind     `json:"kind"`
	Intent domain.Intent `json:"intent"`
	SQL    string        `json:"sql,omitempty"`
	Args   []any         `json:"args,omitempty"`
	// Project is the resolved scope, empty for global queries.
	Project string `json:"project,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	// Description is the pattern's description for pattern routes.
	Description string `json:"description,omitempty"`
	// NeedsLLM is set when the SQL came from the generator.
	NeedsLLM bool `json:"needs_llm"`
	// ResetContext asks the caller to clear the session context.
	ResetContext bool `json:"reset_context,omitempty"`
	// Notice flags a route whose answer should be treated with care.
	Notice string `json:"notice,omitempty"`
}

// UnscopedNote is set on generated routes whose SQL does not filter by the
// resolved project.
const UnscopedNote = "the generated query is not limited to the requested project"

// Catalog lists what exists in the relational store.
type Catalog interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListAssignees(ctx context.Context, limit int) ([]string, error)
}

// SQLGenerator produces SQL for questions no pattern covers.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, req llm.SQLRequest) (string, error)
}

// QueryGuard rejects statements that are not single read-only queries.
type QueryGuard interface {
	Check(ctx context.Context, sql string) error
}

// Router routes classified intents.
type Router struct {
	patterns  *patterns.Library
	catalog   Catalog
	generator SQLGenerator
	guard     QueryGuard
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithClock sets the time source used to render patterns.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithLogger sets the router's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New creates a router.
func New(lib *patterns.Library, catalog Catalog, generator SQLGenerator, guard QueryGuard, opts ...Option) *Router {
	if lib == nil {
		lib = patterns.Default()
	}
	r := &Router{
		patterns:  lib,
		catalog:   catalog,
		generator: generator,
		guard:     guard,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const promptAssignees = 20

var globalPhrases = []string{
	"all projects", "across projects", "every project", "each project",
	"across all projects", "all the projects", "per project",
}

// Route returns the route for an intent. It fails with AmbiguousScopeError
// when a query needs one project and none can be resolved, and with
// UnsafeQueryError when generated SQL is not read-only.
func (r *Router) Route(ctx context.Context, in domain.Intent, session *domain.Session) (*Route, error) {
	log := logging.FromContext(ctx, r.logger)

	if in.Category.IsSocial() {
		return &Route{
			Kind:         RouteCanned,
			Intent:       in,
			ResetContext: in.Category == domain.IntentFarewell,
		}, nil
	}

	projects, err := r.catalog.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	scope := resolveScope(in, session, projects)
	if scope.unknown != "" {
		log.Info("query names an unknown project", zap.String("project", scope.unknown))
		return nil, &domain.AmbiguousScopeError{Unknown: scope.unknown, Candidates: projectKeys(projects)}
	}

	if in.Pattern != "" {
		return r.patternRoute(in, scope, projects)
	}

	project := scope.explicit
	if project == "" && !scope.global && needsProject(in.Category) {
		project = scope.inherited
		if project == "" {
			return nil, &domain.AmbiguousScopeError{Candidates: projectKeys(projects)}
		}
	}

	assignees, err := r.catalog.ListAssignees(ctx, promptAssignees)
	if err != nil {
		log.Warn("failed to list assignees for prompt", zap.Error(err))
	}
	sql, err := r.generator.GenerateSQL(ctx, llm.SQLRequest{
		Question:  in.Query,
		Previous:  in.Previous,
		Intent:    in.Category,
		Depth:     in.Depth,
		Project:   project,
		Projects:  projects,
		Assignees: assignees,
	})
	if err != nil {
		return nil, err
	}
	if err := r.guard.Check(ctx, sql); err != nil {
		log.Warn("generated sql rejected", zap.String("sql", sql), zap.Error(err))
		return nil, err
	}
	route := &Route{
		Kind:     RouteGenerated,
		Intent:   in,
		SQL:      sql,
		Project:  project,
		NeedsLLM: true,
	}
	if project != "" && !mentionsProject(sql, project) {
		log.Warn("generated sql does not reference the resolved project",
			zap.String("project", project), zap.String("sql", sql))
		route.Notice = UnscopedNote
	}
	return route, nil
}

func (r *Router) patternRoute(in domain.Intent, scope scope, projects []domain.Project) (*Route, error) {
	p, ok := r.patterns.Get(in.Pattern)
	if !ok {
		return nil, fmt.Errorf("pattern not found: %s", in.Pattern)
	}

	// Unscoped patterns filter only by a project the user named.
	project := scope.explicit
	if p.ProjectScoped && project == "" {
		project = scope.inherited
	}
	rendered, err := p.Render(project, r.now())
	if err != nil {
		var ambiguous *domain.AmbiguousScopeError
		if errors.As(err, &ambiguous) {
			return nil, &domain.AmbiguousScopeError{Candidates: projectKeys(projects)}
		}
		return nil, err
	}

	return &Route{
		Kind:        RoutePattern,
		Intent:      in,
		SQL:         rendered.SQL,
		Args:        rendered.Args,
		Project:     project,
		Pattern:     p.Name,
		Description: rendered.Description,
	}, nil
}

// scope is the project resolution for one query.
type scope struct {
	// explicit is a known project key named in the query.
	explicit string
	// inherited is the fallback: the last exchange's project, or the only project.
	inherited string
	// unknown is a key the query names that is not a loaded project.
	unknown string
	// global is set when the query asks about every project.
	global bool
}

func resolveScope(in domain.Intent, session *domain.Session, projects []domain.Project) scope {
	var s scope
	norm := patterns.Normalize(in.Query)
	if patterns.ContainsAnyPhrase(norm, globalPhrases...) {
		s.global = true
		return s
	}

	known := make(map[string]bool, len(projects))
	for _, p := range projects {
		known[p.Key] = true
	}
	var stray string
	for _, tok := range patterns.UppercaseTokens(in.Query) {
		if known[tok] {
			s.explicit = tok
			break
		}
		if stray == "" {
			stray = tok
		}
	}
	key, _ := patterns.ExtractProject(in.Query)
	switch {
	case len(projects) == 0:
		// Nothing loaded to validate against: trust an explicit "project KEY".
		s.explicit = key
	case key != "" && !known[key]:
		// A project the user named is never swapped for another one.
		s.explicit, s.unknown = "", key
		return s
	case s.explicit == "" && stray != "" && in.FollowUp():
		s.unknown = stray
		return s
	}

	if last, ok := session.Last(); ok && last.Project != "" {
		s.inherited = last.Project
	} else if len(projects) == 1 {
		s.inherited = projects[0].Key
	}
	return s
}

func needsProject(c domain.IntentCategory) bool {
	return c == domain.IntentHealth || c == domain.IntentStandup
}

func projectKeys(projects []domain.Project) []string {
	keys := make([]string, 0, len(projects))
	for _, p := range projects {
		keys = append(keys, p.Key)
	}
	return keys
}

func mentionsProject(sql, project string) bool {
	return strings.Contains(strings.ToUpper(sql), "'"+strings.ToUpper(project)+"'")
}
