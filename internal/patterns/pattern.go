// Package patterns holds the smart query patterns: deterministic matchers for
// common tracker questions that map to fixed, parameterised SQL.
package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// Shape tags how a pattern's rows are turned into a response.
type Shape string

const (
	ShapeTickets  Shape = "tickets"
	ShapeWorkload Shape = "workload"
)

// Matcher reports whether a normalized query has the pattern's shape.
type Matcher func(normalized string) bool

// ParamsFunc builds the bound arguments for a template.
type ParamsFunc func(project string, now time.Time) []any

// Pattern is a deterministic query shape with its SQL template.
type Pattern struct {
	Name        string
	Description string
	Shape       Shape
	// ProjectScoped patterns cannot run without a concrete project.
	ProjectScoped bool

	match  Matcher
	sql    string
	params ParamsFunc
}

// Rendered is a pattern's SQL ready for execution.
type Rendered struct {
	SQL         string
	Args        []any
	Description string
}

// Matches reports whether the pattern fires for a normalized query.
func (p *Pattern) Matches(normalized string) bool {
	return p.match != nil && p.match(normalized)
}

// Render binds the template to a project and the current time.
func (p *Pattern) Render(project string, now time.Time) (Rendered, error) {
	project = strings.TrimSpace(project)
	if p.ProjectScoped && project == "" {
		return Rendered{}, &domain.AmbiguousScopeError{}
	}
	var args []any
	if p.params != nil {
		args = p.params(project, now)
	}
	if want := strings.Count(p.sql, "?"); want != len(args) {
		return Rendered{}, fmt.Errorf("pattern %s: template wants %d args, got %d", p.Name, want, len(args))
	}
	return Rendered{SQL: strings.TrimSpace(p.sql), Args: args, Description: p.Description}, nil
}

// Normalize lower-cases a query and reduces it to single-spaced word tokens.
// Apostrophes are dropped so "haven't" becomes "havent".
func Normalize(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	space := true
	for _, r := range strings.ToLower(query) {
		switch {
		case r == '\'' || r == '’':
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits a normalized query into words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// anyPhrase matches when one of the phrases occurs on word boundaries.
func anyPhrase(phrases ...string) Matcher {
	return func(q string) bool {
		return ContainsAnyPhrase(q, phrases...)
	}
}

// ContainsAnyPhrase reports whether a normalized query contains one of the
// phrases as whole words.
func ContainsAnyPhrase(normalized string, phrases ...string) bool {
	padded := " " + normalized + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func regex(expr string) Matcher {
	re := regexp.MustCompile(expr)
	return func(q string) bool {
		return re.MatchString(q)
	}
}

func both(a, b Matcher) Matcher {
	return func(q string) bool {
		return a(q) && b(q)
	}
}

func either(a, b Matcher) Matcher {
	return func(q string) bool {
		return a(q) || b(q)
	}
}
