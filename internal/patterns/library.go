package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// OverloadThreshold is the open-issue count above which an assignee is overloaded.
	OverloadThreshold = 10
	// DueSoonDays is the look-ahead window of the due_soon pattern.
	DueSoonDays = 3
	// StuckDays mirrors domain.StuckThreshold in whole days for SQL.
	StuckDays = 7
)

const issueColumns = `issue_key, summary, status, assignee, priority, project_key, issue_type, duedate, updated, time_estimate, time_spent, description`

const (
	openFilter   = `status NOT IN ('Done', 'Closed', 'Cancelled', 'Resolved')`
	optProject   = `(? = '' OR project_key = ?)`
	highPriority = `('Highest', 'High', 'Critical', 'Blocker')`
	priorityRank = `CASE priority WHEN 'Blocker' THEN 0 WHEN 'Critical' THEN 1 WHEN 'Highest' THEN 2 WHEN 'High' THEN 3 ELSE 4 END`
	unassigned   = `(assignee IS NULL OR assignee = '' OR assignee = 'Unassigned')`
)

// Match is the outcome of a successful library lookup.
type Match struct {
	Pattern *Pattern
	// Project is the project key named in the query, if any.
	Project string
	// NeedsClarification is set when a project-scoped pattern fired but the
	// query only referred to "the project" without naming one.
	NeedsClarification bool
}

// Library is an ordered set of patterns. Earlier patterns win.
type Library struct {
	mu       sync.RWMutex
	ordered  []*Pattern
	byName   map[string]*Pattern
	examples map[string]string
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		byName:   make(map[string]*Pattern),
		examples: make(map[string]string),
	}
}

// Register appends a pattern at the lowest priority.
func (l *Library) Register(p *Pattern, example string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p == nil || p.Name == "" {
		return fmt.Errorf("pattern must have a name")
	}
	if _, exists := l.byName[p.Name]; exists {
		return fmt.Errorf("pattern already registered: %s", p.Name)
	}
	l.ordered = append(l.ordered, p)
	l.byName[p.Name] = p
	if example != "" {
		l.examples[p.Name] = example
	}
	return nil
}

// MustRegister registers a pattern and panics on error.
func (l *Library) MustRegister(p *Pattern, example string) {
	if err := l.Register(p, example); err != nil {
		panic(err)
	}
}

// Get returns a pattern by name.
func (l *Library) Get(name string) (*Pattern, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.byName[name]
	return p, ok
}

// Names returns pattern names in priority order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.ordered))
	for _, p := range l.ordered {
		names = append(names, p.Name)
	}
	return names
}

// Match returns the first pattern that fires for the query. Project-scoped
// patterns only fire when the query refers to a project.
func (l *Library) Match(query string) (Match, bool) {
	norm := Normalize(query)
	if norm == "" {
		return Match{}, false
	}
	key, mentioned := ExtractProject(query)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.ordered {
		if !p.Matches(norm) {
			continue
		}
		if p.ProjectScoped {
			if !mentioned {
				continue
			}
			return Match{Pattern: p, Project: key, NeedsClarification: key == ""}, true
		}
		return Match{Pattern: p, Project: key}, true
	}
	return Match{}, false
}

// Render renders the named pattern.
func (l *Library) Render(name, project string, now time.Time) (Rendered, error) {
	p, ok := l.Get(name)
	if !ok {
		return Rendered{}, fmt.Errorf("pattern not found: %s", name)
	}
	return p.Render(project, now)
}

// Suggest returns example questions related to a query that matched nothing.
// Patterns sharing a word with the query come first.
func (l *Library) Suggest(query string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}
	words := make(map[string]bool)
	for _, w := range Tokens(Normalize(query)) {
		if len(w) > 3 {
			words[w] = true
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	var related, rest []string
	for _, p := range l.ordered {
		ex, ok := l.examples[p.Name]
		if !ok || p.ProjectScoped {
			continue
		}
		hit := false
		for _, w := range Tokens(Normalize(ex + " " + p.Description)) {
			if words[w] {
				hit = true
				break
			}
		}
		if hit {
			related = append(related, ex)
		} else {
			rest = append(rest, ex)
		}
	}
	out := append(related, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

var (
	keyAfterPreposition = regexp.MustCompile(`\b(?:[Ii]n|[Ff]or|[Oo]f|[Oo]n|[Ww]ithin|[Ff]rom|[Aa]bout)\s+(?:the\s+)?(?:[Pp]roject\s+)?([A-Z][A-Z0-9]{1,9})\b`)
	keyAfterProject     = regexp.MustCompile(`\b[Pp]roject\s+([A-Z][A-Z0-9]{1,9})\b`)
	vagueProject        = regexp.MustCompile(`\b(?:in|for|of|on|within|per|from|about)\s+(?:the|this|that|a|my|our|their|one|each|specific)?\s*project\b|\bproject[- ]specific\b|\bspecific project\b`)
)

// commonAcronyms are uppercase words that are never project keys.
var commonAcronyms = map[string]bool{
	"AI": true, "API": true, "ASAP": true, "EOD": true, "ETA": true, "FYI": true,
	"IT": true, "OK": true, "PR": true, "QA": true, "SQL": true, "TODO": true,
	"UI": true, "UK": true, "US": true,
}

// ExtractProject finds a project key named in the query. mentioned is true
// when the query refers to a project at all, even without naming one.
func ExtractProject(query string) (key string, mentioned bool) {
	for _, re := range []*regexp.Regexp{keyAfterProject, keyAfterPreposition} {
		for _, m := range re.FindAllStringSubmatch(query, -1) {
			if !commonAcronyms[m[1]] {
				return m[1], true
			}
		}
	}
	if vagueProject.MatchString(strings.ToLower(query)) {
		return "", true
	}
	return "", false
}

// UppercaseTokens returns the distinct all-caps words of a query that could
// be project keys, in order of appearance.
func UppercaseTokens(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.FieldsFunc(query, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z')
	}) {
		if len(f) < 2 || len(f) > 10 || strings.ToUpper(f) != f || f[0] < 'A' || f[0] > 'Z' {
			continue
		}
		if commonAcronyms[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func nowArg(now time.Time) string {
	return now.UTC().Format("2006-01-02 15:04:05")
}

func dateArg(now time.Time) string {
	return now.Format("2006-01-02")
}
