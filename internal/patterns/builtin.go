package patterns

import (
	"fmt"
	"sync"
	"time"
)

var (
	stuckWords = anyPhrase("stuck", "stale", "stagnant", "inactive", "idle",
		"not updated", "not been updated", "havent been updated", "hasnt been updated",
		"no updates", "no progress", "not moving", "havent moved")
	overdueWords = anyPhrase("overdue", "past due", "missed deadline", "missed deadlines",
		"late", "behind schedule", "past deadline", "past the due date", "past their due date")
	dueSoonWords = anyPhrase("due soon", "due this week", "due next week", "upcoming deadline",
		"upcoming deadlines", "deadlines this week", "coming due", "due in the next")
	blockedWords   = anyPhrase("blocked", "blocker", "blockers", "blocking")
	unassignedHigh = regex(`\bunassigned\b.*\b(high|highest|urgent|critical)\b|\b(high|highest|urgent|critical)\b.*\bunassigned\b|\b(high|highest|urgent|critical)\b.*\b(no assignee|nobody assigned|without an assignee|without assignee)\b`)
	criticalBugs   = regex(`\b(critical|urgent|sev1|severe|showstopper|highest priority)\b.*\bbugs?\b|\bbugs?\b.*\b(critical|urgent|sev1|severe)\b`)
	highBacklog    = either(
		regex(`\bbacklog\b.*\b(high|highest|critical|urgent|top|important)\b|\b(high|highest|critical|urgent|top|important)\b.*\bbacklog\b`),
		anyPhrase("high priority tickets", "high priority issues", "high priority tasks",
			"high priority items", "top priority", "highest priority"),
	)
	overloadWords = anyPhrase("overloaded", "overload", "overworked", "too many tasks",
		"too many tickets", "too many issues", "too much work", "heavy workload",
		"over capacity", "burned out", "burnout")
	workloadWords = anyPhrase("workload", "workloads", "work distribution", "distribution of work",
		"tasks per person", "issues per person", "tickets per person", "per assignee",
		"who has the most", "load balance", "load balancing", "work distributed", "work split")
)

var builtins = []struct {
	pattern *Pattern
	example string
}{
	{&Pattern{
		Name:          "project_stuck",
		Description:   "Open issues in one project with no update for over a week",
		Shape:         ShapeTickets,
		ProjectScoped: true,
		match:         stuckWords,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE project_key = ? AND ` + openFilter + `
  AND updated IS NOT NULL AND julianday(?) - julianday(updated) > ?
ORDER BY updated ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, nowArg(now), StuckDays}
		},
	}, "Which tickets are stuck in project CRO?"},
	{&Pattern{
		Name:          "project_overdue",
		Description:   "Open issues in one project past their due date",
		Shape:         ShapeTickets,
		ProjectScoped: true,
		match:         overdueWords,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE project_key = ? AND ` + openFilter + `
  AND duedate IS NOT NULL AND date(duedate) < date(?)
ORDER BY duedate ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, dateArg(now)}
		},
	}, "What is overdue in project CRO?"},
	{&Pattern{
		Name:        "stuck_tickets",
		Description: "Open issues with no update for over a week",
		Shape:       ShapeTickets,
		match:       stuckWords,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
  AND updated IS NOT NULL AND julianday(?) - julianday(updated) > ?
ORDER BY updated ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project, nowArg(now), StuckDays}
		},
	}, "Show me stuck tickets"},
	{&Pattern{
		Name:        "overdue_tasks",
		Description: "Open issues past their due date",
		Shape:       ShapeTickets,
		match:       overdueWords,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
  AND duedate IS NOT NULL AND date(duedate) < date(?)
ORDER BY duedate ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project, dateArg(now)}
		},
	}, "Which tasks are overdue?"},
	{&Pattern{
		Name:        "due_soon",
		Description: "Open issues due within the next three days",
		Shape:       ShapeTickets,
		match:       dueSoonWords,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
  AND duedate IS NOT NULL AND date(duedate) >= date(?) AND date(duedate) <= date(?, ?)
ORDER BY duedate ASC`,
		params: func(project string, now time.Time) []any {
			d := dateArg(now)
			return []any{project, project, d, d, fmt.Sprintf("+%d days", DueSoonDays)}
		},
	}, "What is due soon?"},
	{&Pattern{
		Name:        "blocked_issues",
		Description: "Open issues that are blocked",
		Shape:       ShapeTickets,
		match:       blockedWords,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
  AND (lower(status) = 'blocked' OR lower(labels) LIKE '%blocked%' OR lower(priority) = 'blocker')
ORDER BY ` + priorityRank + `, updated ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project}
		},
	}, "What is blocked right now?"},
	{&Pattern{
		Name:        "unassigned_high_priority",
		Description: "High-priority open issues with no assignee",
		Shape:       ShapeTickets,
		match:       unassignedHigh,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
  AND ` + unassigned + ` AND priority IN ` + highPriority + `
ORDER BY ` + priorityRank + `, created ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project}
		},
	}, "Are there unassigned high priority issues?"},
	{&Pattern{
		Name:        "critical_bugs",
		Description: "Open bugs at critical priority",
		Shape:       ShapeTickets,
		match:       criticalBugs,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
  AND lower(issue_type) = 'bug' AND priority IN ('Highest', 'Critical', 'Blocker')
ORDER BY ` + priorityRank + `, created ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project}
		},
	}, "Show critical bugs"},
	{&Pattern{
		Name:        "high_priority_backlog",
		Description: "High-priority open issues ordered by priority",
		Shape:       ShapeTickets,
		match:       highBacklog,
		sql: `SELECT ` + issueColumns + ` FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
  AND priority IN ` + highPriority + `
ORDER BY ` + priorityRank + `, duedate IS NULL, duedate ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project}
		},
	}, "What is in the high priority backlog?"},
	{&Pattern{
		Name:        "team_overload",
		Description: "Assignees carrying more open issues than the overload threshold",
		Shape:       ShapeWorkload,
		match:       overloadWords,
		sql: `SELECT assignee, COUNT(*) AS total_tasks,
  SUM(CASE WHEN priority IN ('High', 'Highest') THEN 1 ELSE 0 END) AS high_priority,
  SUM(CASE WHEN priority IN ('Critical', 'Blocker') THEN 1 ELSE 0 END) AS critical_priority
FROM issues
WHERE ` + openFilter + ` AND ` + optProject + ` AND NOT ` + unassigned + `
GROUP BY assignee
HAVING COUNT(*) > ?
ORDER BY total_tasks DESC, assignee ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project, OverloadThreshold}
		},
	}, "Is anyone on the team overloaded?"},
	{&Pattern{
		Name:        "workload_distribution",
		Description: "Open issues per assignee",
		Shape:       ShapeWorkload,
		match:       workloadWords,
		sql: `SELECT COALESCE(NULLIF(assignee, ''), 'Unassigned') AS assignee, COUNT(*) AS total_tasks,
  SUM(CASE WHEN priority IN ('High', 'Highest') THEN 1 ELSE 0 END) AS high_priority,
  SUM(CASE WHEN priority IN ('Critical', 'Blocker') THEN 1 ELSE 0 END) AS critical_priority
FROM issues
WHERE ` + openFilter + ` AND ` + optProject + `
GROUP BY COALESCE(NULLIF(assignee, ''), 'Unassigned')
ORDER BY total_tasks DESC, assignee ASC`,
		params: func(project string, now time.Time) []any {
			return []any{project, project}
		},
	}, "How is the workload distributed?"},
}

var (
	defaultOnce    sync.Once
	defaultLibrary *Library
)

// Default returns the shared library of built-in patterns in priority order.
func Default() *Library {
	defaultOnce.Do(func() {
		defaultLibrary = NewLibrary()
		for _, b := range builtins {
			defaultLibrary.MustRegister(b.pattern, b.example)
		}
	})
	return defaultLibrary
}
