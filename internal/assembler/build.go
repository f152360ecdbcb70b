package assembler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// Columns each structured kind needs.
var (
	healthColumns   = []string{"issue_key", "status"}
	standupColumns  = []string{"issue_key", "status", "assignee"}
	ticketColumns   = []string{"issue_key"}
	workloadColumns = []string{"assignee", "total_tasks"}
)

const noDataText = "No data found for your question."

// build validates rows against kind and fills the matching variant. The
// returned text is a deterministic summary of the findings.
func build(kind domain.ResponseKind, rows *domain.ResultSet, now time.Time) (*domain.Response, string, error) {
	resp := &domain.Response{Kind: kind}
	switch kind {
	case domain.KindHealthReport:
		if missing := rows.Missing(healthColumns...); len(missing) > 0 {
			return nil, "", &domain.ValidationError{Kind: kind, Missing: missing}
		}
		resp.Health = buildHealth(rows, now)
		return resp, healthText(resp.Health), nil

	case domain.KindStandupSummary:
		if missing := rows.Missing(standupColumns...); len(missing) > 0 {
			return nil, "", &domain.ValidationError{Kind: kind, Missing: missing}
		}
		resp.Standup = buildStandup(rows, now)
		return resp, standupText(resp.Standup), nil

	case domain.KindTicketSummary:
		if rows.HasColumns(workloadColumns...) {
			resp.Tickets = buildWorkload(rows)
			return resp, workloadText(resp.Tickets), nil
		}
		if missing := rows.Missing(ticketColumns...); len(missing) > 0 {
			return nil, "", &domain.ValidationError{Kind: kind, Missing: missing,
				Reason: "expected issue rows or per-assignee workload"}
		}
		resp.Tickets = buildTickets(rows, now)
		return resp, ticketText(resp.Tickets), nil
	}

	resp.Kind = domain.KindGenericAnswer
	resp.Generic = genericAnswer(rows)
	return resp, resp.Generic.Text, nil
}

func genericAnswer(rows *domain.ResultSet) *domain.GenericAnswer {
	g := &domain.GenericAnswer{Text: noDataText}
	if rows == nil {
		return g
	}
	g.Columns = rows.Columns
	g.Rows = rows.Rows
	if rows.Len() > 0 {
		g.Text = fmt.Sprintf("Found %d %s.", rows.Len(), plural(rows.Len(), "row", "rows"))
	}
	return g
}

func riskItem(is domain.Issue, now time.Time) (domain.RiskItem, bool) {
	feas, overdue := AssessFeasibility(is, now)
	item := domain.RiskItem{
		IssueKey:    is.Key,
		Summary:     is.Summary,
		Status:      is.Status,
		Assignee:    is.Assignee,
		Overdue:     overdue,
		Stuck:       domain.IsStuck(is, now),
		Feasibility: feas,
	}
	if item.Overdue {
		item.Reasons = append(item.Reasons, "overdue")
	}
	if item.Stuck {
		item.Reasons = append(item.Reasons, "no update for over a week")
	}
	if isBlocked(is) {
		item.Reasons = append(item.Reasons, "blocked")
	}
	if feas == domain.FeasibilityAtRisk {
		item.Reasons = append(item.Reasons, "remaining estimate exceeds time to due date")
	}
	return item, len(item.Reasons) > 0
}

func isBlocked(is domain.Issue) bool {
	return !domain.IsTerminalStatus(is.Status) &&
		(strings.Contains(strings.ToLower(is.Status), "block") || strings.EqualFold(is.Priority, "Blocker"))
}

func buildHealth(rows *domain.ResultSet, now time.Time) *domain.HealthReport {
	h := &domain.HealthReport{StatusCounts: map[string]int{}, RiskItems: []domain.RiskItem{}}
	for _, r := range rows.Rows {
		is := r.Issue()
		h.TotalIssues++
		status := is.Status
		if status == "" {
			status = "Unknown"
		}
		h.StatusCounts[status]++
		if domain.IsTerminalStatus(is.Status) {
			h.CompletedCount++
		}
		if isBlocked(is) {
			h.BlockerCount++
		}
		if item, risky := riskItem(is, now); risky {
			h.RiskItems = append(h.RiskItems, item)
		}
	}
	if h.TotalIssues > 0 {
		h.CompletionRate = float64(h.CompletedCount) / float64(h.TotalIssues)
	}
	return h
}

func healthText(h *domain.HealthReport) string {
	if h.TotalIssues == 0 {
		return noDataText
	}
	return fmt.Sprintf("%d %s, %d completed (%.1f%%), %d blocked, %d at risk.",
		h.TotalIssues, plural(h.TotalIssues, "issue", "issues"), h.CompletedCount,
		h.CompletionRate*100, h.BlockerCount, len(h.RiskItems))
}

func buildStandup(rows *domain.ResultSet, now time.Time) *domain.StandupSummary {
	byAssignee := map[string]*domain.StandupEntry{}
	var order []string
	s := &domain.StandupSummary{Entries: []domain.StandupEntry{}, RiskItems: []domain.RiskItem{}}

	for _, r := range rows.Rows {
		is := r.Issue()
		name := is.Assignee
		if name == "" {
			name = "Unassigned"
		}
		e, ok := byAssignee[name]
		if !ok {
			e = &domain.StandupEntry{Assignee: name, InProgress: []string{}, Completed: []string{}, Blocked: []string{}, Overdue: []string{}}
			byAssignee[name] = e
			order = append(order, name)
		}
		switch {
		case domain.IsTerminalStatus(is.Status):
			e.Completed = append(e.Completed, is.Key)
		case isBlocked(is):
			e.Blocked = append(e.Blocked, is.Key)
		default:
			e.InProgress = append(e.InProgress, is.Key)
		}
		if domain.IsOverdue(is, now) {
			e.Overdue = append(e.Overdue, is.Key)
		}
		if item, risky := riskItem(is, now); risky {
			s.RiskItems = append(s.RiskItems, item)
		}
	}

	sort.Strings(order)
	for _, name := range order {
		s.Entries = append(s.Entries, *byAssignee[name])
	}
	return s
}

func standupText(s *domain.StandupSummary) string {
	if len(s.Entries) == 0 {
		return noDataText
	}
	var lines []string
	for _, e := range s.Entries {
		line := fmt.Sprintf("%s: %d in progress, %d done", e.Assignee, len(e.InProgress), len(e.Completed))
		if len(e.Blocked) > 0 {
			line += fmt.Sprintf(", blocked on %s", strings.Join(e.Blocked, ", "))
		}
		if len(e.Overdue) > 0 {
			line += fmt.Sprintf(", overdue %s", strings.Join(e.Overdue, ", "))
		}
		lines = append(lines, line+".")
	}
	return strings.Join(lines, "\n")
}

func buildTickets(rows *domain.ResultSet, now time.Time) *domain.TicketSummary {
	t := &domain.TicketSummary{Count: rows.Len(), Tickets: []domain.TicketLine{}}
	withDue := rows.HasColumns("duedate")
	for _, r := range rows.Rows {
		is := r.Issue()
		line := domain.TicketLine{
			IssueKey: is.Key,
			Summary:  is.Summary,
			Status:   is.Status,
			Assignee: is.Assignee,
			Priority: is.Priority,
			Project:  is.Project,
			DueDate:  r.String("duedate"),
		}
		if withDue && is.DueDate != nil {
			line.Feasibility, _ = AssessFeasibility(is, now)
		}
		t.Tickets = append(t.Tickets, line)
	}
	return t
}

func ticketText(t *domain.TicketSummary) string {
	if t.Count == 0 {
		return "No matching issues found."
	}
	keys := make([]string, 0, len(t.Tickets))
	for i, l := range t.Tickets {
		if i == 10 {
			keys = append(keys, fmt.Sprintf("and %d more", len(t.Tickets)-10))
			break
		}
		keys = append(keys, l.IssueKey)
	}
	return fmt.Sprintf("Found %d %s: %s.", t.Count, plural(t.Count, "issue", "issues"), strings.Join(keys, ", "))
}

func buildWorkload(rows *domain.ResultSet) *domain.TicketSummary {
	t := &domain.TicketSummary{Count: rows.Len(), Workload: []domain.WorkloadLine{}}
	for _, r := range rows.Rows {
		t.Workload = append(t.Workload, domain.WorkloadLine{
			Assignee:         r.String("assignee"),
			TotalTasks:       r.Int("total_tasks"),
			HighPriority:     r.Int("high_priority"),
			CriticalPriority: r.Int("critical_priority"),
		})
	}
	return t
}

func workloadText(t *domain.TicketSummary) string {
	if t.Count == 0 {
		return "Nobody matches."
	}
	parts := make([]string, 0, len(t.Workload))
	for _, w := range t.Workload {
		parts = append(parts, fmt.Sprintf("%s (%d)", w.Assignee, w.TotalTasks))
	}
	return fmt.Sprintf("Open work per assignee: %s.", strings.Join(parts, ", "))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
