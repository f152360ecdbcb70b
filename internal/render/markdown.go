// Package render formats responses for terminals.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// maxTableRows caps the rows printed for tickets and raw results.
const maxTableRows = 20

// Markdown renders a response as Markdown.
func Markdown(resp *domain.Response) string {
	var b strings.Builder
	b.WriteString(resp.Summary)
	b.WriteString("\n\n")

	switch {
	case resp.Health != nil:
		writeHealth(&b, resp.Health)
	case resp.Standup != nil:
		writeStandup(&b, resp.Standup)
	case resp.Tickets != nil:
		writeTickets(&b, resp.Tickets)
	case resp.Generic != nil:
		writeGeneric(&b, resp.Generic)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeHealth(b *strings.Builder, h *domain.HealthReport) {
	fmt.Fprintf(b, "**%d issues**, %.0f%% complete, %d blocked\n\n", h.TotalIssues, h.CompletionRate*100, h.BlockerCount)
	statuses := make([]string, 0, len(h.StatusCounts))
	for s := range h.StatusCounts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	b.WriteString("| Status | Count |\n|---|---|\n")
	for _, s := range statuses {
		fmt.Fprintf(b, "| %s | %d |\n", cell(s), h.StatusCounts[s])
	}
	b.WriteString("\n")
	writeRisks(b, h.RiskItems)
}

func writeStandup(b *strings.Builder, s *domain.StandupSummary) {
	for _, e := range s.Entries {
		fmt.Fprintf(b, "### %s\n", e.Assignee)
		writeList(b, "In progress", e.InProgress)
		writeList(b, "Completed", e.Completed)
		writeList(b, "Blocked", e.Blocked)
		writeList(b, "Overdue", e.Overdue)
		b.WriteString("\n")
	}
	writeRisks(b, s.RiskItems)
}

func writeList(b *strings.Builder, label string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, strings.Join(keys, ", "))
}

func writeRisks(b *strings.Builder, risks []domain.RiskItem) {
	if len(risks) == 0 {
		return
	}
	b.WriteString("#### Risks\n")
	for _, r := range risks {
		fmt.Fprintf(b, "- `%s` %s (%s)\n", r.IssueKey, r.Summary, strings.Join(r.Reasons, ", "))
	}
	b.WriteString("\n")
}

func writeTickets(b *strings.Builder, t *domain.TicketSummary) {
	if len(t.Workload) > 0 {
		b.WriteString("| Assignee | Open | High | Critical |\n|---|---|---|---|\n")
		for _, w := range t.Workload {
			fmt.Fprintf(b, "| %s | %d | %d | %d |\n", cell(w.Assignee), w.TotalTasks, w.HighPriority, w.CriticalPriority)
		}
		return
	}
	if len(t.Tickets) == 0 {
		return
	}
	b.WriteString("| Key | Summary | Status | Assignee | Due | Feasibility |\n|---|---|---|---|---|---|\n")
	for i, l := range t.Tickets {
		if i == maxTableRows {
			fmt.Fprintf(b, "\n_%d more not shown_\n", len(t.Tickets)-maxTableRows)
			break
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
			l.IssueKey, cell(l.Summary), cell(l.Status), cell(l.Assignee), l.DueDate, l.Feasibility)
	}
}

func writeGeneric(b *strings.Builder, g *domain.GenericAnswer) {
	if len(g.Columns) > 0 && len(g.Rows) > 0 {
		b.WriteString("| " + strings.Join(g.Columns, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat("---|", len(g.Columns)) + "\n")
		for i, row := range g.Rows {
			if i == maxTableRows {
				fmt.Fprintf(b, "\n_%d more rows not shown_\n", len(g.Rows)-maxTableRows)
				break
			}
			cells := make([]string, len(g.Columns))
			for j, col := range g.Columns {
				cells[j] = cell(row.String(strings.ToLower(col)))
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
		b.WriteString("\n")
	}
	if len(g.Suggestions) > 0 {
		b.WriteString("Try asking:\n")
		for _, s := range g.Suggestions {
			fmt.Fprintf(b, "- %s\n", s)
		}
	}
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// Terminal renders a response for a terminal of the given width.
func Terminal(resp *domain.Response, width int) string {
	var b strings.Builder
	title := string(resp.Intent)
	if resp.Project != "" {
		title += " · " + resp.Project
	}
	if resp.Pattern != "" {
		title += " · " + resp.Pattern
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch resp.Status {
	case domain.StatusError, domain.StatusRefused:
		b.WriteString(errorStyle.Render(resp.Summary))
		b.WriteString("\n")
		return b.String()
	case domain.StatusDegraded:
		b.WriteString(noticeStyle.Render("note: " + resp.Notice))
		b.WriteString("\n")
	}

	md := Markdown(resp)
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			md = out
		}
	}
	b.WriteString(md)
	if resp.SQL != "" {
		b.WriteString(metaStyle.Render("sql: " + strings.Join(strings.Fields(resp.SQL), " ")))
		b.WriteString("\n")
	}
	return b.String()
}
