package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

func TestMarkdownHealth(t *testing.T) {
	md := Markdown(&domain.Response{
		Kind:    domain.KindHealthReport,
		Summary: "CRO is mostly on track.",
		Health: &domain.HealthReport{
			TotalIssues:    4,
			CompletionRate: 0.25,
			BlockerCount:   1,
			StatusCounts:   map[string]int{"Done": 1, "Blocked": 1, "In Progress": 2},
			RiskItems: []domain.RiskItem{
				{IssueKey: "CRO-1", Summary: "Checkout flow", Reasons: []string{"overdue", "stuck"}},
			},
		},
	})

	assert.True(t, strings.HasPrefix(md, "CRO is mostly on track."))
	assert.Contains(t, md, "**4 issues**, 25% complete, 1 blocked")
	assert.Less(t, strings.Index(md, "| Blocked | 1 |"), strings.Index(md, "| Done | 1 |"))
	assert.Contains(t, md, "- `CRO-1` Checkout flow (overdue, stuck)")
}

func TestMarkdownTickets(t *testing.T) {
	lines := make([]domain.TicketLine, maxTableRows+2)
	for i := range lines {
		lines[i] = domain.TicketLine{IssueKey: "CRO-1", Summary: "a | b"}
	}
	md := Markdown(&domain.Response{Summary: "Stuck.", Tickets: &domain.TicketSummary{Count: len(lines), Tickets: lines}})

	assert.Contains(t, md, `a \| b`)
	assert.Contains(t, md, "_2 more not shown_")
}

func TestMarkdownWorkload(t *testing.T) {
	md := Markdown(&domain.Response{Summary: "Load.", Tickets: &domain.TicketSummary{
		Workload: []domain.WorkloadLine{{Assignee: "Ana", TotalTasks: 3, HighPriority: 1}},
	}})
	assert.Contains(t, md, "| Ana | 3 | 1 | 0 |")
}

func TestMarkdownGenericSuggestions(t *testing.T) {
	md := Markdown(&domain.Response{
		Summary: "No data found for your question.",
		Generic: &domain.GenericAnswer{
			Text:        "No data found for your question.",
			Suggestions: []string{"Show me stuck tickets"},
		},
	})
	assert.Contains(t, md, "Try asking:\n- Show me stuck tickets")
}

func TestTerminalRefusedSkipsBody(t *testing.T) {
	out := Terminal(&domain.Response{
		Intent:  domain.IntentGeneral,
		Status:  domain.StatusRefused,
		Summary: "I can only run read-only queries.",
		Generic: &domain.GenericAnswer{Text: "I can only run read-only queries."},
	}, 80)
	assert.Contains(t, out, "read-only")
	assert.NotContains(t, out, "Try asking")
}
