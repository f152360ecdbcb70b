package assembler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhigyanVE/ScrumMaster/internal/adapter/llm"
	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
	"github.com/AbhigyanVE/ScrumMaster/internal/router"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func date(offsetDays int) *time.Time {
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offsetDays)
	return &d
}

type fakeAppender struct {
	exchanges []domain.Exchange
	err       error
}

func (f *fakeAppender) Append(ctx context.Context, sessionID string, ex domain.Exchange) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.exchanges = append(f.exchanges, ex)
	return &domain.Session{ID: sessionID, Exchanges: f.exchanges}, nil
}

type fakeSummarizer struct {
	text  string
	err   error
	calls []llm.SummaryRequest
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req llm.SummaryRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.text, f.err
}

func newTestAssembler(sum Summarizer, app ContextAppender) *Assembler {
	return New(sum, app, WithClock(func() time.Time { return testNow }))
}

func issueRows(rows ...domain.Row) *domain.ResultSet {
	return &domain.ResultSet{
		Columns: []string{"issue_key", "summary", "status", "assignee", "priority", "project_key", "duedate", "updated", "time_estimate", "time_spent", "description"},
		Rows:    rows,
	}
}

func TestAssessFeasibility(t *testing.T) {
	tests := []struct {
		name        string
		issue       domain.Issue
		feasibility domain.Feasibility
		overdue     bool
	}{
		{"due yesterday in progress", domain.Issue{Status: "In Progress", DueDate: date(-1), TimeEstimate: 7200, Description: "Build checkout"}, domain.FeasibilityOverdue, true},
		{"zero estimate", domain.Issue{Status: "In Progress", DueDate: date(5), TimeEstimate: 0, Description: "Build checkout"}, domain.FeasibilityIndeterminate, false},
		{"zero estimate and overdue", domain.Issue{Status: "To Do", DueDate: date(-3), Description: "x"}, domain.FeasibilityIndeterminate, true},
		{"estimate used up", domain.Issue{Status: "In Progress", DueDate: date(5), TimeEstimate: 3600, TimeSpent: 3600, Description: "x"}, domain.FeasibilityIndeterminate, false},
		{"missing description", domain.Issue{Status: "In Progress", DueDate: date(5), TimeEstimate: 3600}, domain.FeasibilityIndeterminate, false},
		{"placeholder description", domain.Issue{Status: "In Progress", DueDate: date(5), TimeEstimate: 3600, Description: " TBD "}, domain.FeasibilityIndeterminate, false},
		{"done", domain.Issue{Status: "Done", DueDate: date(-1), TimeEstimate: 0}, domain.FeasibilityComplete, false},
		{"no deadline", domain.Issue{Status: "In Progress", TimeEstimate: 3600, Description: "x"}, domain.FeasibilityNoDeadline, false},
		{"on track", domain.Issue{Status: "In Progress", DueDate: date(2), TimeEstimate: 8 * 3600, Description: "x"}, domain.FeasibilityOnTrack, false},
		{"due today fits one day", domain.Issue{Status: "In Progress", DueDate: date(0), TimeEstimate: 4 * 3600, Description: "x"}, domain.FeasibilityOnTrack, false},
		{"at risk", domain.Issue{Status: "In Progress", DueDate: date(1), TimeEstimate: 40 * 3600, Description: "x"}, domain.FeasibilityAtRisk, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feas, overdue := AssessFeasibility(tt.issue, testNow)
			assert.Equal(t, tt.feasibility, feas)
			assert.Equal(t, tt.overdue, overdue)
		})
	}
}

func TestAssembleHealthReport(t *testing.T) {
	app := &fakeAppender{}
	a := newTestAssembler(&fakeSummarizer{text: "unused"}, app)

	route := &router.Route{
		Kind:    router.RoutePattern,
		Intent:  domain.Intent{Category: domain.IntentHealth, Depth: domain.DepthStandard, Query: "how is CRO doing at risk"},
		Project: "CRO",
		Pattern: "project_overdue",
	}
	rows := issueRows(
		domain.Row{"issue_key": "CRO-1", "status": "In Progress", "assignee": "Ana", "duedate": "2026-03-09", "updated": "2026-02-20", "time_estimate": int64(7200), "time_spent": int64(0), "description": "Build"},
		domain.Row{"issue_key": "CRO-2", "status": "Done", "assignee": "Ben"},
		domain.Row{"issue_key": "CRO-3", "status": "Blocked", "assignee": "Ana", "updated": "2026-03-09"},
		domain.Row{"issue_key": "CRO-4", "status": "In Progress", "assignee": "Ben", "updated": "2026-03-09"},
	)

	resp, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, domain.KindHealthReport, resp.Kind)
	assert.Equal(t, domain.StatusOK, resp.Status)
	require.NotNil(t, resp.Health)
	assert.Equal(t, 4, resp.Health.TotalIssues)
	assert.Equal(t, 1, resp.Health.CompletedCount)
	assert.InDelta(t, 0.25, resp.Health.CompletionRate, 1e-9)
	assert.Equal(t, 1, resp.Health.BlockerCount)
	assert.Equal(t, 2, resp.Health.StatusCounts["In Progress"])

	require.Len(t, resp.Health.RiskItems, 2)
	first := resp.Health.RiskItems[0]
	assert.Equal(t, "CRO-1", first.IssueKey)
	assert.True(t, first.Overdue)
	assert.True(t, first.Stuck)
	assert.Equal(t, domain.FeasibilityOverdue, first.Feasibility)
	assert.Equal(t, "CRO-3", resp.Health.RiskItems[1].IssueKey)

	require.Len(t, app.exchanges, 1)
	assert.Equal(t, "CRO", app.exchanges[0].Project)
	assert.Equal(t, domain.IntentHealth, app.exchanges[0].Intent)
}

func TestAssembleSchemaMismatchFallsBack(t *testing.T) {
	a := newTestAssembler(nil, &fakeAppender{})
	route := &router.Route{
		Kind:   router.RoutePattern,
		Intent: domain.Intent{Category: domain.IntentStandup, Depth: domain.DepthStandard, Query: "standup"},
	}
	rows := &domain.ResultSet{Columns: []string{"project_key", "issue_count"}, Rows: []domain.Row{{"project_key": "CRO", "issue_count": int64(3)}}}

	resp, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, domain.KindGenericAnswer, resp.Kind)
	assert.Equal(t, domain.StatusOK, resp.Status)
	require.NotNil(t, resp.Generic)
	assert.Equal(t, rows.Rows, resp.Generic.Rows)
}

func TestAssembleSummarisesGeneratedHealth(t *testing.T) {
	sum := &fakeSummarizer{text: "CRO looks healthy."}
	a := newTestAssembler(sum, &fakeAppender{})
	route := &router.Route{
		Kind:     router.RouteGenerated,
		Intent:   domain.Intent{Category: domain.IntentHealth, Depth: domain.DepthAdvanced, Query: "give me advanced health of CRO"},
		Project:  "CRO",
		SQL:      "SELECT issue_key, status FROM issues WHERE project_key = 'CRO'",
		NeedsLLM: true,
	}
	rows := issueRows(domain.Row{"issue_key": "CRO-1", "status": "Done"})

	resp, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, "CRO looks healthy.", resp.Summary)
	require.Len(t, sum.calls, 1)
	assert.Equal(t, domain.DepthAdvanced, sum.calls[0].Depth)
	assert.Contains(t, sum.calls[0].Facts, "1 issue")
}

func TestAssembleSummaryPolicy(t *testing.T) {
	sum := &fakeSummarizer{text: "prose"}
	a := newTestAssembler(sum, &fakeAppender{})
	rows := issueRows(domain.Row{"issue_key": "CRO-1", "status": "To Do"})

	// Standard pattern listings are not summarised.
	_, err := a.Assemble(context.Background(), Input{SessionID: "s1", Rows: rows, Route: &router.Route{
		Kind: router.RoutePattern, Pattern: "stuck_tickets",
		Intent: domain.Intent{Category: domain.IntentList, Depth: domain.DepthStandard, Query: "stuck tickets"},
	}})
	require.NoError(t, err)
	assert.Empty(t, sum.calls)

	// Generated listings are not summarised either.
	_, err = a.Assemble(context.Background(), Input{SessionID: "s1", Rows: rows, Route: &router.Route{
		Kind: router.RouteGenerated, NeedsLLM: true,
		Intent: domain.Intent{Category: domain.IntentList, Depth: domain.DepthStandard, Query: "list tickets"},
	}})
	require.NoError(t, err)
	assert.Empty(t, sum.calls)

	// Advanced depth summarises even pattern routes.
	_, err = a.Assemble(context.Background(), Input{SessionID: "s1", Rows: rows, Route: &router.Route{
		Kind: router.RoutePattern, Pattern: "project_stuck",
		Intent: domain.Intent{Category: domain.IntentHealth, Depth: domain.DepthAdvanced, Query: "advanced health stuck in project CRO"},
	}})
	require.NoError(t, err)
	assert.Len(t, sum.calls, 1)
}

func TestAssembleSummaryUnavailableDegrades(t *testing.T) {
	sum := &fakeSummarizer{err: &domain.ServiceUnavailableError{Service: "summarisation", Err: errors.New("timeout")}}
	app := &fakeAppender{}
	a := newTestAssembler(sum, app)
	route := &router.Route{
		Kind:   router.RouteGenerated,
		Intent: domain.Intent{Category: domain.IntentGeneral, Depth: domain.DepthStandard, Query: "how many issues per project"},
		SQL:    "SELECT project_key, COUNT(*) AS n FROM issues GROUP BY project_key",
	}
	rows := &domain.ResultSet{Columns: []string{"project_key", "n"}, Rows: []domain.Row{{"project_key": "CRO", "n": int64(2)}}}

	resp, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, domain.KindGenericAnswer, resp.Kind)
	assert.Equal(t, domain.StatusDegraded, resp.Status)
	assert.Equal(t, UnavailableNote, resp.Notice)
	assert.Equal(t, rows.Rows, resp.Generic.Rows)
	assert.Len(t, app.exchanges, 1)
}

func TestAssembleTruncatesStoredSummary(t *testing.T) {
	long := strings.Repeat("é", 900)
	app := &fakeAppender{}
	a := newTestAssembler(&fakeSummarizer{text: long}, app)
	route := &router.Route{
		Kind:   router.RouteGenerated,
		Intent: domain.Intent{Category: domain.IntentGeneral, Depth: domain.DepthStandard, Query: "q"},
	}
	rows := &domain.ResultSet{Columns: []string{"n"}, Rows: []domain.Row{{"n": int64(1)}}}

	resp, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, long, resp.Summary)
	require.Len(t, app.exchanges, 1)
	assert.Equal(t, DefaultSummaryRunes, utf8.RuneCountInString(app.exchanges[0].Summary))
}

func TestAssembleWorkloadAndEmptyResults(t *testing.T) {
	a := newTestAssembler(nil, &fakeAppender{})
	route := &router.Route{
		Kind: router.RoutePattern, Pattern: "workload_distribution", Description: "Open issues per assignee",
		Intent: domain.Intent{Category: domain.IntentList, Depth: domain.DepthStandard, Query: "How is the workload distributed?"},
	}
	rows := &domain.ResultSet{
		Columns: []string{"assignee", "total_tasks", "high_priority", "critical_priority"},
		Rows:    []domain.Row{{"assignee": "Ana", "total_tasks": int64(4), "high_priority": int64(1), "critical_priority": int64(0)}},
	}
	resp, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, domain.KindTicketSummary, resp.Kind)
	require.Len(t, resp.Tickets.Workload, 1)
	assert.Equal(t, int64(4), resp.Tickets.Workload[0].TotalTasks)
	assert.True(t, strings.HasPrefix(resp.Summary, "Open issues per assignee."))

	general := &router.Route{
		Kind:   router.RouteGenerated,
		Intent: domain.Intent{Category: domain.IntentGeneral, Depth: domain.DepthStandard, Query: "anything stale around here"},
	}
	resp, err = a.Assemble(context.Background(), Input{SessionID: "s1", Route: general, Rows: &domain.ResultSet{Columns: []string{"n"}, Rows: []domain.Row{}}})
	require.NoError(t, err)
	assert.Equal(t, noDataText, resp.Summary)
	assert.NotEmpty(t, resp.Generic.Suggestions)
}

func TestAssembleContextFailure(t *testing.T) {
	a := newTestAssembler(nil, &fakeAppender{err: errors.New("disk full")})
	route := &router.Route{Kind: router.RoutePattern, Intent: domain.Intent{Category: domain.IntentList, Query: "q"}}
	_, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: issueRows()})
	assert.Error(t, err)
}

func TestClarifyRecordsQuestion(t *testing.T) {
	app := &fakeAppender{}
	a := newTestAssembler(nil, app)
	in := domain.Intent{Category: domain.IntentHealth, Depth: domain.DepthStandard, Query: "how healthy is the sprint"}

	resp, err := a.Clarify(context.Background(), "s1", in, &domain.AmbiguousScopeError{Candidates: []string{"CRO", "PAY"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClarificationNeeded, resp.Status)
	assert.Contains(t, resp.Summary, "CRO, PAY")
	require.Len(t, app.exchanges, 1)
	assert.Equal(t, "how healthy is the sprint", app.exchanges[0].Query)
	assert.Equal(t, domain.IntentHealth, app.exchanges[0].Intent)
}

func TestClarifyNamesUnknownProject(t *testing.T) {
	a := newTestAssembler(nil, &fakeAppender{})
	in := domain.Intent{Category: domain.IntentList, Pattern: "project_stuck", Query: "Which tickets are stuck in project XYZ?"}

	resp, err := a.Clarify(context.Background(), "s1", in, &domain.AmbiguousScopeError{Unknown: "XYZ", Candidates: []string{"CRO"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClarificationNeeded, resp.Status)
	assert.Equal(t, "I couldn't find a project called XYZ. Which project do you mean? Available projects: CRO.", resp.Summary)
}

func TestAssembleRecordsFollowUpLineage(t *testing.T) {
	app := &fakeAppender{}
	a := newTestAssembler(nil, app)
	route := &router.Route{Kind: router.RoutePattern, Pattern: "project_stuck", Project: "PAY", Intent: domain.Intent{
		Category: domain.IntentList,
		Depth:    domain.DepthStandard,
		Pattern:  "project_stuck",
		Query:    "what about PAY",
		Previous: "Which tickets are stuck in project CRO?",
	}}

	_, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: issueRows()})
	require.NoError(t, err)
	require.Len(t, app.exchanges, 1)
	ex := app.exchanges[0]
	assert.Equal(t, "project_stuck", ex.Pattern)
	assert.Equal(t, domain.DepthStandard, ex.Depth)
	assert.Equal(t, "Which tickets are stuck in project CRO?", ex.Previous)
	assert.Equal(t, "PAY", ex.Project)
}

func TestAssembleRouteNoticeDegrades(t *testing.T) {
	a := newTestAssembler(&fakeSummarizer{text: "Looks fine."}, &fakeAppender{})
	route := &router.Route{
		Kind:     router.RouteGenerated,
		Intent:   domain.Intent{Category: domain.IntentHealth, Depth: domain.DepthStandard, Query: "how healthy is CRO"},
		Project:  "CRO",
		SQL:      "SELECT issue_key, status FROM issues",
		NeedsLLM: true,
		Notice:   router.UnscopedNote,
	}
	rows := issueRows(domain.Row{"issue_key": "CRO-1", "status": "Done"})

	resp, err := a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDegraded, resp.Status)
	assert.Equal(t, router.UnscopedNote, resp.Notice)
	assert.Equal(t, "Looks fine.", resp.Summary)

	a = newTestAssembler(&fakeSummarizer{err: &domain.ServiceUnavailableError{Service: "summarizer", Err: errors.New("down")}}, &fakeAppender{})
	resp, err = a.Assemble(context.Background(), Input{SessionID: "s1", Route: route, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDegraded, resp.Status)
	assert.Equal(t, UnavailableNote+"; "+router.UnscopedNote, resp.Notice)
}

func TestFailureResponses(t *testing.T) {
	in := domain.Intent{Category: domain.IntentList, Query: "q"}

	resp := Failure("s1", in, &domain.UnsafeQueryError{SQL: "DELETE FROM issues", Reason: "forbidden keyword DELETE"})
	assert.Equal(t, domain.StatusRefused, resp.Status)
	assert.Equal(t, "DELETE FROM issues", resp.SQL)

	resp = Failure("s1", in, &domain.QueryError{SQL: "SELECT x", Err: errors.New("no such column")})
	assert.Equal(t, domain.StatusError, resp.Status)

	resp = Failure("s1", in, &domain.ServiceUnavailableError{Service: "sql generation", Err: errors.New("down")})
	assert.Equal(t, domain.StatusDegraded, resp.Status)
	assert.Equal(t, UnavailableNote, resp.Notice)

	resp = Canned("s1", domain.Intent{Category: domain.IntentFarewell})
	assert.Equal(t, farewellText, resp.Summary)
}
