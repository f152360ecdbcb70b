package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

const (
	maxPromptAssignees = 20
	maxPromptProjects  = 10
)

// sqlSystemMarker opens every SQL generation system prompt.
const sqlSystemMarker = "You are a SQL expert. Convert the user's question into a single read-only SQLite query."

// SchemaDescription describes the tables SQL generation may use.
const SchemaDescription = `Table issues:
  issue_key TEXT PRIMARY KEY, project_key TEXT, summary TEXT, description TEXT,
  status TEXT, assignee TEXT ('Unassigned' when nobody), reporter TEXT, priority TEXT,
  issue_type TEXT, labels TEXT, story_points REAL, created TEXT (YYYY-MM-DD),
  updated TEXT (YYYY-MM-DD), duedate TEXT (YYYY-MM-DD or NULL), resolution TEXT,
  time_spent INTEGER (seconds), time_estimate INTEGER (seconds), parent_key TEXT
Table projects:
  project_key TEXT PRIMARY KEY, project_name TEXT, project_id TEXT, issue_count INTEGER
Terminal statuses: Done, Closed, Cancelled, Resolved.`

// SQLRequest is the input to SQL generation.
type SQLRequest struct {
	Question string
	// Previous is the question a follow-up refines.
	Previous  string
	Intent    domain.IntentCategory
	Depth     domain.Depth
	Project   string
	Projects  []domain.Project
	Assignees []string
}

// SQLGenerator turns questions into SQL through the language model.
type SQLGenerator struct {
	client LLMClient
	model  string
	logger *zap.Logger
}

// NewSQLGenerator creates a SQL generator.
func NewSQLGenerator(client LLMClient, model string, logger *zap.Logger) *SQLGenerator {
	return &SQLGenerator{client: client, model: model, logger: logger}
}

// GenerateSQL asks the model for a query. Transport failures are reported as
// ServiceUnavailableError.
func (g *SQLGenerator) GenerateSQL(ctx context.Context, req SQLRequest) (string, error) {
	temperature := 0.0
	maxTokens := 500
	resp, err := g.client.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model: g.model,
		Messages: []ChatMessage{
			{Role: "system", Content: buildSQLSystemPrompt(req)},
			{Role: "user", Content: buildSQLUserPrompt(req)},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", &domain.ServiceUnavailableError{Service: "sql generation", Err: err}
	}

	sql := CleanSQL(resp.Content())
	if sql == "" {
		return "", &domain.ServiceUnavailableError{Service: "sql generation", Err: fmt.Errorf("empty completion")}
	}
	g.logger.Debug("generated sql", zap.String("intent", string(req.Intent)), zap.String("sql", sql))
	return sql, nil
}

// CleanSQL strips markdown fences and surrounding whitespace from a completion.
func CleanSQL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```sql", "")
	s = strings.ReplaceAll(s, "```SQL", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func buildSQLSystemPrompt(req SQLRequest) string {
	var b strings.Builder
	b.WriteString(sqlSystemMarker)
	b.WriteString("\n\n")
	b.WriteString(SchemaDescription)
	b.WriteString("\n\n")

	assignees := req.Assignees
	if len(assignees) > maxPromptAssignees {
		assignees = assignees[:maxPromptAssignees]
	}
	b.WriteString("Available assignees: " + strings.Join(assignees, ", ") + "\n")

	projects := req.Projects
	if len(projects) > maxPromptProjects {
		projects = projects[:maxPromptProjects]
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, fmt.Sprintf("%s (%s)", p.Key, p.Name))
	}
	b.WriteString("Available projects: " + strings.Join(names, ", ") + "\n\n")

	b.WriteString(`Rules:
1. Return ONLY the SQL query: no explanations, no markdown, no code blocks.
2. Exactly one SELECT (or WITH ... SELECT) statement. Never modify data.
3. Use proper SQLite syntax. Compare dates with date() or julianday().
4. For project health return issue rows (issue_key, summary, status, assignee, priority, duedate, updated, time_estimate, time_spent, description).
5. For standups return issue rows including issue_key, status and assignee.
6. For assignment questions include the assignee column.
7. Use GROUP BY with COUNT or SUM for aggregates.`)
	if req.Project != "" {
		b.WriteString("\n8. Restrict results to project_key = '" + req.Project + "'.")
	}
	return b.String()
}

// buildSQLUserPrompt writes the header lines the mock client also reads.
func buildSQLUserPrompt(req SQLRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Intent: %s\n", req.Intent)
	fmt.Fprintf(&b, "Depth: %s\n", req.Depth)
	if req.Project != "" {
		fmt.Fprintf(&b, "Project: %s\n", req.Project)
	}
	if req.Previous != "" {
		fmt.Fprintf(&b, "Previous question: %s\n", req.Previous)
	}
	fmt.Fprintf(&b, "Question: %s", req.Question)
	return b.String()
}
