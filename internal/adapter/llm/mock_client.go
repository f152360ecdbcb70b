package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const mockIssueColumns = "issue_key, summary, status, assignee, priority, project_key, duedate, updated, time_estimate, time_spent, description"

// MockClient is a deterministic LLMClient used in mock mode and tests. It
// answers SQL generation prompts with scoped SQL and summary prompts with
// templated prose.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := m.generateMockResponse(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      m.estimateTokens(req) + len(content)/4,
		},
	}, nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var system, lastUser string
	for _, msg := range req.Messages {
		if msg.Role == "system" && system == "" {
			system = msg.Content
		}
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUser = req.Messages[i].Content
			break
		}
	}
	headers := parseHeaders(lastUser)

	switch {
	case strings.HasPrefix(system, sqlSystemMarker):
		return mockSQL(headers["intent"], headers["project"])
	case strings.HasPrefix(system, summarySystemMarker):
		return mockSummary(headers)
	case lastUser == "":
		return "[MOCK] This is a mock response from the LLM client."
	default:
		return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUser, 100))
	}
}

func mockSQL(intent, project string) string {
	where := ""
	if project != "" {
		where = " WHERE project_key = '" + strings.ReplaceAll(project, "'", "''") + "'"
	}
	and := func(cond string) string {
		if where == "" {
			return " WHERE " + cond
		}
		return where + " AND " + cond
	}

	switch intent {
	case "health":
		return "SELECT " + mockIssueColumns + " FROM issues" + where + " ORDER BY duedate IS NULL, duedate"
	case "standup":
		return "SELECT " + mockIssueColumns + " FROM issues" + where + " ORDER BY assignee, status"
	case "assignment":
		return "SELECT assignee, COUNT(*) AS total_tasks," +
			" SUM(CASE WHEN priority IN ('High', 'Highest') THEN 1 ELSE 0 END) AS high_priority," +
			" SUM(CASE WHEN priority IN ('Critical', 'Blocker') THEN 1 ELSE 0 END) AS critical_priority" +
			" FROM issues" + and("status NOT IN ('Done', 'Closed', 'Cancelled', 'Resolved')") +
			" GROUP BY assignee ORDER BY total_tasks DESC"
	case "list":
		return "SELECT " + mockIssueColumns + " FROM issues" +
			and("status NOT IN ('Done', 'Closed', 'Cancelled', 'Resolved')") + " ORDER BY updated DESC"
	default:
		return "SELECT project_key, COUNT(*) AS issue_count FROM issues" + where + " GROUP BY project_key"
	}
}

func mockSummary(headers map[string]string) string {
	intent := headers["intent"]
	if intent == "" {
		intent = "general"
	}
	text := fmt.Sprintf("[MOCK] %s analysis of %s rows.", intent, headers["rows"])
	if headers["depth"] == "advanced" {
		text += " Advanced review: deadlines checked for feasibility."
	}
	return text
}

// parseHeaders reads "Key: value" lines up to the first blank line.
func parseHeaders(prompt string) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return headers
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
