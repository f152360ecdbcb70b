package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

const maxPromptRows = 20

// summarySystemMarker opens every summarisation system prompt.
const summarySystemMarker = "You are an AI Scrum Master analysing issue tracker data."

// SummaryRequest is the input to summarisation.
type SummaryRequest struct {
	SessionID string
	Intent    domain.IntentCategory
	Depth     domain.Depth
	Question  string
	SQL       string
	Rows      *domain.ResultSet
	// Facts are precomputed findings (completion rate, risks) to ground the prose.
	Facts string
}

// Summarizer writes prose answers from query results. It reads the session's
// model-side history so answers can refer back to earlier exchanges.
type Summarizer struct {
	client       LLMClient
	model        string
	conversation *Conversation
	logger       *zap.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(client LLMClient, model string, conversation *Conversation, logger *zap.Logger) *Summarizer {
	return &Summarizer{client: client, model: model, conversation: conversation, logger: logger}
}

// Summarize returns prose for the results. Failures are ServiceUnavailableError.
func (s *Summarizer) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	messages := []ChatMessage{{Role: "system", Content: buildSummarySystemPrompt(req)}}
	if s.conversation != nil && req.SessionID != "" {
		messages = append(messages, s.conversation.Messages(req.SessionID)...)
	}
	messages = append(messages, ChatMessage{Role: "user", Content: buildSummaryUserPrompt(req)})

	temperature := 0.3
	maxTokens := 600
	if req.Depth == domain.DepthAdvanced {
		maxTokens = 1200
	}
	resp, err := s.client.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", &domain.ServiceUnavailableError{Service: "summarization", Err: err}
	}
	text := strings.TrimSpace(resp.Content())
	if text == "" {
		return "", &domain.ServiceUnavailableError{Service: "summarization", Err: fmt.Errorf("empty completion")}
	}
	return text, nil
}

func buildSummarySystemPrompt(req SummaryRequest) string {
	var b strings.Builder
	b.WriteString(summarySystemMarker)
	b.WriteString(`
Based on the SQL results provided, give a clear, concise answer to the user's question.
- Be conversational and helpful
- Highlight key insights
- For project health, mention bottlenecks, blockers and deadline risks
- For standups, group the update by person
- Use bullet points when needed`)
	if req.Depth == domain.DepthAdvanced {
		b.WriteString(`
- This is an advanced analysis: assess deadline feasibility for each risk item, call out
  issues whose feasibility is indeterminate and recommend concrete next steps`)
	} else {
		b.WriteString("\n- Keep it under 200 words")
	}
	return b.String()
}

// buildSummaryUserPrompt writes the header lines the mock client also reads.
func buildSummaryUserPrompt(req SummaryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Intent: %s\n", req.Intent)
	fmt.Fprintf(&b, "Depth: %s\n", req.Depth)
	fmt.Fprintf(&b, "Rows: %d\n", req.Rows.Len())
	fmt.Fprintf(&b, "User asked: %s\n\n", req.Question)
	if req.SQL != "" {
		fmt.Fprintf(&b, "SQL query used: %s\n\n", req.SQL)
	}
	if req.Facts != "" {
		fmt.Fprintf(&b, "Findings:\n%s\n\n", req.Facts)
	}
	b.WriteString("Results:\n")
	b.WriteString(FormatRows(req.Rows, maxPromptRows))
	b.WriteString("\nProvide your analysis:")
	return b.String()
}

// FormatRows renders up to limit rows as a pipe-separated table.
func FormatRows(rs *domain.ResultSet, limit int) string {
	if rs.Len() == 0 {
		return "(no rows)\n"
	}
	var b strings.Builder
	b.WriteString(strings.Join(rs.Columns, " | "))
	b.WriteByte('\n')
	for i, row := range rs.Rows {
		if i == limit {
			fmt.Fprintf(&b, "... %d more rows\n", len(rs.Rows)-limit)
			break
		}
		cells := make([]string, len(rs.Columns))
		for j, col := range rs.Columns {
			cells[j] = row.String(strings.ToLower(col))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}
