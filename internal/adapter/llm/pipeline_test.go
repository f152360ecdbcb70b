package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

type recordingClient struct {
	reply string
	err   error
	reqs  []*ChatCompletionRequest
}

func (c *recordingClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return nil, c.err
	}
	return &ChatCompletionResponse{Choices: []Choice{{Message: &ChatMessage{Role: "assistant", Content: c.reply}}}}, nil
}

func TestCleanSQL(t *testing.T) {
	assert.Equal(t, "SELECT 1", CleanSQL("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", CleanSQL("  SELECT 1 "))
}

func TestSQLGeneratorPrompt(t *testing.T) {
	client := &recordingClient{reply: "```sql\nSELECT issue_key FROM issues\n```"}
	gen := NewSQLGenerator(client, "gpt-4o", zap.NewNop())

	var assignees []string
	for i := 0; i < 30; i++ {
		assignees = append(assignees, fmt.Sprintf("person%02d", i))
	}
	sql, err := gen.GenerateSQL(context.Background(), SQLRequest{
		Question:  "give me advanced health of CRO",
		Intent:    domain.IntentHealth,
		Depth:     domain.DepthAdvanced,
		Project:   "CRO",
		Projects:  []domain.Project{{Key: "CRO", Name: "Conversion"}},
		Assignees: assignees,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT issue_key FROM issues", sql)

	require.Len(t, client.reqs, 1)
	system := client.reqs[0].Messages[0].Content
	assert.Contains(t, system, "person19")
	assert.NotContains(t, system, "person20")
	assert.Contains(t, system, "CRO (Conversion)")
	assert.Contains(t, system, "project_key = 'CRO'")

	user := client.reqs[0].Messages[1].Content
	assert.True(t, strings.HasPrefix(user, "Intent: health\n"))
	assert.Contains(t, user, "Project: CRO")
}

func TestSQLGeneratorUnavailable(t *testing.T) {
	gen := NewSQLGenerator(&recordingClient{err: errors.New("connection refused")}, "m", zap.NewNop())
	_, err := gen.GenerateSQL(context.Background(), SQLRequest{Question: "q", Intent: domain.IntentGeneral})
	assert.True(t, domain.IsServiceUnavailable(err))

	gen = NewSQLGenerator(&recordingClient{reply: "```"}, "m", zap.NewNop())
	_, err = gen.GenerateSQL(context.Background(), SQLRequest{Question: "q", Intent: domain.IntentGeneral})
	assert.True(t, domain.IsServiceUnavailable(err))
}

func TestSummarizerUsesConversation(t *testing.T) {
	conv := NewConversation()
	require.NoError(t, conv.Record("s1", domain.Exchange{Query: "health of CRO", Summary: "CRO is fine"}))

	client := &recordingClient{reply: "All good."}
	s := NewSummarizer(client, "m", conv, zap.NewNop())
	text, err := s.Summarize(context.Background(), SummaryRequest{
		SessionID: "s1",
		Intent:    domain.IntentHealth,
		Depth:     domain.DepthStandard,
		Question:  "and risks?",
		Rows:      &domain.ResultSet{Columns: []string{"issue_key"}, Rows: []domain.Row{{"issue_key": "CRO-1"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "All good.", text)

	msgs := client.reqs[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "health of CRO", msgs[1].Content)
	assert.Equal(t, "CRO is fine", msgs[2].Content)
	assert.Contains(t, msgs[3].Content, "CRO-1")
}

func TestSummarizerUnavailable(t *testing.T) {
	s := NewSummarizer(&recordingClient{err: errors.New("timeout")}, "m", nil, zap.NewNop())
	_, err := s.Summarize(context.Background(), SummaryRequest{Intent: domain.IntentHealth})
	assert.True(t, domain.IsServiceUnavailable(err))
}

func TestConversationBounded(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 8; i++ {
		require.NoError(t, conv.Record("s1", domain.Exchange{Query: fmt.Sprintf("q%d", i), Summary: "a"}))
	}
	assert.Equal(t, domain.MaxExchanges, conv.Len("s1"))
	msgs := conv.Messages("s1")
	assert.Equal(t, "q3", msgs[0].Content)
	assert.Equal(t, "q7", msgs[len(msgs)-2].Content)

	require.NoError(t, conv.Clear("s1"))
	require.NoError(t, conv.Clear("s1"))
	assert.Equal(t, 0, conv.Len("s1"))
	assert.Empty(t, conv.Messages("s1"))
}

func TestConversationReplace(t *testing.T) {
	conv := NewConversation()
	require.NoError(t, conv.Replace("s1", []domain.Exchange{{Query: "a"}, {Query: "b"}}))
	assert.Equal(t, 2, conv.Len("s1"))
	require.NoError(t, conv.Replace("s1", nil))
	assert.Equal(t, 0, conv.Len("s1"))
}

func TestMockClientSQL(t *testing.T) {
	gen := NewSQLGenerator(NewMockClient(), "mock", zap.NewNop())
	sql, err := gen.GenerateSQL(context.Background(), SQLRequest{
		Question: "give me advanced health of CRO",
		Intent:   domain.IntentHealth,
		Project:  "CRO",
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE project_key = 'CRO'")
	assert.True(t, strings.HasPrefix(sql, "SELECT issue_key"))

	sql, err = gen.GenerateSQL(context.Background(), SQLRequest{Question: "who", Intent: domain.IntentAssignment})
	require.NoError(t, err)
	assert.Contains(t, sql, "GROUP BY assignee")
	assert.NotContains(t, sql, "project_key =")
}

func TestMockClientSummary(t *testing.T) {
	s := NewSummarizer(NewMockClient(), "mock", nil, zap.NewNop())
	text, err := s.Summarize(context.Background(), SummaryRequest{
		Intent: domain.IntentStandup,
		Depth:  domain.DepthAdvanced,
		Rows:   &domain.ResultSet{Columns: []string{"a"}, Rows: []domain.Row{{"a": 1}, {"a": 2}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[MOCK] standup analysis of 2 rows. Advanced review: deadlines checked for feasibility.", text)
}

func TestFormatRowsLimit(t *testing.T) {
	rs := &domain.ResultSet{Columns: []string{"n"}}
	for i := 0; i < 25; i++ {
		rs.Rows = append(rs.Rows, domain.Row{"n": int64(i)})
	}
	out := FormatRows(rs, 20)
	assert.Contains(t, out, "19\n")
	assert.Contains(t, out, "... 5 more rows")
	assert.Equal(t, "(no rows)\n", FormatRows(nil, 20))
}
