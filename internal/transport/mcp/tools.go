// Package mcp exposes the scrum master as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// Assistant is the query surface the tools call.
type Assistant interface {
	Handle(ctx context.Context, query, sessionID string) (*domain.Response, error)
	ResetContext(ctx context.Context, sessionID string) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// AskTool handles the ask_scrum_master MCP tool.
type AskTool struct {
	assistant Assistant
}

// NewAskTool creates an AskTool.
func NewAskTool(a Assistant) *AskTool {
	return &AskTool{assistant: a}
}

// Definition returns the MCP tool definition for ask_scrum_master.
func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool("ask_scrum_master",
		mcp.WithDescription(
			"Ask a question about the loaded projects: health, standups, stuck or overdue "+
				"tickets, team workload. Follow-up questions in the same session reuse context.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question in plain English"),
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Conversation identifier; reuse it for follow-ups"),
		),
	)
}

// Handle processes the ask_scrum_master tool call.
func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	sessionID := req.GetString("session_id", "")

	resp, err := t.assistant.Handle(ctx, query, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to answer: %v", err)), nil
	}

	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	text := resp.Summary + "\n\n```json\n" + string(body) + "\n```"
	if resp.Status == domain.StatusError {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

// ResetTool handles the reset_session MCP tool.
type ResetTool struct {
	assistant Assistant
}

// NewResetTool creates a ResetTool.
func NewResetTool(a Assistant) *ResetTool {
	return &ResetTool{assistant: a}
}

// Definition returns the MCP tool definition for reset_session.
func (t *ResetTool) Definition() mcp.Tool {
	return mcp.NewTool("reset_session",
		mcp.WithDescription("Forget the conversation context of a session."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier to reset"),
		),
	)
}

// Handle processes the reset_session tool call.
func (t *ResetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	if err := t.assistant.ResetContext(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reset session: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %q reset", sessionID)), nil
}

// ProjectsTool handles the list_projects MCP tool.
type ProjectsTool struct {
	assistant Assistant
}

// NewProjectsTool creates a ProjectsTool.
func NewProjectsTool(a Assistant) *ProjectsTool {
	return &ProjectsTool{assistant: a}
}

// Definition returns the MCP tool definition for list_projects.
func (t *ProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_projects",
		mcp.WithDescription("List the loaded projects with their keys and issue counts."),
	)
}

// Handle processes the list_projects tool call.
func (t *ProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := t.assistant.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}
	if len(projects) == 0 {
		return mcp.NewToolResultText("No projects loaded."), nil
	}
	var b strings.Builder
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s: %s (%d issues)\n", p.Key, p.Name, p.IssueCount)
	}
	return mcp.NewToolResultText(b.String()), nil
}
