package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer creates the MCP server with every tool registered.
func NewServer(a Assistant) *server.MCPServer {
	s := server.NewMCPServer(
		"scrummaster",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	ask := NewAskTool(a)
	s.AddTool(ask.Definition(), ask.Handle)

	reset := NewResetTool(a)
	s.AddTool(reset.Definition(), reset.Handle)

	projects := NewProjectsTool(a)
	s.AddTool(projects.Definition(), projects.Handle)

	return s
}

const instructions = "Answers questions about tracker projects loaded from JSON exports. " +
	"Use ask_scrum_master with a stable session_id so follow-ups like \"what about PAY\" keep context. " +
	"Call list_projects first when you do not know the project keys."
