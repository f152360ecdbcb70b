package main

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcptransport "github.com/AbhigyanVE/ScrumMaster/internal/transport/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		stop, err := a.Watch(ctx)
		if err != nil {
			return err
		}
		defer stop()

		return server.ServeStdio(mcptransport.NewServer(a.Service))
	},
}
