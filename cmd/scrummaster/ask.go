package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbhigyanVE/ScrumMaster/internal/render"
)

var (
	askSession string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long: `Answers one question against the loaded data. Reuse --session to ask
follow-ups against the same conversation context.

Example:
  scrummaster ask "give me advanced health of CRO" --session me
  scrummaster ask "what about PAY" --session me`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Service.Handle(ctx, strings.Join(args, " "), askSession)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		_, err = out.Write([]byte(render.Terminal(resp, 100)))
		return err
	},
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "cli", "Session id for conversation context")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the structured response as JSON")
}
