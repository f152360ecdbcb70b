package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AbhigyanVE/ScrumMaster/internal/app"
)

var loadWatch bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load tracker exports into the database",
	Long: `Loads every *.json export in the data directory, replacing each
project's issues. With --watch, keeps running and reloads files as they change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.LoadData(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loaded %d issues from %d projects\n", report.Issues, len(report.Projects))
		failed := make([]string, 0, len(report.Failed))
		for file := range report.Failed {
			failed = append(failed, file)
		}
		sort.Strings(failed)
		for _, file := range failed {
			fmt.Fprintf(out, "  skipped %s: %s\n", file, report.Failed[file])
		}

		if !loadWatch {
			return nil
		}
		a.Config.Watch = true
		stop, err := a.Watch(ctx)
		if err != nil {
			return err
		}
		defer stop()

		fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", a.Config.DataDir)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		return nil
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadWatch, "watch", false, "Reload exports when they change")
}
