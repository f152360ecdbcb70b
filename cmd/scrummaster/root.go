package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/app"
	"github.com/AbhigyanVE/ScrumMaster/internal/config"
	"github.com/AbhigyanVE/ScrumMaster/internal/logging"
)

var (
	// Global flags
	configFile string
	dataDir    string
	mockMode   bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrummaster",
	Short: "AI scrum master over tracker exports",
	Long: `scrummaster loads tracker JSON exports into SQLite and answers questions
about them: project health, standups, stuck or overdue tickets, workload.

Quick Start:
  scrummaster load                        # Load ./data/*.json
  scrummaster ask "show me stuck tickets" # One-shot question
  scrummaster serve                       # HTTP + WebSocket API
  scrummaster mcp                         # MCP server on stdio`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			os.Setenv("SCRUM_CONFIG_FILE", configFile)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if mockMode {
			cfg.Mode = "MOCK"
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides environment)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding *_issues.json exports")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "Use the deterministic mock LLM")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, loadCmd, askCmd, mcpCmd)
}

// openApp builds the pipeline and loads the data directory.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := a.LoadData(ctx); err != nil {
		logger.Warn("no exports loaded", zap.String("dir", cfg.DataDir), zap.Error(err))
	}
	return a, nil
}
