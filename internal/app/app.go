// Package app wires configuration into a running query service.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/adapter/llm"
	"github.com/AbhigyanVE/ScrumMaster/internal/assembler"
	"github.com/AbhigyanVE/ScrumMaster/internal/config"
	"github.com/AbhigyanVE/ScrumMaster/internal/contextstore"
	"github.com/AbhigyanVE/ScrumMaster/internal/intent"
	"github.com/AbhigyanVE/ScrumMaster/internal/loader"
	"github.com/AbhigyanVE/ScrumMaster/internal/patterns"
	"github.com/AbhigyanVE/ScrumMaster/internal/repository"
	"github.com/AbhigyanVE/ScrumMaster/internal/router"
	"github.com/AbhigyanVE/ScrumMaster/internal/service"
	"github.com/AbhigyanVE/ScrumMaster/policy"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Repo    *repository.SQLiteStore
	Loader  *loader.Loader
	Service *service.Service
}

// New opens the store and builds the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repo, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	guard, err := policy.NewGuard(ctx, repository.Tables...)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize query guard: %w", err)
	}

	conversation := llm.NewConversation()
	var persist contextstore.Persistence = repo
	if cfg.ContextBackend == config.BackendMemory {
		persist = contextstore.NewMemoryPersistence(cfg.ContextTTL)
	}
	ctxStore := contextstore.NewPaired(persist, conversation,
		contextstore.WithLogger(logger.Named("context")))

	client := llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)

	lib := patterns.Default()
	r := router.New(lib, repo, llm.NewSQLGenerator(client, cfg.LLMModel, logger.Named("sqlgen")), guard,
		router.WithLogger(logger.Named("router")))
	a := assembler.New(llm.NewSummarizer(client, cfg.LLMModel, conversation, logger.Named("summarizer")), ctxStore,
		assembler.WithLogger(logger.Named("assembler")),
		assembler.WithSummaryRunes(cfg.SummaryMaxRunes),
		assembler.WithPatterns(lib))

	return &App{
		Config:  cfg,
		Logger:  logger,
		Repo:    repo,
		Loader:  loader.New(repo, logger.Named("loader")),
		Service: service.New(repo, ctxStore, intent.New(lib), r, a, logger.Named("service")),
	}, nil
}

// LoadData loads the configured data directory.
func (a *App) LoadData(ctx context.Context) (*loader.Report, error) {
	report, err := a.Loader.LoadDir(ctx, a.Config.DataDir)
	if err != nil {
		return nil, err
	}
	for file, reason := range report.Failed {
		a.Logger.Warn("skipped export file", zap.String("file", file), zap.String("reason", reason))
	}
	a.Logger.Info("loaded exports",
		zap.Strings("projects", report.Projects), zap.Int("issues", report.Issues))
	return report, nil
}

// Watch starts reloading the data directory on change when enabled. The
// returned stop function is safe to call either way.
func (a *App) Watch(ctx context.Context) (func(), error) {
	if !a.Config.Watch {
		return func() {}, nil
	}
	w, err := loader.NewWatcher(a.Config.DataDir, a.Loader, loader.WithReloadHook(func(r *loader.Report) {
		a.Logger.Info("reloaded exports", zap.Strings("projects", r.Projects), zap.Int("issues", r.Issues))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	return w.Stop, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Repo.Close()
}
