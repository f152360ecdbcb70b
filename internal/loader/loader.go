// Package loader ingests tracker JSON exports into the relational store.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// ProjectWriter replaces one project's issues.
type ProjectWriter interface {
	ReplaceProject(ctx context.Context, project domain.Project, issues []domain.Issue) error
}

// Report summarises a load.
type Report struct {
	Projects []string `json:"projects"`
	Issues   int      `json:"issues"`
	// Failed maps file names to the reason they were skipped.
	Failed map[string]string `json:"failed,omitempty"`
}

// Loader parses exports concurrently and writes them one project at a time.
type Loader struct {
	store   ProjectWriter
	logger  *zap.Logger
	workers int
}

// New creates a loader.
func New(store ProjectWriter, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger, workers: 4}
}

type parsed struct {
	file    string
	project domain.Project
	issues  []domain.Issue
	err     error
}

// LoadDir loads every *.json file in dir. A file that cannot be parsed or
// written is reported and skipped.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return l.LoadFiles(ctx, files...)
}

// LoadFiles loads the named export files.
func (l *Loader) LoadFiles(ctx context.Context, files ...string) (*Report, error) {
	results := make([]parsed, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = parseFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Projects: []string{}, Failed: map[string]string{}}
	for _, r := range results {
		name := filepath.Base(r.file)
		if r.err != nil {
			l.logger.Warn("skipping export", zap.String("file", name), zap.Error(r.err))
			report.Failed[name] = r.err.Error()
			continue
		}
		if err := l.store.ReplaceProject(ctx, r.project, r.issues); err != nil {
			l.logger.Warn("failed to store export", zap.String("file", name), zap.Error(err))
			report.Failed[name] = err.Error()
			continue
		}
		l.logger.Info("imported project",
			zap.String("project", r.project.Key), zap.Int("issues", len(r.issues)))
		report.Projects = append(report.Projects, r.project.Key)
		report.Issues += len(r.issues)
	}
	return report, nil
}

func parseFile(file string) parsed {
	data, err := os.ReadFile(file)
	if err != nil {
		return parsed{file: file, err: err}
	}
	project, issues, err := ParseExport(filepath.Base(file), data)
	return parsed{file: file, project: project, issues: issues, err: err}
}
