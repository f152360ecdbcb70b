package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AbhigyanVE/ScrumMaster/internal/config"
	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func exportJSON(key string, updated time.Time) string {
	return fmt.Sprintf(`{"key": %q, "name": "Project %s", "issue_count": 1, "issues": [
  {"key": "%s-1", "fields": {
    "summary": "Checkout flow",
    "status": {"name": "In Progress"},
    "assignee": {"displayName": "Ana"},
    "priority": {"name": "High"},
    "updated": %q
  }}
]}`, key, key, key, updated.Format("2006-01-02T15:04:05.000-0700"))
}

func newTestApp(t *testing.T, watch bool) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabaseURL:     ":memory:",
		ContextBackend:  config.BackendMemory,
		Mode:            "MOCK",
		LLMModel:        "mock",
		SummaryMaxRunes: 500,
		DataDir:         dir,
		Watch:           watch,
	}
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, dir
}

func TestLoadDataAndAsk(t *testing.T) {
	a, dir := newTestApp(t, false)
	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CRO_issues.json"), []byte(exportJSON("CRO", stale)), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))

	report, err := a.LoadData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CRO"}, report.Projects)
	assert.Equal(t, 1, report.Issues)
	assert.Contains(t, report.Failed, "broken.json")

	resp, err := a.Service.Handle(context.Background(), "Which tickets are stuck in project CRO?", "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOK, resp.Status)
	require.NotNil(t, resp.Tickets)
	require.Len(t, resp.Tickets.Tickets, 1)
	assert.Equal(t, "CRO-1", resp.Tickets.Tickets[0].IssueKey)
}

func TestAskAboutUnloadedProject(t *testing.T) {
	a, dir := newTestApp(t, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CRO_issues.json"), []byte(exportJSON("CRO", time.Now())), 0o600))
	_, err := a.LoadData(context.Background())
	require.NoError(t, err)

	resp, err := a.Service.Handle(context.Background(), "Which tickets are stuck in project XYZ?", "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClarificationNeeded, resp.Status)
	assert.Nil(t, resp.Tickets)
	assert.Equal(t, []string{"CRO"}, resp.Generic.Suggestions)
}

func TestWatchDisabledIsNoop(t *testing.T) {
	a, _ := newTestApp(t, false)
	stop, err := a.Watch(context.Background())
	require.NoError(t, err)
	stop()
}

func TestWatchReloadsNewExports(t *testing.T) {
	a, dir := newTestApp(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := a.Watch(ctx)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "PAY_issues.json"), []byte(exportJSON("PAY", time.Now())), 0o600))

	assert.Eventually(t, func() bool {
		projects, err := a.Service.ListProjects(context.Background())
		return err == nil && len(projects) == 1 && projects[0].Key == "PAY"
	}, 5*time.Second, 50*time.Millisecond)
}
