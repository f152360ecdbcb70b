package loader

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryWriter struct {
	mu       sync.Mutex
	projects map[string]domain.Project
	issues   map[string][]domain.Issue
	fail     string
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{projects: map[string]domain.Project{}, issues: map[string][]domain.Issue{}}
}

func (m *memoryWriter) ReplaceProject(ctx context.Context, project domain.Project, issues []domain.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if project.Key == m.fail {
		return errors.New("write failed")
	}
	m.projects[project.Key] = project
	m.issues[project.Key] = issues
	return nil
}

func (m *memoryWriter) issueCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issues[key])
}

const croExport = `{
  "key": "CRO", "name": "Conversion", "id": 10001, "issue_count": 2,
  "issues": [
    {"key": "CRO-1", "fields": {
      "summary": "Checkout flow",
      "description": {"type": "doc", "version": 1, "content": [
        {"type": "paragraph", "content": [{"type": "text", "text": "Build the "}, {"type": "text", "text": "checkout"}]},
        {"type": "bulletList", "content": [{"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "with tests"}]}]}]}
      ]},
      "status": {"name": "In Progress"},
      "assignee": {"displayName": "Ana"},
      "reporter": {"displayName": "Ben"},
      "priority": {"name": "High"},
      "issuetype": {"name": "Story"},
      "labels": ["web", "q1"],
      "customfield_10016": 5,
      "created": "2026-01-05T10:30:45.123+0000",
      "updated": "2026-02-01T08:00:00.000+0000",
      "duedate": "2026-03-01",
      "timespent": 3600,
      "timeoriginalestimate": 28800,
      "parent": {"key": "CRO-0"}
    }},
    {"key": "CRO-2", "fields": {"summary": "Fix typo", "description": "plain text", "assignee": null, "status": null}}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestParseExport(t *testing.T) {
	project, issues, err := ParseExport("CRO_issues.json", []byte(croExport))
	require.NoError(t, err)
	assert.Equal(t, domain.Project{Key: "CRO", Name: "Conversion", ID: "10001", IssueCount: 2}, project)
	require.Len(t, issues, 2)

	first := issues[0]
	assert.Equal(t, "Build the checkout with tests", first.Description)
	assert.Equal(t, "In Progress", first.Status)
	assert.Equal(t, "Ana", first.Assignee)
	assert.Equal(t, "web, q1", first.Labels)
	require.NotNil(t, first.StoryPoints)
	assert.Equal(t, 5.0, *first.StoryPoints)
	require.NotNil(t, first.Created)
	assert.Equal(t, "2026-01-05", first.Created.Format("2006-01-02"))
	assert.Equal(t, int64(28800), first.TimeEstimate)
	assert.Equal(t, int64(3600), first.TimeSpent)
	assert.Equal(t, "CRO-0", first.ParentKey)

	second := issues[1]
	assert.Equal(t, "plain text", second.Description)
	assert.Equal(t, "Unassigned", second.Assignee)
	assert.Equal(t, "Unknown", second.Status)
	assert.Equal(t, "Task", second.IssueType)
	assert.Nil(t, second.DueDate)
}

func TestParseExportKeyFromFileName(t *testing.T) {
	project, issues, err := ParseExport("PAY_issues.json", []byte(`{"issues": []}`))
	require.NoError(t, err)
	assert.Equal(t, "PAY", project.Key)
	assert.Equal(t, "Unknown", project.Name)
	assert.Empty(t, issues)
}

func TestFlattenDescription(t *testing.T) {
	assert.Equal(t, "", FlattenDescription(nil))
	assert.Equal(t, "", FlattenDescription(json.RawMessage("null")))
	assert.Equal(t, "hello", FlattenDescription(json.RawMessage(`"  hello "`)))
	assert.Equal(t, "", FlattenDescription(json.RawMessage(`{"type":"doc","content":[]}`)))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CRO_issues.json", croExport)
	writeFile(t, dir, "PAY_issues.json", `{"key":"PAY","name":"Payments","issues":[{"key":"PAY-1","fields":{"summary":"Refunds"}}]}`)
	writeFile(t, dir, "broken.json", `{"key":`)
	writeFile(t, dir, "notes.txt", "ignored")

	w := newMemoryWriter()
	report, err := New(w, zap.NewNop()).LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"CRO", "PAY"}, report.Projects)
	assert.Equal(t, 3, report.Issues)
	assert.Contains(t, report.Failed, "broken.json")
	assert.Equal(t, 1, w.projects["PAY"].IssueCount)
}

func TestLoadDirStoreFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CRO_issues.json", croExport)
	w := newMemoryWriter()
	w.fail = "CRO"

	report, err := New(w, nil).LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, report.Projects)
	assert.Contains(t, report.Failed, "CRO_issues.json")
}

func TestLoadDirMissing(t *testing.T) {
	_, err := New(newMemoryWriter(), nil).LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatcherReloadsChangedExports(t *testing.T) {
	dir := t.TempDir()
	w := newMemoryWriter()
	reloads := make(chan *Report, 4)

	watcher, err := NewWatcher(dir, New(w, nil),
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(r *Report) { reloads <- r }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	defer watcher.Stop()

	writeFile(t, dir, "CRO_issues.json", croExport)
	writeFile(t, dir, "ignored.txt", "x")

	select {
	case r := <-reloads:
		assert.Equal(t, []string{"CRO"}, r.Projects)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the export")
	}
	assert.Equal(t, 2, w.issueCount("CRO"))
}

func TestWatcherStopWithoutStart(t *testing.T) {
	watcher, err := NewWatcher(t.TempDir(), New(newMemoryWriter(), nil))
	require.NoError(t, err)
	watcher.Stop()
}
