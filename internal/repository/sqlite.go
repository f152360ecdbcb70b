package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			project_key TEXT PRIMARY KEY,
			project_name TEXT,
			project_id TEXT,
			issue_count INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS issues (
			issue_key TEXT PRIMARY KEY,
			project_key TEXT,
			summary TEXT,
			description TEXT,
			status TEXT,
			assignee TEXT,
			reporter TEXT,
			priority TEXT,
			issue_type TEXT,
			labels TEXT,
			story_points REAL,
			created TEXT,
			updated TEXT,
			duedate TEXT,
			resolution TEXT,
			time_spent INTEGER,
			time_estimate INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_key, status)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_assignee ON issues(assignee)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			exchanges TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Databases built by older loaders predate sub-task tracking.
	if err := s.ensureColumn("issues", "parent_key", "ALTER TABLE issues ADD COLUMN parent_key TEXT"); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Query runs a read-only statement on a connection pinned to query_only
// mode. Failures are returned as QueryError.
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...any) (*domain.ResultSet, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, &domain.QueryError{SQL: query, Err: err}
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, &domain.QueryError{SQL: query, Err: err}
	}
	defer conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.QueryError{SQL: query, Err: err}
	}
	defer rows.Close()

	rs, err := scanResultSet(rows)
	if err != nil {
		return nil, &domain.QueryError{SQL: query, Err: err}
	}
	return rs, nil
}

func scanResultSet(rows *sql.Rows) (*domain.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = strings.ToLower(c)
	}

	rs := &domain.ResultSet{Columns: cols, Rows: []domain.Row{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(cols))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[keys[i]] = v
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, rows.Err()
}

// ListProjects returns all projects ordered by key.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.project_key, COALESCE(p.project_name, ''), COALESCE(p.project_id, ''),
			(SELECT COUNT(*) FROM issues i WHERE i.project_key = p.project_key)
		FROM projects p ORDER BY p.project_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.Key, &p.Name, &p.ID, &p.IssueCount); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListAssignees returns distinct assignees, most loaded first.
func (s *SQLiteStore) ListAssignees(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT assignee FROM issues
		WHERE assignee IS NOT NULL AND assignee != '' AND assignee != 'Unassigned'
		GROUP BY assignee ORDER BY COUNT(*) DESC, assignee ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Stats returns the quick counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*domain.Stats, error) {
	var st domain.Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM projects),
		(SELECT COUNT(*) FROM issues),
		(SELECT COUNT(DISTINCT assignee) FROM issues WHERE assignee IS NOT NULL AND assignee != '' AND assignee != 'Unassigned'),
		(SELECT COUNT(*) FROM issues WHERE status NOT IN ('Done', 'Closed', 'Cancelled', 'Resolved'))`).
		Scan(&st.Projects, &st.Issues, &st.TeamMembers, &st.OpenIssues)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ReplaceProject swaps a project's issues for a fresh export in one transaction.
func (s *SQLiteStore) ReplaceProject(ctx context.Context, project domain.Project, issues []domain.Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO projects (project_key, project_name, project_id, issue_count) VALUES (?, ?, ?, ?)`,
		project.Key, project.Name, project.ID, project.IssueCount); err != nil {
		return fmt.Errorf("upsert project %s: %w", project.Key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE project_key = ?`, project.Key); err != nil {
		return fmt.Errorf("clear issues of %s: %w", project.Key, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO issues (
		issue_key, project_key, summary, description, status, assignee, reporter, priority,
		issue_type, labels, story_points, created, updated, duedate, resolution,
		time_spent, time_estimate, parent_key
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, is := range issues {
		if _, err := stmt.ExecContext(ctx,
			is.Key, project.Key, is.Summary, nullString(is.Description), is.Status, is.Assignee,
			is.Reporter, is.Priority, is.IssueType, nullString(is.Labels), is.StoryPoints,
			dateValue(is.Created), dateValue(is.Updated), dateValue(is.DueDate),
			nullString(is.Resolution), is.TimeSpent, is.TimeEstimate, nullString(is.ParentKey),
		); err != nil {
			return fmt.Errorf("insert issue %s: %w", is.Key, err)
		}
	}
	return tx.Commit()
}

// LoadSession retrieves a session's context record.
func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session := domain.Session{ID: sessionID}
	var exchanges string
	err := s.db.QueryRowContext(ctx,
		`SELECT exchanges, created_at, updated_at FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&exchanges, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(exchanges), &session.Exchanges); err != nil {
		return nil, fmt.Errorf("decode exchanges of %s: %w", sessionID, err)
	}
	if session.Exchanges == nil {
		session.Exchanges = []domain.Exchange{}
	}
	return &session, nil
}

// SaveSession writes a session's context record.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.Session) error {
	exchanges := session.Exchanges
	if exchanges == nil {
		exchanges = []domain.Exchange{}
	}
	data, err := json.Marshal(exchanges)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, exchanges, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET exchanges = excluded.exchanges, updated_at = excluded.updated_at`,
		session.ID, string(data), session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	return err
}

// DeleteSession removes a session's context record.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, session_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.SessionID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a session.
func (s *SQLiteStore) GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, session_id, ts, type, payload FROM events WHERE session_id = ?`
	args := []interface{}{sessionID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.SessionID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}
