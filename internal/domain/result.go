package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one result row keyed by lower-cased column name.
type Row map[string]any

// ResultSet is the ordered output of a relational query.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// HasColumns reports whether every named column is present.
func (rs *ResultSet) HasColumns(names ...string) bool {
	if rs == nil {
		return false
	}
	have := make(map[string]bool, len(rs.Columns))
	for _, c := range rs.Columns {
		have[strings.ToLower(c)] = true
	}
	for _, n := range names {
		if !have[n] {
			return false
		}
	}
	return true
}

// Missing returns the named columns absent from the result set.
func (rs *ResultSet) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !rs.HasColumns(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// String returns the column value as text.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the column value as an integer, zero when absent or unparsable.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return int64(n)
	case []byte:
		n, _ := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return int64(n)
	}
	return 0
}

// Float returns the column value as a float, zero when absent or unparsable.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return 0
}

// Time returns the column value as a time, nil when absent or unparsable.
func (r Row) Time(col string) *time.Time {
	if t, ok := r[col].(time.Time); ok {
		return &t
	}
	t, ok := ParseDate(r.String(col))
	if !ok {
		return nil
	}
	return &t
}

// Issue maps an issue-level row onto an Issue. Missing columns stay zero.
func (r Row) Issue() Issue {
	return Issue{
		Key:          r.String("issue_key"),
		Project:      r.String("project_key"),
		Summary:      r.String("summary"),
		Description:  r.String("description"),
		Status:       r.String("status"),
		Assignee:     r.String("assignee"),
		Priority:     r.String("priority"),
		IssueType:    r.String("issue_type"),
		Updated:      r.Time("updated"),
		DueDate:      r.Time("duedate"),
		TimeSpent:    r.Int("time_spent"),
		TimeEstimate: r.Int("time_estimate"),
	}
}
