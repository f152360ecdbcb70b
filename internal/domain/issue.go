package domain

import (
	"strings"
	"time"
)

// StuckThreshold is how long a non-terminal issue may go without updates.
const StuckThreshold = 7 * 24 * time.Hour

// TerminalStatuses are statuses after which an issue needs no more work.
var TerminalStatuses = []string{"Done", "Closed", "Cancelled", "Resolved"}

// IsTerminalStatus reports whether status is terminal (case-insensitive).
func IsTerminalStatus(status string) bool {
	s := strings.TrimSpace(status)
	for _, t := range TerminalStatuses {
		if strings.EqualFold(s, t) {
			return true
		}
	}
	return false
}

// Project is an issue-tracker project.
type Project struct {
	Key        string `json:"project_key"`
	Name       string `json:"project_name"`
	ID         string `json:"project_id,omitempty"`
	IssueCount int    `json:"issue_count"`
}

// Issue is a tracker issue as stored in the relational store.
type Issue struct {
	Key          string     `json:"issue_key"`
	Project      string     `json:"project_key"`
	Summary      string     `json:"summary"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	Assignee     string     `json:"assignee"`
	Reporter     string     `json:"reporter,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	IssueType    string     `json:"issue_type,omitempty"`
	Labels       string     `json:"labels,omitempty"`
	StoryPoints  *float64   `json:"story_points,omitempty"`
	Created      *time.Time `json:"created,omitempty"`
	Updated      *time.Time `json:"updated,omitempty"`
	DueDate      *time.Time `json:"duedate,omitempty"`
	Resolution   string     `json:"resolution,omitempty"`
	TimeSpent    int64      `json:"time_spent"`
	TimeEstimate int64      `json:"time_estimate"`
	ParentKey    string     `json:"parent_key,omitempty"`
}

// IsStuck reports whether the issue has been inactive beyond StuckThreshold
// while not in a terminal status.
func IsStuck(issue Issue, now time.Time) bool {
	if issue.Updated == nil || IsTerminalStatus(issue.Status) {
		return false
	}
	return now.Sub(*issue.Updated) > StuckThreshold
}

// IsOverdue reports whether the due date has passed while the issue is open.
func IsOverdue(issue Issue, now time.Time) bool {
	if issue.DueDate == nil || IsTerminalStatus(issue.Status) {
		return false
	}
	return issue.DueDate.Before(startOfDay(now))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate parses the date formats found in tracker exports and the store.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Stats are the quick counters shown next to the chat.
type Stats struct {
	Projects    int `json:"projects"`
	Issues      int `json:"issues"`
	TeamMembers int `json:"team_members"`
	OpenIssues  int `json:"open_issues"`
}
