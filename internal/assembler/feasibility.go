package assembler

import (
	"strings"
	"time"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// WorkdayHours is the effort one assignee can spend on an issue per calendar day.
const WorkdayHours = 8

// placeholderDescriptions are descriptions that say nothing about the work.
var placeholderDescriptions = map[string]bool{
	"n/a": true, "na": true, "none": true, "null": true, "tbd": true, "todo": true,
	"-": true, "--": true, ".": true, "?": true, "no description": true,
}

// AssessFeasibility reports whether an issue can meet its due date, and
// separately whether it is overdue. When the remaining estimate is not
// positive or the description is missing the answer is indeterminate.
func AssessFeasibility(issue domain.Issue, now time.Time) (domain.Feasibility, bool) {
	overdue := domain.IsOverdue(issue, now)
	if domain.IsTerminalStatus(issue.Status) {
		return domain.FeasibilityComplete, false
	}

	remaining := issue.TimeEstimate - issue.TimeSpent
	if remaining <= 0 || !validDescription(issue.Description) {
		return domain.FeasibilityIndeterminate, overdue
	}
	if issue.DueDate == nil {
		return domain.FeasibilityNoDeadline, false
	}
	if overdue {
		return domain.FeasibilityOverdue, true
	}

	if time.Duration(remaining)*time.Second > availableEffort(*issue.DueDate, now) {
		return domain.FeasibilityAtRisk, false
	}
	return domain.FeasibilityOnTrack, false
}

// availableEffort counts the working time left from today through the due
// date, both inclusive.
func availableEffort(due, now time.Time) time.Duration {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	days := int(dueDay.Sub(today).Hours()/24) + 1
	if days < 0 {
		days = 0
	}
	return time.Duration(days) * WorkdayHours * time.Hour
}

func validDescription(desc string) bool {
	d := strings.ToLower(strings.TrimSpace(desc))
	return d != "" && !placeholderDescriptions[d]
}
