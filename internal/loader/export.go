package loader

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// exportFile is one project's tracker export.
type exportFile struct {
	Key        string          `json:"key"`
	Name       string          `json:"name"`
	ID         json.RawMessage `json:"id"`
	IssueCount int             `json:"issue_count"`
	Issues     []exportIssue   `json:"issues"`
}

type exportIssue struct {
	Key    string       `json:"key"`
	Fields exportFields `json:"fields"`
}

type named struct {
	Name string `json:"name"`
}

type person struct {
	DisplayName string `json:"displayName"`
}

type exportFields struct {
	Summary      string          `json:"summary"`
	Description  json.RawMessage `json:"description"`
	Status       *named          `json:"status"`
	Assignee     *person         `json:"assignee"`
	Reporter     *person         `json:"reporter"`
	Priority     *named          `json:"priority"`
	IssueType    *named          `json:"issuetype"`
	Labels       []string        `json:"labels"`
	StoryPoints  *float64        `json:"customfield_10016"`
	StoryPoints2 *float64        `json:"storyPoints"`
	Created      string          `json:"created"`
	Updated      string          `json:"updated"`
	DueDate      string          `json:"duedate"`
	Resolution   *named          `json:"resolution"`
	TimeSpent    *int64          `json:"timespent"`
	TimeEstimate *int64          `json:"timeoriginalestimate"`
	Parent       *struct {
		Key string `json:"key"`
	} `json:"parent"`
}

// ParseExport decodes a project export. name is the file name, used for the
// project key when the export has none.
func ParseExport(name string, data []byte) (domain.Project, []domain.Issue, error) {
	var f exportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.Project{}, nil, fmt.Errorf("decode %s: %w", name, err)
	}

	project := domain.Project{
		Key:        f.Key,
		Name:       f.Name,
		ID:         rawScalar(f.ID),
		IssueCount: f.IssueCount,
	}
	if project.Key == "" {
		project.Key = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(name), ".json"), "_issues")
	}
	if project.Name == "" {
		project.Name = "Unknown"
	}

	issues := make([]domain.Issue, 0, len(f.Issues))
	for _, is := range f.Issues {
		issues = append(issues, convertIssue(project.Key, is))
	}
	if project.IssueCount == 0 {
		project.IssueCount = len(issues)
	}
	return project, issues, nil
}

func convertIssue(projectKey string, is exportIssue) domain.Issue {
	fl := is.Fields
	out := domain.Issue{
		Key:         is.Key,
		Project:     projectKey,
		Summary:     fl.Summary,
		Description: FlattenDescription(fl.Description),
		Status:      nameOr(fl.Status, "Unknown"),
		Assignee:    "Unassigned",
		Reporter:    "Unknown",
		Priority:    nameOr(fl.Priority, "None"),
		IssueType:   nameOr(fl.IssueType, "Task"),
		Labels:      strings.Join(fl.Labels, ", "),
		Created:     exportDate(fl.Created),
		Updated:     exportDate(fl.Updated),
		DueDate:     exportDate(fl.DueDate),
		Resolution:  nameOr(fl.Resolution, ""),
	}
	if fl.Assignee != nil && fl.Assignee.DisplayName != "" {
		out.Assignee = fl.Assignee.DisplayName
	}
	if fl.Reporter != nil && fl.Reporter.DisplayName != "" {
		out.Reporter = fl.Reporter.DisplayName
	}
	switch {
	case fl.StoryPoints != nil:
		out.StoryPoints = fl.StoryPoints
	case fl.StoryPoints2 != nil:
		out.StoryPoints = fl.StoryPoints2
	}
	if fl.TimeSpent != nil {
		out.TimeSpent = *fl.TimeSpent
	}
	if fl.TimeEstimate != nil {
		out.TimeEstimate = *fl.TimeEstimate
	}
	if fl.Parent != nil {
		out.ParentKey = fl.Parent.Key
	}
	return out
}

func nameOr(n *named, fallback string) string {
	if n == nil || n.Name == "" {
		return fallback
	}
	return n.Name
}

// exportDate keeps the date part of a tracker timestamp.
func exportDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, ok := domain.ParseDate(s)
	if !ok {
		return nil
	}
	return &t
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// adfNode is a node of an Atlassian Document Format tree.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// FlattenDescription returns the plain text of a description that is either
// a string or an Atlassian Document Format document. Paragraphs are joined
// with spaces.
func FlattenDescription(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	var parts []string
	for _, block := range doc.Content {
		if text := strings.TrimSpace(collectText(block)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func collectText(n adfNode) string {
	if n.Type == "text" {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Content {
		b.WriteString(collectText(c))
	}
	return b.String()
}
