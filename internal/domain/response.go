package domain

// Feasibility is the deadline assessment for one issue.
type Feasibility string

const (
	FeasibilityComplete      Feasibility = "complete"
	FeasibilityIndeterminate Feasibility = "indeterminate"
	FeasibilityOverdue       Feasibility = "overdue"
	FeasibilityAtRisk        Feasibility = "at_risk"
	FeasibilityOnTrack       Feasibility = "on_track"
	FeasibilityNoDeadline    Feasibility = "no_deadline"
)

// Response is the structured answer returned for a query. Exactly one of
// Health, Standup, Tickets or Generic is set, matching Kind.
type Response struct {
	Kind      ResponseKind   `json:"kind"`
	Status    ResponseStatus `json:"status"`
	SessionID string         `json:"session_id"`
	Intent    IntentCategory `json:"intent"`
	Depth     Depth          `json:"depth"`
	Pattern   string         `json:"pattern,omitempty"`
	Project   string         `json:"project,omitempty"`
	SQL       string         `json:"sql,omitempty"`
	// Summary is the prose answer shown to the user.
	Summary string `json:"summary"`
	Notice  string `json:"notice,omitempty"`

	Health  *HealthReport   `json:"health,omitempty"`
	Standup *StandupSummary `json:"standup,omitempty"`
	Tickets *TicketSummary  `json:"tickets,omitempty"`
	Generic *GenericAnswer  `json:"generic,omitempty"`
}

// RiskItem is an issue flagged by a health or standup analysis.
type RiskItem struct {
	IssueKey    string      `json:"issue_key"`
	Summary     string      `json:"summary,omitempty"`
	Status      string      `json:"status"`
	Assignee    string      `json:"assignee,omitempty"`
	Reasons     []string    `json:"reasons"`
	Overdue     bool        `json:"overdue"`
	Stuck       bool        `json:"stuck"`
	Feasibility Feasibility `json:"feasibility"`
}

// HealthReport summarises project health.
type HealthReport struct {
	TotalIssues    int            `json:"total_issues"`
	CompletedCount int            `json:"completed_count"`
	CompletionRate float64        `json:"completion_rate"`
	BlockerCount   int            `json:"blocker_count"`
	StatusCounts   map[string]int `json:"status_counts"`
	RiskItems      []RiskItem     `json:"risk_items"`
}

// StandupEntry is one assignee's standup line.
type StandupEntry struct {
	Assignee   string   `json:"assignee"`
	InProgress []string `json:"in_progress"`
	Completed  []string `json:"completed"`
	Blocked    []string `json:"blocked"`
	Overdue    []string `json:"overdue"`
}

// StandupSummary groups open work per assignee.
type StandupSummary struct {
	Entries   []StandupEntry `json:"entries"`
	RiskItems []RiskItem     `json:"risk_items"`
}

// TicketLine is one issue in a ticket listing.
type TicketLine struct {
	IssueKey    string      `json:"issue_key"`
	Summary     string      `json:"summary,omitempty"`
	Status      string      `json:"status,omitempty"`
	Assignee    string      `json:"assignee,omitempty"`
	Priority    string      `json:"priority,omitempty"`
	Project     string      `json:"project_key,omitempty"`
	DueDate     string      `json:"duedate,omitempty"`
	Feasibility Feasibility `json:"feasibility,omitempty"`
}

// WorkloadLine is one assignee's open-issue load.
type WorkloadLine struct {
	Assignee         string `json:"assignee"`
	TotalTasks       int64  `json:"total_tasks"`
	HighPriority     int64  `json:"high_priority"`
	CriticalPriority int64  `json:"critical_priority"`
}

// TicketSummary lists tickets or per-assignee workload.
type TicketSummary struct {
	Count    int            `json:"count"`
	Tickets  []TicketLine   `json:"tickets,omitempty"`
	Workload []WorkloadLine `json:"workload,omitempty"`
}

// GenericAnswer is free text with the raw rows, used for General intents and
// as the degraded form of every other kind.
type GenericAnswer struct {
	Text        string   `json:"text"`
	Columns     []string `json:"columns,omitempty"`
	Rows        []Row    `json:"rows,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
