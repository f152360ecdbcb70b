// Package domain defines the core domain models for the scrum master pipeline.
package domain

// IntentCategory is the classified purpose of a user query.
type IntentCategory string

const (
	IntentHealth     IntentCategory = "health"
	IntentStandup    IntentCategory = "standup"
	IntentAssignment IntentCategory = "assignment"
	IntentList       IntentCategory = "list"
	IntentGreeting   IntentCategory = "greeting"
	IntentFarewell   IntentCategory = "farewell"
	IntentGeneral    IntentCategory = "general"
)

// IsSocial reports whether the category needs no backend work.
func (c IntentCategory) IsSocial() bool {
	return c == IntentGreeting || c == IntentFarewell
}

// Depth controls how rich the downstream analysis is.
type Depth string

const (
	DepthStandard Depth = "standard"
	DepthAdvanced Depth = "advanced"
)

// ResponseKind tags the variant carried by a Response.
type ResponseKind string

const (
	KindHealthReport   ResponseKind = "health_report"
	KindStandupSummary ResponseKind = "standup_summary"
	KindTicketSummary  ResponseKind = "ticket_summary"
	KindGenericAnswer  ResponseKind = "generic_answer"
)

// KindForIntent returns the response kind an intent category must produce.
func KindForIntent(c IntentCategory) ResponseKind {
	switch c {
	case IntentHealth:
		return KindHealthReport
	case IntentStandup:
		return KindStandupSummary
	case IntentAssignment, IntentList:
		return KindTicketSummary
	default:
		return KindGenericAnswer
	}
}

// ResponseStatus describes how a query was resolved.
type ResponseStatus string

const (
	StatusOK                  ResponseStatus = "ok"
	StatusDegraded            ResponseStatus = "degraded"
	StatusRefused             ResponseStatus = "refused"
	StatusClarificationNeeded ResponseStatus = "clarification_needed"
	StatusError               ResponseStatus = "error"
)

// EventType represents the type of a pipeline event.
type EventType string

const (
	EventTypeQueryClassified   EventType = "query_classified"
	EventTypeQueryRouted       EventType = "query_routed"
	EventTypeSQLExecuted       EventType = "sql_executed"
	EventTypeResponseAssembled EventType = "response_assembled"
	EventTypeQueryFailed       EventType = "query_failed"
	EventTypeContextReset      EventType = "context_reset"
)
