package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned for requests missing a query or session.
var ErrInvalidRequest = errors.New("invalid request")

// ValidationError reports rows that do not fit the schema a response kind needs.
type ValidationError struct {
	Kind    ResponseKind
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing columns %s", e.Kind, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// UnsafeQueryError is returned when generated SQL is not a single read-only statement.
type UnsafeQueryError struct {
	SQL    string
	Reason string
}

func (e *UnsafeQueryError) Error() string {
	return "unsafe query rejected: " + e.Reason
}

// QueryError wraps a relational execution failure.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ServiceUnavailableError is returned when the SQL generation or summarization
// capability cannot be reached or times out.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// AmbiguousScopeError asks the caller to name a project. Unknown is set when
// the query named a project that is not loaded.
type AmbiguousScopeError struct {
	Unknown    string
	Candidates []string
}

func (e *AmbiguousScopeError) Error() string {
	if e.Unknown != "" {
		return "unknown project " + e.Unknown + ", one of: " + strings.Join(e.Candidates, ", ")
	}
	if len(e.Candidates) == 0 {
		return "query needs a project scope"
	}
	return "query needs a project scope, one of: " + strings.Join(e.Candidates, ", ")
}

// IsServiceUnavailable reports whether err wraps a ServiceUnavailableError.
func IsServiceUnavailable(err error) bool {
	var target *ServiceUnavailableError
	return errors.As(err, &target)
}
