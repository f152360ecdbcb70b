// Package policy decides whether generated SQL may run, using an OPA policy
// over facts extracted from the statement.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.sql_policy.decision"),
		rego.Module("sql_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy. The policy must produce an object
// {"allow": bool, "reason": string}; anything else is a denial.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (bool, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "policy produced no decision", nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return false, "unexpected decision type", nil
	}
	allow, _ := obj["allow"].(bool)
	reason, _ := obj["reason"].(string)
	return allow, reason, nil
}

// DefaultPolicy only admits a single SELECT over known tables.
const DefaultPolicy = `
package sql_policy

default decision = {"allow": false, "reason": "no rule matched"}

read_only_starts = {"select", "with"}

forbidden = {
	"insert", "update", "delete", "drop", "alter", "create", "replace", "attach",
	"detach", "pragma", "vacuum", "reindex", "truncate", "grant", "revoke", "begin",
	"commit", "rollback", "savepoint", "release", "analyze", "load_extension",
	"readfile", "writefile", "fts3_tokenizer"
}

deny[msg] {
	input.statement_count == 0
	msg := "empty statement"
}

deny[msg] {
	input.statement_count > 1
	msg := sprintf("expected a single statement, got %d", [input.statement_count])
}

deny[msg] {
	input.statement_count == 1
	not read_only_starts[input.first_keyword]
	msg := sprintf("statement must start with SELECT or WITH, got %q", [input.first_keyword])
}

deny[msg] {
	kw := input.keywords[_]
	forbidden[kw]
	msg := sprintf("forbidden keyword %s", [upper(kw)])
}

deny[msg] {
	t := input.tables[_]
	not allowed_table(t)
	msg := sprintf("unknown table %s", [t])
}

allowed_table(t) {
	input.allowed_tables[_] == t
}

decision = {"allow": true, "reason": "read-only"} {
	count(deny) == 0
}

decision = {"allow": false, "reason": concat("; ", sort(deny))} {
	count(deny) > 0
}
`
