package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// Facts are the properties of a SQL text the policy reasons about.
type Facts struct {
	StatementCount int      `json:"statement_count"`
	FirstKeyword   string   `json:"first_keyword"`
	Keywords       []string `json:"keywords"`
	Tables         []string `json:"tables"`
	AllowedTables  []string `json:"allowed_tables"`
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokString
	tokPunct
	tokSemicolon
)

type token struct {
	kind tokenKind
	text string
}

// Inspect tokenizes sql, skipping comments and string literals, and extracts
// the facts the policy needs.
func Inspect(sql string) Facts {
	toks := tokenize(sql)

	f := Facts{Keywords: []string{}, Tables: []string{}}
	inStatement := false
	for _, t := range toks {
		if t.kind == tokSemicolon {
			inStatement = false
			continue
		}
		if !inStatement {
			f.StatementCount++
			inStatement = true
			if f.FirstKeyword == "" && t.kind == tokWord {
				f.FirstKeyword = strings.ToLower(t.text)
			}
		}
	}

	seenKw := make(map[string]bool)
	ctes := make(map[string]bool)
	seenTable := make(map[string]bool)
	for i, t := range toks {
		if t.kind != tokWord {
			continue
		}
		w := strings.ToLower(t.text)
		next := peek(toks, i+1)

		// replace() is a scalar function; REPLACE INTO is a write.
		if w == "replace" && next.text == "(" {
			continue
		}
		if !seenKw[w] {
			seenKw[w] = true
			f.Keywords = append(f.Keywords, w)
		}

		// WITH name AS ( ... ) and , name AS ( ... ) define CTE names.
		if next.kind == tokWord && strings.EqualFold(next.text, "as") && peek(toks, i+2).text == "(" {
			prev := peek(toks, i-1)
			if strings.EqualFold(prev.text, "with") || strings.EqualFold(prev.text, "recursive") || prev.text == "," {
				ctes[w] = true
			}
		}

		if w == "from" || w == "join" {
			for _, name := range tableList(toks, i+1) {
				if !seenTable[name] {
					seenTable[name] = true
					f.Tables = append(f.Tables, name)
				}
			}
		}
	}

	tables := f.Tables[:0]
	for _, name := range f.Tables {
		if !ctes[name] {
			tables = append(tables, name)
		}
	}
	f.Tables = tables
	return f
}

// tableList reads "a [AS] x, b y" after FROM/JOIN. Subqueries are skipped;
// their own FROM clauses are visited separately.
func tableList(toks []token, i int) []string {
	var names []string
	for i < len(toks) {
		t := toks[i]
		if t.kind != tokWord || isClauseKeyword(t.text) {
			return names
		}
		name := strings.ToLower(t.text)
		// schema-qualified names keep the table part
		if peek(toks, i+1).text == "." && peek(toks, i+2).kind == tokWord {
			name = strings.ToLower(peek(toks, i+2).text)
			i += 2
		}
		if peek(toks, i+1).text == "(" {
			// table-valued function such as json_each(...)
			return names
		}
		names = append(names, name)
		i++
		if i < len(toks) && strings.EqualFold(toks[i].text, "as") {
			i++
		}
		if i < len(toks) && toks[i].kind == tokWord && !isClauseKeyword(toks[i].text) {
			i++
		}
		if i >= len(toks) || toks[i].text != "," {
			return names
		}
		i++
	}
	return names
}

var clauseKeywords = map[string]bool{
	"select": true, "where": true, "group": true, "order": true, "having": true,
	"limit": true, "offset": true, "join": true, "inner": true, "left": true,
	"right": true, "full": true, "outer": true, "cross": true, "natural": true,
	"on": true, "using": true, "union": true, "intersect": true, "except": true,
	"window": true, "values": true, "as": true,
}

func isClauseKeyword(w string) bool {
	return clauseKeywords[strings.ToLower(w)]
}

func peek(toks []token, i int) token {
	if i < 0 || i >= len(toks) {
		return token{kind: tokPunct}
	}
	return toks[i]
}

func tokenize(s string) []token {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 4
			}
		case c == '\'':
			j := i + 1
			for j < len(s) {
				if s[j] == '\'' {
					if j+1 < len(s) && s[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			toks = append(toks, token{kind: tokString, text: s[i:min(j+1, len(s))]})
			i = j + 1
		case c == '"' || c == '`' || c == '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			j := strings.IndexByte(s[i+1:], closer)
			if j < 0 {
				toks = append(toks, token{kind: tokWord, text: s[i+1:]})
				i = len(s)
			} else {
				toks = append(toks, token{kind: tokWord, text: s[i+1 : i+1+j]})
				i += j + 2
			}
		case c == ';':
			toks = append(toks, token{kind: tokSemicolon, text: ";"})
			i++
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: s[i:j]})
			i = j
		default:
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		}
	}
	return toks
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

// Guard checks SQL against the policy and a fixed set of known tables.
type Guard struct {
	engine *Engine
	tables []string
}

// NewGuard creates a guard over the default policy.
func NewGuard(ctx context.Context, tables ...string) (*Guard, error) {
	engine, err := NewEngine(ctx, DefaultPolicy)
	if err != nil {
		return nil, err
	}
	return &Guard{engine: engine, tables: tables}, nil
}

// Check returns an UnsafeQueryError unless sql is a single read-only statement.
func (g *Guard) Check(ctx context.Context, sql string) error {
	facts := Inspect(sql)
	facts.AllowedTables = g.tables

	allow, reason, err := g.engine.Evaluate(ctx, facts)
	if err != nil {
		return fmt.Errorf("sql policy: %w", err)
	}
	if !allow {
		return &domain.UnsafeQueryError{SQL: sql, Reason: reason}
	}
	return nil
}
