// Package intent classifies natural-language tracker questions.
package intent

import (
	"strings"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
	"github.com/AbhigyanVE/ScrumMaster/internal/patterns"
)

var (
	greetingPhrases = []string{
		"hi", "hello", "hey", "hiya", "howdy", "greetings", "yo", "sup",
		"good morning", "good afternoon", "good evening", "hi there", "hello there",
		"thanks", "thank you", "thx", "cheers",
	}
	farewellPhrases = []string{
		"bye", "goodbye", "good bye", "bye bye", "byebye", "farewell", "see you",
		"see ya", "cya", "good night", "goodnight", "take care", "signing off",
		"thanks bye", "thank you bye", "see you later", "talk later", "later",
	}
	fillerWords = map[string]bool{
		"team": true, "everyone": true, "all": true, "guys": true, "folks": true,
		"there": true, "for": true, "now": true, "so": true, "ok": true, "okay": true,
		"then": true, "and": true, "much": true, "very": true, "again": true,
		"the": true, "help": true, "scrum": true, "master": true, "bot": true,
		"a": true, "lot": true, "you": true, "ya": true, "oh": true, "please": true,
	}
)

type rule struct {
	category domain.IntentCategory
	phrases  []string
}

// rules are checked in priority order: Health > Standup > Assignment > List.
var rules = []rule{
	{domain.IntentHealth, []string{
		"health", "healthy", "sprint status", "project status", "status of", "progress of",
		"overall progress", "making progress", "risk", "risks", "at risk", "on track",
		"completion", "completion rate", "how are we doing", "how is the project",
		"how is the sprint", "hows the project", "hows the sprint", "burndown", "velocity",
	}},
	{domain.IntentStandup, []string{
		"standup", "stand up", "daily", "yesterday", "today", "working on",
		"what did", "sync", "scrum update", "team update",
	}},
	{domain.IntentAssignment, []string{
		"assign", "assigned", "assignee", "assignees", "reassign", "who should",
		"who is working", "who owns", "owner", "owns", "allocate", "who can take",
	}},
	{domain.IntentList, []string{
		"list", "show", "show me", "tickets", "issues", "tasks", "stories", "bugs",
		"which", "what are", "find", "display", "open", "all",
	}},
}

var advancedPhrases = []string{
	"advanced", "detailed", "in depth", "indepth", "deep dive", "deep analysis", "thorough",
}

var followUpPrefixes = []string{
	"what about", "how about", "and", "same for", "same thing for", "also for", "now for",
}

// Classifier maps raw queries to intents. It holds no per-query state.
type Classifier struct {
	patterns *patterns.Library
}

// New creates a classifier backed by a pattern library.
func New(lib *patterns.Library) *Classifier {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Classifier{patterns: lib}
}

// Classify returns the intent of a query given the session it arrived in.
// It never fails: anything unrecognised is General.
func (c *Classifier) Classify(query string, session *domain.Session) domain.Intent {
	query = strings.TrimSpace(query)
	in := domain.Intent{Category: domain.IntentGeneral, Depth: domain.DepthStandard, Query: query}

	norm := patterns.Normalize(query)
	if norm == "" {
		return in
	}
	if social, ok := socialCategory(norm); ok {
		in.Category = social
		return in
	}

	heuristic := keywordCategory(norm)
	if m, ok := c.patterns.Match(query); ok {
		in.Pattern = m.Pattern.Name
		in.Category = domain.IntentList
		if heuristic == domain.IntentHealth {
			in.Category = domain.IntentHealth
		}
	} else {
		in.Category = heuristic
	}

	if in.Category == domain.IntentGeneral && in.Pattern == "" {
		if last, ok := session.Last(); ok && isFollowUp(query, norm) && isDataIntent(last.Intent) {
			in.Category = last.Intent
			in.Pattern, in.Depth = last.Pattern, last.Depth
			if in.Depth == "" {
				// Exchanges stored before pattern and depth were recorded.
				prev := c.Classify(last.Query, nil)
				in.Pattern, in.Depth = prev.Pattern, prev.Depth
			}
			// Chained follow-ups keep refining the first question.
			in.Previous = last.Query
			if last.Previous != "" {
				in.Previous = last.Previous
			}
			return in
		}
	}

	if (in.Category == domain.IntentHealth || in.Category == domain.IntentStandup) &&
		patterns.ContainsAnyPhrase(norm, advancedPhrases...) {
		in.Depth = domain.DepthAdvanced
	}
	return in
}

// socialCategory scans the tokens left to right, consuming anchor phrases
// (longest first) and filler words. Any other token disqualifies the query.
func socialCategory(norm string) (domain.IntentCategory, bool) {
	tokens := patterns.Tokens(norm)
	greeting, farewell := false, false
	for i := 0; i < len(tokens); {
		if n := matchPhrase(tokens[i:], farewellPhrases); n > 0 {
			farewell = true
			i += n
			continue
		}
		if n := matchPhrase(tokens[i:], greetingPhrases); n > 0 {
			greeting = true
			i += n
			continue
		}
		if fillerWords[tokens[i]] {
			i++
			continue
		}
		return "", false
	}
	switch {
	case farewell:
		return domain.IntentFarewell, true
	case greeting:
		return domain.IntentGreeting, true
	}
	return "", false
}

// matchPhrase returns the token length of the longest phrase that prefixes tokens.
func matchPhrase(tokens []string, phrases []string) int {
	best := 0
	for _, p := range phrases {
		words := strings.Fields(p)
		if len(words) <= best || len(words) > len(tokens) {
			continue
		}
		ok := true
		for j, w := range words {
			if tokens[j] != w {
				ok = false
				break
			}
		}
		if ok {
			best = len(words)
		}
	}
	return best
}

func keywordCategory(norm string) domain.IntentCategory {
	for _, r := range rules {
		if patterns.ContainsAnyPhrase(norm, r.phrases...) {
			return r.category
		}
	}
	return domain.IntentGeneral
}

// isFollowUp reports whether a query only refines the previous question:
// a follow-up prefix or nothing but project keys.
func isFollowUp(raw, norm string) bool {
	for _, p := range followUpPrefixes {
		if norm == p || strings.HasPrefix(norm, p+" ") {
			return true
		}
	}
	keys := patterns.UppercaseTokens(raw)
	if len(keys) == 0 {
		return false
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[strings.ToLower(k)] = true
	}
	for _, t := range patterns.Tokens(norm) {
		if !known[t] && !fillerWords[t] && t != "project" {
			return false
		}
	}
	return true
}

func isDataIntent(c domain.IntentCategory) bool {
	return !c.IsSocial() && c != domain.IntentGeneral && c != ""
}
