package domain

import (
	"encoding/json"
	"time"
)

// MaxExchanges bounds the history kept per session.
const MaxExchanges = 5

// Intent is the output of the classifier.
type Intent struct {
	Category IntentCategory `json:"category"`
	Depth    Depth          `json:"depth"`
	// Pattern is the name of the matching smart pattern, empty when none fired.
	Pattern string `json:"pattern,omitempty"`
	Query   string `json:"query"`
	// Previous is the earlier question a follow-up refines, empty otherwise.
	Previous string `json:"previous,omitempty"`
}

// FollowUp reports whether the intent was inherited from the previous exchange.
func (i Intent) FollowUp() bool {
	return i.Previous != ""
}

// Effective returns the query text with the refined question prepended.
func (i Intent) Effective() string {
	if i.Previous == "" {
		return i.Query
	}
	return i.Previous + " " + i.Query
}

// Advanced reports whether the advanced modifier applies.
func (i Intent) Advanced() bool {
	return i.Depth == DepthAdvanced
}

// Exchange is one query/response pair stored in a session's history.
type Exchange struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Intent    IntentCategory `json:"intent"`
	Pattern   string         `json:"pattern,omitempty"`
	Depth     Depth          `json:"depth,omitempty"`
	Previous  string         `json:"previous,omitempty"`
	Project   string         `json:"project,omitempty"`
	Summary   string         `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session represents a browser session's bounded conversation context.
type Session struct {
	ID        string     `json:"session_id"`
	Exchanges []Exchange `json:"exchanges"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewSession returns an empty session.
func NewSession(id string, now time.Time) *Session {
	return &Session{ID: id, Exchanges: []Exchange{}, CreatedAt: now, UpdatedAt: now}
}

// Last returns the most recent exchange, if any.
func (s *Session) Last() (Exchange, bool) {
	if s == nil || len(s.Exchanges) == 0 {
		return Exchange{}, false
	}
	return s.Exchanges[len(s.Exchanges)-1], true
}

// Push appends an exchange and drops the oldest entries beyond MaxExchanges.
func (s *Session) Push(ex Exchange, now time.Time) {
	s.Exchanges = append(s.Exchanges, ex)
	if over := len(s.Exchanges) - MaxExchanges; over > 0 {
		s.Exchanges = append([]Exchange(nil), s.Exchanges[over:]...)
	}
	s.UpdatedAt = now
}

// Clone returns a deep copy safe to hand out of a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Exchanges = append([]Exchange{}, s.Exchanges...)
	return &cp
}

// Event is a recorded pipeline step for a session.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
