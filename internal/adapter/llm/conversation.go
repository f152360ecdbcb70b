package llm

import (
	"sync"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// Conversation is the model-side chat history per session. Each exchange is
// kept as a user/assistant message pair, bounded like the persisted context.
type Conversation struct {
	mu       sync.RWMutex
	max      int
	sessions map[string][]ChatMessage
}

// NewConversation creates an empty conversation store.
func NewConversation() *Conversation {
	return &Conversation{
		max:      domain.MaxExchanges,
		sessions: make(map[string][]ChatMessage),
	}
}

// Record appends one exchange.
func (c *Conversation) Record(sessionID string, ex domain.Exchange) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := append(c.sessions[sessionID], exchangeMessages(ex)...)
	if over := len(msgs) - 2*c.max; over > 0 {
		msgs = append([]ChatMessage(nil), msgs[over:]...)
	}
	c.sessions[sessionID] = msgs
	return nil
}

// Replace rebuilds the history from persisted exchanges.
func (c *Conversation) Replace(sessionID string, exchanges []domain.Exchange) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(exchanges) > c.max {
		exchanges = exchanges[len(exchanges)-c.max:]
	}
	if len(exchanges) == 0 {
		delete(c.sessions, sessionID)
		return nil
	}
	msgs := make([]ChatMessage, 0, 2*len(exchanges))
	for _, ex := range exchanges {
		msgs = append(msgs, exchangeMessages(ex)...)
	}
	c.sessions[sessionID] = msgs
	return nil
}

// Clear drops the session's history. Clearing an unknown session is a no-op.
func (c *Conversation) Clear(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}

// Len returns the number of exchanges held for the session.
func (c *Conversation) Len(sessionID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions[sessionID]) / 2
}

// Matches reports whether the history is exactly the given exchanges.
func (c *Conversation) Matches(sessionID string, exchanges []domain.Exchange) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := c.sessions[sessionID]
	if len(msgs) != 2*len(exchanges) {
		return false
	}
	for i, ex := range exchanges {
		want := exchangeMessages(ex)
		if msgs[2*i] != want[0] || msgs[2*i+1] != want[1] {
			return false
		}
	}
	return true
}

// Messages returns a copy of the session's history.
func (c *Conversation) Messages(sessionID string) []ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ChatMessage(nil), c.sessions[sessionID]...)
}

func exchangeMessages(ex domain.Exchange) []ChatMessage {
	return []ChatMessage{
		{Role: "user", Content: ex.Query},
		{Role: "assistant", Content: ex.Summary},
	}
}
