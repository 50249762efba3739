package memory

import (
	"sync"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single utterance in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationMemory is the ordered, process-local record of a session's turns.
//
// Concurrency: protected by RWMutex.
type ConversationMemory struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// NewConversationMemory creates an empty memory.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{now: time.Now}
}

// Append records a turn. A zero timestamp is replaced with the current time.
func (m *ConversationMemory) Append(turn Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now()
	}
	m.turns = append(m.turns, turn)
}

// AppendUser is shorthand for appending a user turn.
func (m *ConversationMemory) AppendUser(text string) {
	m.Append(Turn{Role: RoleUser, Text: text})
}

// AppendAssistant is shorthand for appending an assistant turn.
func (m *ConversationMemory) AppendAssistant(text string) {
	m.Append(Turn{Role: RoleAssistant, Text: text})
}

// History returns a copy of the last max turns in order. max <= 0 returns the
// whole record.
func (m *ConversationMemory) History(max int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if max > 0 && len(m.turns) > max {
		start = len(m.turns) - max
	}
	out := make([]Turn, len(m.turns)-start)
	copy(out, m.turns[start:])
	return out
}

// Reset discards every recorded turn.
func (m *ConversationMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}

// Len returns the number of recorded turns.
func (m *ConversationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}
