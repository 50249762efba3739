package testutil

import (
	"github.com/hupe1980/ragdesk/memory"
	"github.com/hupe1980/ragdesk/session"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").User("hi").Assistant("hello").Threshold(0.9).Build()
type SessionBuilder struct {
	id        string
	turns     []memory.Turn
	threshold *float64
}

// NewSessionBuilder creates a new builder for a session with the given id.
// An empty id yields a random one on Build.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id}
}

// User appends a user turn to the history (chainable).
func (b *SessionBuilder) User(text string) *SessionBuilder {
	b.turns = append(b.turns, memory.Turn{Role: memory.RoleUser, Text: text})
	return b
}

// Assistant appends an assistant turn to the history (chainable).
func (b *SessionBuilder) Assistant(text string) *SessionBuilder {
	b.turns = append(b.turns, memory.Turn{Role: memory.RoleAssistant, Text: text})
	return b
}

// Exchange appends a user turn followed by the assistant reply (chainable).
func (b *SessionBuilder) Exchange(user, assistant string) *SessionBuilder {
	return b.User(user).Assistant(assistant)
}

// Threshold sets a session threshold override (chainable).
func (b *SessionBuilder) Threshold(t float64) *SessionBuilder {
	b.threshold = &t
	return b
}

// Build returns a *session.Session with pre-populated memory. It panics on an
// invalid threshold.
func (b *SessionBuilder) Build() *session.Session {
	s := session.New(b.id)
	for _, t := range b.turns {
		s.Memory.Append(t)
	}
	if b.threshold != nil {
		if err := s.SetThreshold(*b.threshold); err != nil {
			panic(err)
		}
	}
	return s
}
