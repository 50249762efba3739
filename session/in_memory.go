package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/ragdesk/memory"
	"github.com/hupe1980/ragdesk/retrieval"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Session is the context object for one conversation.
type Session struct {
	ID        string
	CreatedAt time.Time
	Memory    *memory.ConversationMemory

	turn      sync.Mutex
	mu        sync.RWMutex
	threshold *float64
}

// New creates a session with a fresh memory. An empty id gets a random UUID.
func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Memory:    memory.NewConversationMemory(),
	}
}

// Lock serialises turns within the session.
func (s *Session) Lock() { s.turn.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.turn.Unlock() }

// Threshold returns the session override, or def when none is set.
func (s *Session) Threshold(def float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.threshold == nil {
		return def
	}
	return *s.threshold
}

// SetThreshold overrides the similarity threshold for this session.
func (s *Session) SetThreshold(t float64) error {
	if err := retrieval.ValidateThreshold(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = &t
	return nil
}

// ClearThreshold removes the override.
func (s *Session) ClearThreshold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = nil
}

// InMemoryStore keeps sessions in a process local map. It is safe for
// concurrent access.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Create registers a new session. An empty id gets a random UUID; an existing
// id is replaced.
func (s *InMemoryStore) Create(id string) *Session {
	sess := New(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the session or ErrNotFound.
func (s *InMemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// GetOrCreate returns the session, creating it lazily.
func (s *InMemoryStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := New(id)
	s.sessions[sess.ID] = sess
	return sess
}

// Delete removes the session. Unknown ids are ignored.
func (s *InMemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
