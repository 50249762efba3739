package ticket

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps tickets in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	next    int
	tickets []*Ticket
	byNum   map[int]*Ticket
	now     func() time.Time
}

// NewInMemoryStore creates an empty store whose first ticket is INC1000.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		next:  FirstNumber,
		byNum: make(map[int]*Ticket),
		now:   time.Now,
	}
}

// Create allocates the next number and stores the ticket.
func (s *InMemoryStore) Create(ctx context.Context, nt NewTicket) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Materialize(s.next, nt, s.now())
	s.next++
	s.tickets = append(s.tickets, t)
	s.byNum[t.Number] = t
	cp := *t
	return &cp, nil
}

// Get looks up a ticket by id.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Ticket, error) {
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byNum[n]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// List returns copies of all tickets in creation order.
func (s *InMemoryStore) List(_ context.Context) ([]*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Ticket, len(s.tickets))
	for i, t := range s.tickets {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}
