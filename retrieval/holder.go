package retrieval

import (
	"context"
	"sync/atomic"
)

// Holder publishes the current store. The zero value is ready to use and
// reports ErrUninitialized until the first Publish.
type Holder struct {
	current atomic.Pointer[Store]
}

// NewHolder returns a holder that already serves s. A nil s leaves it uninitialized.
func NewHolder(s *Store) *Holder {
	h := &Holder{}
	if s != nil {
		h.current.Store(s)
	}
	return h
}

// Publish atomically replaces the served store and returns the previous one.
func (h *Holder) Publish(s *Store) *Store {
	return h.current.Swap(s)
}

// Load returns the served store or nil.
func (h *Holder) Load() *Store {
	return h.current.Load()
}

// Query searches the currently published store.
func (h *Holder) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	s := h.current.Load()
	if s == nil {
		return nil, &Error{Op: "query", Err: ErrUninitialized}
	}
	return s.Query(ctx, vector, k)
}
