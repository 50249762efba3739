// Package session holds the explicit per-session context threaded through every
// turn: the session's conversation memory and its settings. Sessions never
// share state, and a session processes one turn at a time.
//
// InMemoryStore is the only backend. Add others (Redis, Postgres, ...) in
// sub-packages; only the wiring layer decides which implementation to use.
package session
