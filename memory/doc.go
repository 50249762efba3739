// Package memory holds the per-session conversation record. Each session owns
// exactly one ConversationMemory; memories are never shared across sessions.
//
// The record is append-only and unbounded. Callers bound what they send to a
// model by asking History for the most recent turns, not by trimming storage.
package memory
