// Package retrieval holds the in-memory chunk store, cosine-similarity ranking,
// the threshold relevance filter and the machinery that builds, persists and
// republishes indexes.
//
// Stores are immutable once built. A Holder publishes a new store atomically so
// that concurrent queries always observe either the old or the new index, never
// a partially built one.
package retrieval
