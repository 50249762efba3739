package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragdesk/knowledge"
	"github.com/hupe1980/ragdesk/retrieval"
)

// StoreBuilder provides a fluent helper for constructing chunk stores with
// hand-picked vectors.
// Example:
//
//	store := NewStoreBuilder().Article("KB001", "Reset Password", "Account").Chunk("text", 1, 0).Build(t)
//
// Chunks belong to the most recent Article call.
type StoreBuilder struct {
	article retrieval.Chunk
	counts  map[string]int
	chunks  []retrieval.Chunk
}

// NewStoreBuilder creates an empty builder.
func NewStoreBuilder() *StoreBuilder {
	return &StoreBuilder{counts: map[string]int{}}
}

// Article starts a new article; following chunks are attributed to it (chainable).
func (b *StoreBuilder) Article(id, title, category string) *StoreBuilder {
	b.article = retrieval.Chunk{ArticleID: id, Title: title, Category: category}
	return b
}

// Chunk appends a chunk with the given text and vector (chainable).
func (b *StoreBuilder) Chunk(text string, vector ...float32) *StoreBuilder {
	c := b.article
	c.ID = fmt.Sprintf("%s#%d", c.ArticleID, b.counts[c.ArticleID])
	b.counts[c.ArticleID]++
	c.Text = text
	c.Vector = append([]float32(nil), vector...)
	b.chunks = append(b.chunks, c)
	return b
}

// Chunks returns the chunks collected so far.
func (b *StoreBuilder) Chunks() []retrieval.Chunk {
	return append([]retrieval.Chunk(nil), b.chunks...)
}

// Build creates the store, failing the test on error.
func (b *StoreBuilder) Build(t testing.TB) *retrieval.Store {
	t.Helper()
	s, err := retrieval.NewStore(b.chunks)
	require.NoError(t, err)
	return s
}

// WriteCorpus writes articles as a JSON corpus into dir and returns its path.
func WriteCorpus(t testing.TB, dir string, articles ...knowledge.Article) string {
	t.Helper()
	data, err := json.MarshalIndent(articles, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, "knowledge_base.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// SampleArticles returns a small help-desk corpus.
func SampleArticles() []knowledge.Article {
	return []knowledge.Article{
		{ID: "KB001", Category: "Account Access", Title: "How to Reset Your Password",
			Content: "Open the self-service portal and choose Forgot Password.", Tags: []string{"password", "account"}},
		{ID: "KB002", Category: "Network", Title: "VPN Connection Troubleshooting",
			Content: "Restart the VPN client and check your internet connection.", Tags: []string{"vpn", "network"}},
		{ID: "KB003", Category: "Hardware", Title: "Printer Setup",
			Content: "Add the printer from the settings page.", Tags: []string{"printer"}},
	}
}
