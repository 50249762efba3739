package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragdesk/embedding"
	"github.com/hupe1980/ragdesk/knowledge"
)

func testArticles() []knowledge.Article {
	return []knowledge.Article{
		{ID: "KB001", Category: "account", Title: "How to Reset Your Password", Content: "Go to the portal and click Forgot Password."},
		{ID: "KB002", Category: "hardware", Title: "Printer Troubleshooting", Content: strings.Repeat("Check the cable and restart the spooler. ", 40)},
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("quota exceeded")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func (failingEmbedder) Dimensions() int { return 0 }

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(embedding.NewMockEmbedder(8), func(o *BuilderOptions) {
		o.ChunkSize = 200
		o.ChunkOverlap = 20
		o.BatchSize = 2
	})

	s, err := b.Build(context.Background(), testArticles())
	require.NoError(t, err)
	assert.Greater(t, s.Len(), 2)
	assert.Equal(t, 8, s.Dimensions())
	assert.Len(t, s.BuildID(), 26)

	chunks := s.Chunks()
	assert.Equal(t, "KB001#0", chunks[0].ID)
	assert.Equal(t, "How to Reset Your Password", chunks[0].Title)
	assert.Contains(t, chunks[0].Text, "Title: How to Reset Your Password")
	assert.Equal(t, "KB002#0", chunks[1].ID)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 200)
		assert.Len(t, c.Vector, 8)
	}
}

func TestBuilder_BuildIDsDiffer(t *testing.T) {
	b := NewBuilder(embedding.NewMockEmbedder(4))
	s1, err := b.Build(context.Background(), testArticles())
	require.NoError(t, err)
	s2, err := b.Build(context.Background(), testArticles())
	require.NoError(t, err)
	assert.NotEqual(t, s1.BuildID(), s2.BuildID())
}

func TestBuilder_EmbeddingFailure(t *testing.T) {
	b := NewBuilder(failingEmbedder{})
	_, err := b.Build(context.Background(), testArticles())
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "build", rerr.Op)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestFilePersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewFilePersister(filepath.Join(t.TempDir(), "idx", "index.json"))

	_, err := p.Load(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	s, err := NewStore(testChunks())
	require.NoError(t, err)
	require.NoError(t, p.Save(ctx, s))

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.BuildID(), loaded.BuildID())
	assert.Equal(t, s.Chunks(), loaded.Chunks())
}

func TestWatcher_RebuildPublishes(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "kb.json")
	require.NoError(t, os.WriteFile(corpus, []byte(`[{"id":"KB001","category":"account","title":"Reset","content":"steps"}]`), 0o644))

	holder := &Holder{}
	p := NewFilePersister(filepath.Join(dir, "index.json"))
	w := NewWatcher(corpus, NewBuilder(embedding.NewMockEmbedder(4)), holder, func(o *WatcherOptions) {
		o.Persister = p
	})

	require.NoError(t, w.Rebuild(context.Background()))
	require.NotNil(t, holder.Load())
	assert.Equal(t, 1, holder.Load().Len())

	persisted, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, holder.Load().BuildID(), persisted.BuildID())
}

func TestWatcher_FailedRebuildKeepsStore(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "kb.json")
	require.NoError(t, os.WriteFile(corpus, []byte(`not json`), 0o644))

	old, err := NewStore(testChunks())
	require.NoError(t, err)
	holder := NewHolder(old)
	w := NewWatcher(corpus, NewBuilder(embedding.NewMockEmbedder(3)), holder)

	require.Error(t, w.Rebuild(context.Background()))
	assert.Same(t, old, holder.Load())
}

func TestWatcher_ReactsToWrites(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "kb.json")
	require.NoError(t, os.WriteFile(corpus, []byte(`[]`), 0o644))

	holder := &Holder{}
	published := make(chan *Store, 4)
	w := NewWatcher(corpus, NewBuilder(embedding.NewMockEmbedder(4)), holder, func(o *WatcherOptions) {
		o.Debounce = 20 * time.Millisecond
		o.OnPublish = func(s *Store) { published <- s }
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(corpus, []byte(`[{"id":"KB009","category":"network","title":"VPN","content":"reconnect"}]`), 0o644))

	select {
	case s := <-published:
		assert.Equal(t, 1, s.Len())
		assert.Same(t, s, holder.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not publish a rebuilt store")
	}
}
