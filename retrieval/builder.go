package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ragdesk/embedding"
	"github.com/hupe1980/ragdesk/knowledge"
	"github.com/hupe1980/ragdesk/logging"
)

// BuilderOptions configure index builds.
type BuilderOptions struct {
	ChunkSize    int
	ChunkOverlap int
	// BatchSize is the number of chunk texts sent per embedding call.
	BatchSize int
	// Concurrency bounds the embedding calls in flight.
	Concurrency int
	Logger      logging.Logger
}

// Builder turns articles into an embedded Store.
type Builder struct {
	embedder embedding.Embedder
	splitter *knowledge.Splitter
	opts     BuilderOptions
}

// NewBuilder creates a builder that embeds chunks with e.
func NewBuilder(e embedding.Embedder, optFns ...func(o *BuilderOptions)) *Builder {
	opts := BuilderOptions{
		ChunkSize:    500,
		ChunkOverlap: 50,
		BatchSize:    16,
		Concurrency:  4,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Builder{
		embedder: e,
		splitter: knowledge.NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		opts:     opts,
	}
}

// BuildFile loads a corpus file and builds a store from it.
func (b *Builder) BuildFile(ctx context.Context, path string) (*Store, error) {
	articles, err := knowledge.LoadCorpus(path)
	if err != nil {
		return nil, &Error{Op: "build", Err: err}
	}
	return b.Build(ctx, articles)
}

// Build splits every article document, embeds the spans and returns a new store.
// Chunk order follows article order, then span order.
func (b *Builder) Build(ctx context.Context, articles []knowledge.Article) (*Store, error) {
	start := time.Now()
	buildID := ulid.Make().String()

	var chunks []Chunk
	for _, a := range articles {
		for i, span := range b.splitter.Split(a.Document()) {
			chunks = append(chunks, Chunk{
				ID:        fmt.Sprintf("%s#%d", a.ID, i),
				ArticleID: a.ID,
				Title:     a.Title,
				Category:  a.Category,
				Text:      span,
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for lo := 0; lo < len(chunks); lo += b.opts.BatchSize {
		hi := min(lo+b.opts.BatchSize, len(chunks))
		batch := chunks[lo:hi]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := b.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
			}
			for i := range batch {
				batch[i].Vector = vecs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.opts.Logger.Error("retrieval.build.failed", "build_id", buildID, "error", err)
		return nil, &Error{Op: "build", Err: fmt.Errorf("embed chunks: %w", err)}
	}

	store, err := NewStore(chunks, func(o *StoreOptions) {
		o.BuildID = buildID
		o.BuiltAt = time.Now().UTC()
	})
	if err != nil {
		return nil, err
	}

	b.opts.Logger.Info("retrieval.build.done",
		"build_id", buildID,
		"articles", len(articles),
		"chunks", store.Len(),
		"dimensions", store.Dimensions(),
		"duration", time.Since(start),
	)
	return store, nil
}
