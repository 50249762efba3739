package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// Chunk is an embedded span of a knowledge article.
type Chunk struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
}

// Result pairs a chunk with its cosine similarity to the query.
type Result struct {
	Chunk Chunk
	Score float64
}

// StoreOptions carry build metadata for a store.
type StoreOptions struct {
	BuildID string
	BuiltAt time.Time
}

// Store is an immutable set of chunks searched by brute-force cosine similarity.
type Store struct {
	chunks  []Chunk
	norms   []float64
	dims    int
	buildID string
	builtAt time.Time
}

// NewStore copies chunks into a new store. All vectors must share one non-zero dimension.
func NewStore(chunks []Chunk, optFns ...func(o *StoreOptions)) (*Store, error) {
	opts := StoreOptions{
		BuildID: ulid.Make().String(),
		BuiltAt: time.Now().UTC(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{
		chunks:  make([]Chunk, len(chunks)),
		norms:   make([]float64, len(chunks)),
		buildID: opts.BuildID,
		builtAt: opts.BuiltAt,
	}
	for i, c := range chunks {
		if len(c.Vector) == 0 {
			return nil, &Error{Op: "build", Err: fmt.Errorf("chunk %q has no vector: %w", c.ID, ErrDimensionMismatch)}
		}
		if i == 0 {
			s.dims = len(c.Vector)
		} else if len(c.Vector) != s.dims {
			return nil, &Error{Op: "build", Err: fmt.Errorf("chunk %q has %d dimensions, want %d: %w", c.ID, len(c.Vector), s.dims, ErrDimensionMismatch)}
		}
		c.Vector = append([]float32(nil), c.Vector...)
		s.chunks[i] = c
		s.norms[i] = norm(c.Vector)
	}
	return s, nil
}

// Query returns at most k chunks ordered by non-increasing similarity to vector.
// Ties keep insertion order.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		return nil, &Error{Op: "query", Err: ErrEmptyStore}
	}
	if len(vector) != s.dims {
		return nil, &Error{Op: "query", Err: fmt.Errorf("query has %d dimensions, store has %d: %w", len(vector), s.dims, ErrDimensionMismatch)}
	}
	if k <= 0 {
		return []Result{}, nil
	}

	qn := norm(vector)
	results := make([]Result, len(s.chunks))
	for i, c := range s.chunks {
		results[i] = Result{Chunk: c, Score: cosine(vector, c.Vector, qn, s.norms[i])}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of chunks.
func (s *Store) Len() int { return len(s.chunks) }

// Dimensions returns the vector length, or 0 for an empty store.
func (s *Store) Dimensions() int { return s.dims }

// BuildID identifies the build that produced the store.
func (s *Store) BuildID() string { return s.buildID }

// BuiltAt returns the build time.
func (s *Store) BuiltAt() time.Time { return s.builtAt }

// Chunks returns a copy of the stored chunks in insertion order.
func (s *Store) Chunks() []Chunk {
	return append([]Chunk(nil), s.chunks...)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine is clamped to [-1, 1]; zero vectors score 0.
func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return math.Max(-1, math.Min(1, dot/(na*nb)))
}
