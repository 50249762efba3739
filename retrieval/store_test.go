package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []Chunk {
	return []Chunk{
		{ID: "a#0", ArticleID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b#0", ArticleID: "b", Vector: []float32{0, 1, 0}},
		{ID: "c#0", ArticleID: "c", Vector: []float32{1, 1, 0}},
		{ID: "d#0", ArticleID: "d", Vector: []float32{-1, 0, 0}},
		{ID: "e#0", ArticleID: "e", Vector: []float32{1, 0, 0}},
	}
}

func TestStore_QuerySortedAndBounded(t *testing.T) {
	s, err := NewStore(testChunks())
	require.NoError(t, err)
	assert.NotEmpty(t, s.BuildID())

	results, err := s.Query(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	// Ties keep insertion order.
	assert.Equal(t, "a#0", results[0].Chunk.ID)
	assert.Equal(t, "e#0", results[1].Chunk.ID)
	assert.Equal(t, "c#0", results[2].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.7071, results[2].Score, 1e-3)

	all, err := s.Query(context.Background(), []float32{1, 0, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.InDelta(t, -1.0, all[4].Score, 1e-9)
	for _, r := range all {
		assert.GreaterOrEqual(t, r.Score, -1.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestStore_QueryEdgeCases(t *testing.T) {
	ctx := context.Background()

	empty, err := NewStore(nil)
	require.NoError(t, err)
	_, err = empty.Query(ctx, []float32{1}, 3)
	require.ErrorIs(t, err, ErrEmptyStore)
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "query", rerr.Op)

	s, err := NewStore(testChunks())
	require.NoError(t, err)

	_, err = s.Query(ctx, []float32{1, 0}, 3)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	zero, err := s.Query(ctx, []float32{0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero[0].Score)
}

func TestNewStore_RejectsMixedDimensions(t *testing.T) {
	_, err := NewStore([]Chunk{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1, 0, 0}},
	})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewStore([]Chunk{{ID: "a"}})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewStore_CopiesInput(t *testing.T) {
	chunks := testChunks()
	s, err := NewStore(chunks)
	require.NoError(t, err)

	chunks[0].Vector[0] = -1
	results, err := s.Query(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "a#0", results[0].Chunk.ID)
}

func TestHolder(t *testing.T) {
	ctx := context.Background()
	var h Holder

	_, err := h.Query(ctx, []float32{1, 0, 0}, 3)
	require.ErrorIs(t, err, ErrUninitialized)

	first, err := NewStore(testChunks()[:1])
	require.NoError(t, err)
	assert.Nil(t, h.Publish(first))

	second, err := NewStore(testChunks())
	require.NoError(t, err)
	assert.Same(t, first, h.Publish(second))
	assert.Same(t, second, h.Load())

	results, err := h.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestHolder_ConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	small, err := NewStore(testChunks()[:2])
	require.NoError(t, err)
	large, err := NewStore(testChunks())
	require.NoError(t, err)
	h := NewHolder(small)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					h.Publish(large)
					continue
				}
				results, err := h.Query(ctx, []float32{1, 0, 0}, 10)
				assert.NoError(t, err)
				assert.Contains(t, []int{2, 5}, len(results))
			}
		}(i)
	}
	wg.Wait()
}
