package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(results map[string][]string) Retriever {
	return RetrieverFunc(func(_ context.Context, q string) ([]string, error) {
		return results[q], nil
	})
}

func TestRetrievalEvaluator(t *testing.T) {
	ev := NewRetrievalEvaluator(fixed(map[string][]string{
		"password": {"KB001", "KB004"},
		"vpn":      {"KB003", "KB002"},
	}))
	ctx := context.Background()

	res, err := ev.Evaluate(ctx, Case{Query: "password", Expected: []string{"KB001"}})
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, 1, res.Rank)

	res, err = ev.Evaluate(ctx, Case{Query: "vpn", Expected: []string{"KB002"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rank)

	res, err = ev.Evaluate(ctx, Case{Query: "gibberish"})
	require.NoError(t, err)
	assert.True(t, res.Hit, "nothing retrieved for an off-topic query is a hit")

	res, err = ev.Evaluate(ctx, Case{Query: "password"})
	require.NoError(t, err)
	assert.False(t, res.Hit)
}

func TestRun(t *testing.T) {
	ev := NewRetrievalEvaluator(fixed(map[string][]string{
		"password": {"KB001"},
		"vpn":      {"KB003", "KB002"},
		"printer":  {"KB009"},
	}))
	report, err := Run(context.Background(), ev, []Case{
		{Query: "password", Expected: []string{"KB001"}},
		{Query: "vpn", Expected: []string{"KB002"}},
		{Query: "printer", Expected: []string{"KB005"}},
		{Query: "gibberish"},
	})
	require.NoError(t, err)

	assert.Len(t, report.Results, 4)
	assert.Equal(t, 3, report.Hits)
	assert.InDelta(t, 0.75, report.HitRate, 1e-9)
	assert.InDelta(t, 0.5, report.MRR, 1e-9)
}

func TestRun_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	ev := NewRetrievalEvaluator(RetrieverFunc(func(context.Context, string) ([]string, error) {
		return nil, boom
	}))
	_, err := Run(context.Background(), ev, []Case{{Query: "x"}})
	assert.ErrorIs(t, err, boom)
}

func TestLoadCases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- query: How do I reset my password?
  expected: [KB001]
- query: zzyx unrelated gibberish
`), 0o600))

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, []string{"KB001"}, cases[0].Expected)
	assert.Empty(t, cases[1].Expected)

	require.NoError(t, os.WriteFile(path, []byte("- expected: [KB001]\n"), 0o600))
	_, err = LoadCases(path)
	assert.Error(t, err)
}
