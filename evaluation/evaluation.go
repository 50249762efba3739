// Package evaluation measures retrieval quality against labeled queries.
//
// A Case pairs a query with the article IDs a good retrieval should surface.
// Cases with no expected articles assert that nothing clears the threshold,
// which is how off-topic queries are checked.
package evaluation

import (
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Case is a labeled retrieval query.
type Case struct {
	Query    string   `yaml:"query" json:"query"`
	Expected []string `yaml:"expected" json:"expected"`
}

// Result is the evaluation of a single case.
type Result struct {
	Case      Case     `json:"case"`
	Retrieved []string `json:"retrieved"`
	Hit       bool     `json:"hit"`
	// Rank is the 1-based position of the first expected article, 0 if none.
	Rank int `json:"rank"`
}

// Retriever returns article IDs for a query, best match first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string) ([]string, error)

// Retrieve calls f.
func (f RetrieverFunc) Retrieve(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}

// Evaluator scores one case.
type Evaluator interface {
	Evaluate(ctx context.Context, c Case) (*Result, error)
}

// RetrievalEvaluator scores cases by running them through a Retriever.
type RetrievalEvaluator struct {
	retriever Retriever
}

// NewRetrievalEvaluator creates an evaluator over r.
func NewRetrievalEvaluator(r Retriever) *RetrievalEvaluator {
	return &RetrievalEvaluator{retriever: r}
}

// Evaluate implements Evaluator.
func (e *RetrievalEvaluator) Evaluate(ctx context.Context, c Case) (*Result, error) {
	ids, err := e.retriever.Retrieve(ctx, c.Query)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", c.Query, err)
	}
	res := &Result{Case: c, Retrieved: ids}
	if len(c.Expected) == 0 {
		res.Hit = len(ids) == 0
		return res, nil
	}
	for i, id := range ids {
		if slices.Contains(c.Expected, id) {
			res.Hit = true
			res.Rank = i + 1
			break
		}
	}
	return res, nil
}

// Report aggregates case results.
type Report struct {
	Results []*Result `json:"results"`
	Hits    int       `json:"hits"`
	HitRate float64   `json:"hit_rate"`
	// MRR is the mean reciprocal rank over cases that expect articles.
	MRR float64 `json:"mrr"`
}

// Run evaluates every case in order and stops at the first error.
func Run(ctx context.Context, ev Evaluator, cases []Case) (*Report, error) {
	report := &Report{Results: make([]*Result, 0, len(cases))}
	var rr float64
	ranked := 0
	for _, c := range cases {
		res, err := ev.Evaluate(ctx, c)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, res)
		if res.Hit {
			report.Hits++
		}
		if len(c.Expected) > 0 {
			ranked++
			if res.Rank > 0 {
				rr += 1 / float64(res.Rank)
			}
		}
	}
	if len(cases) > 0 {
		report.HitRate = float64(report.Hits) / float64(len(cases))
	}
	if ranked > 0 {
		report.MRR = rr / float64(ranked)
	}
	return report, nil
}

// LoadCases reads a YAML list of cases.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases: %w", err)
	}
	for i, c := range cases {
		if c.Query == "" {
			return nil, fmt.Errorf("case %d: query is required", i)
		}
	}
	return cases, nil
}
