package retrieval

import (
	"fmt"
	"math"
)

// Filter keeps results whose score is at least threshold, preserving order.
// Raising the threshold can only remove results.
func Filter(results []Result, threshold float64) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// Relevant filters results and returns ErrNoRelevantContent when nothing passes.
func Relevant(results []Result, threshold float64) ([]Result, error) {
	out := Filter(results, threshold)
	if len(out) == 0 {
		return out, ErrNoRelevantContent
	}
	return out, nil
}

// ValidateThreshold reports whether t is a usable similarity threshold.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	return nil
}
