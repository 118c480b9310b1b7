// Package rerank scores (query, candidate) pairs for the second retrieval stage.
package rerank

import (
	"context"
	"fmt"
)

// Scorer assigns a relevance score to each text for query; higher is more relevant.
// Score is called once per candidate set so implementations can batch model execution.
// The returned slice has exactly len(texts) entries in input order.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
	Close() error
}

// Func adapts a per-pair scoring function to Scorer.
type Func func(ctx context.Context, query, text string) (float64, error)

// Score calls f for every text.
func (f Func) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i, t := range texts {
		s, err := f(ctx, query, t)
		if err != nil {
			return nil, fmt.Errorf("failed to score candidate %d: %w", i, err)
		}
		scores[i] = s
	}
	return scores, nil
}

// Close is a no-op.
func (f Func) Close() error { return nil }
