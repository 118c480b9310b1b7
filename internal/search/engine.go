// Package search runs two-stage retrieval: vector similarity narrows a collection to a
// candidate set, then a relevance scorer reorders it.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/rerank"
	"github.com/hyperjump/kensaku/internal/vector"
	"go.uber.org/zap"
)

// Engine runs searches against collections in a store.
type Engine struct {
	store    vector.Store
	embedder embedding.Embedder
	scorer   rerank.Scorer
	bounds   models.QueryBounds
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for per-query debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithBounds sets the limits Query validates requests against.
func WithBounds(b models.QueryBounds) EngineOption {
	return func(e *Engine) { e.bounds = b }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(store vector.Store, embedder embedding.Embedder, scorer rerank.Scorer, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		scorer:   scorer,
		bounds:   models.DefaultQueryBounds,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bounds returns the query limits used by Query.
func (e *Engine) Bounds() models.QueryBounds { return e.bounds }

// Search returns at most limit results for query, ordered by descending relevance.
//
// The query is embedded once and the store returns the limit most similar points.
// Each candidate is then scored against the query in a single scorer call; that score
// replaces the similarity, and candidates with equal scores keep their similarity order.
// An empty candidate set returns an empty slice without calling the scorer.
func (e *Engine) Search(ctx context.Context, collection, query string, limit int) ([]*models.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", models.ErrInvalidArgument)
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	candidates, err := e.store.SimilaritySearch(ctx, collection, vec, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*models.SearchResult{}, nil
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Point.Payload.Text
	}
	scores, err := e.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("rerank failed: got %d scores for %d candidates", len(scores), len(candidates))
	}

	results := make([]*models.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = &models.SearchResult{
			ID:    c.Point.Payload.ExternalID,
			Text:  c.Point.Payload.Text,
			Score: scores[i],
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// Query validates q against the engine's bounds, runs Search and reports timing.
func (e *Engine) Query(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := q.Validate(e.bounds); err != nil {
		return nil, err
	}
	results, err := e.Search(ctx, q.Collection, q.Query, q.Limit)
	if err != nil {
		return nil, err
	}
	resp := &models.SearchResponse{
		Collection: q.Collection,
		Query:      q.Query,
		Results:    results,
		Total:      len(results),
		QueryTime:  time.Since(startTime).Milliseconds(),
	}
	e.logger.Debug("search done",
		zap.String("collection", q.Collection),
		zap.String("query", q.Query),
		zap.Int("limit", q.Limit),
		zap.Int("results", resp.Total),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}
