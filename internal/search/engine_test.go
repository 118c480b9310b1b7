package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/rerank"
	"github.com/hyperjump/kensaku/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 16

// fakeStore returns a fixed candidate list from SimilaritySearch.
type fakeStore struct {
	vector.Store
	candidates []models.ScoredPoint
	err        error
}

func (f *fakeStore) SimilaritySearch(_ context.Context, _ string, _ []float32, limit int) ([]models.ScoredPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.candidates) {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

// stubScorer returns scores by text and counts calls.
type stubScorer struct {
	scores map[string]float64
	calls  int
	err    error
}

func (s *stubScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = s.scores[t]
	}
	return out, nil
}

func (s *stubScorer) Close() error { return nil }

func candidate(id string, sim float64) models.ScoredPoint {
	return models.ScoredPoint{
		Point: &models.Point{ID: models.PointID(id), Payload: models.Payload{ExternalID: id, Text: "text " + id}},
		Score: sim,
	}
}

func newFakeEngine(store *fakeStore, scorer *stubScorer) *Engine {
	return NewEngine(store, embedding.NewHashEmbedder(testDims), scorer)
}

func TestEngine_RerankOverridesSimilarityOrder(t *testing.T) {
	store := &fakeStore{candidates: []models.ScoredPoint{candidate("c1", 0.9), candidate("c2", 0.5)}}
	scorer := &stubScorer{scores: map[string]float64{"text c1": 0.1, "text c2": 0.9}}

	results, err := newFakeEngine(store, scorer).Search(context.Background(), "docs", "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].ID)
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, "c1", results[1].ID)
	assert.Equal(t, 0.1, results[1].Score)
	assert.Equal(t, 1, scorer.calls)
}

func TestEngine_StableTieBreak(t *testing.T) {
	store := &fakeStore{candidates: []models.ScoredPoint{
		candidate("a", 0.9), candidate("b", 0.8), candidate("c", 0.7), candidate("d", 0.6),
	}}
	scorer := &stubScorer{scores: map[string]float64{"text a": 0.5, "text b": 0.7, "text c": 0.5, "text d": 0.7}}

	results, err := newFakeEngine(store, scorer).Search(context.Background(), "docs", "query", 10)
	require.NoError(t, err)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestEngine_EmptyCandidatesSkipScorer(t *testing.T) {
	scorer := &stubScorer{}
	results, err := newFakeEngine(&fakeStore{}, scorer).Search(context.Background(), "docs", "query", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, scorer.calls)
}

func TestEngine_CollectionNotFound(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w: missing", models.ErrCollectionNotFound)}
	scorer := &stubScorer{}
	_, err := newFakeEngine(store, scorer).Search(context.Background(), "missing", "query", 5)
	require.Error(t, err)
	assert.True(t, models.IsCollectionNotFound(err))
	assert.False(t, models.IsStoreError(err))
	assert.Zero(t, scorer.calls)
}

func TestEngine_ScorerFailureAborts(t *testing.T) {
	boom := errors.New("scorer down")
	store := &fakeStore{candidates: []models.ScoredPoint{candidate("a", 0.9)}}
	_, err := newFakeEngine(store, &stubScorer{err: boom}).Search(context.Background(), "docs", "query", 5)
	assert.ErrorIs(t, err, boom)
}

func TestEngine_ScoreCountMismatch(t *testing.T) {
	store := &fakeStore{candidates: []models.ScoredPoint{candidate("a", 0.9), candidate("b", 0.8)}}
	short := rerank.Func(func(context.Context, string, string) (float64, error) { return 0, nil })
	e := NewEngine(store, embedding.NewHashEmbedder(testDims), truncatingScorer{short})
	_, err := e.Search(context.Background(), "docs", "query", 5)
	assert.Error(t, err)
}

// truncatingScorer drops the last score.
type truncatingScorer struct{ rerank.Scorer }

func (s truncatingScorer) Score(ctx context.Context, q string, texts []string) ([]float64, error) {
	scores, err := s.Scorer.Score(ctx, q, texts)
	if err != nil || len(scores) == 0 {
		return scores, err
	}
	return scores[:len(scores)-1], nil
}

func TestEngine_NonPositiveLimit(t *testing.T) {
	_, err := newFakeEngine(&fakeStore{}, &stubScorer{}).Search(context.Background(), "docs", "query", 0)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestEngine_LimitBound(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	_, err := store.CreateCollection(ctx, "docs", testDims, models.DistanceCosine)
	require.NoError(t, err)
	emb := embedding.NewHashEmbedder(testDims)
	idx := indexer.NewIndexer(store, emb)
	for i := 0; i < 5; i++ {
		_, err := idx.Index(ctx, "docs", models.Item{ID: fmt.Sprintf("doc-%d", i), Text: fmt.Sprintf("go search item %d", i)})
		require.NoError(t, err)
	}
	e := NewEngine(store, emb, rerank.NewLexicalScorer())

	for _, k := range []int{1, 3, 5, 10} {
		results, err := e.Search(ctx, "docs", "go search", k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), k)
		assert.LessOrEqual(t, len(results), 5)
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	_, err := store.CreateCollection(ctx, "docs", testDims, models.DistanceCosine)
	require.NoError(t, err)
	emb := embedding.NewHashEmbedder(testDims)
	idx := indexer.NewIndexer(store, emb)
	_, err = idx.IndexItems(ctx, "docs", []models.Item{
		{ID: "ml", Text: "machine learning algorithms"},
		{ID: "cook", Text: "cooking pasta recipes"},
	}, nil)
	require.NoError(t, err)

	e := NewEngine(store, emb, rerank.NewLexicalScorer())
	resp, err := e.Query(ctx, &models.SearchQuery{Collection: "docs", Query: "machine learning"})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "ml", resp.Results[0].ID)
	assert.Equal(t, "machine learning algorithms", resp.Results[0].Text)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)

	_, err = e.Query(ctx, &models.SearchQuery{Collection: "docs", Query: "ml"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = e.Query(ctx, &models.SearchQuery{Collection: "nope", Query: "machine"})
	assert.True(t, models.IsCollectionNotFound(err))
}
