package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/rerank"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/vector"
)

const benchDims = 384

var benchWords = []string{
	"vector", "search", "collection", "index", "query", "rerank", "score", "embedding",
	"storage", "cosine", "distance", "point", "payload", "server", "client", "limit",
}

func randomText(r *rand.Rand, n int) string {
	text := benchWords[r.Intn(len(benchWords))]
	for i := 1; i < n; i++ {
		text += " " + benchWords[r.Intn(len(benchWords))]
	}
	return text
}

func populatedStore(b *testing.B, n int) (*vector.MemoryStore, embedding.Embedder) {
	b.Helper()
	ctx := context.Background()
	store := vector.NewMemoryStore()
	emb := embedding.NewHashEmbedder(benchDims)
	if _, err := store.CreateCollection(ctx, "bench", benchDims, models.DistanceCosine); err != nil {
		b.Fatal(err)
	}
	r := rand.New(rand.NewSource(1))
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{ID: fmt.Sprintf("item-%d", i), Text: randomText(r, 12)}
	}
	if _, err := indexer.NewIndexer(store, emb).IndexItems(ctx, "bench", items, nil); err != nil {
		b.Fatal(err)
	}
	return store, emb
}

func BenchmarkMemoryStoreSimilaritySearch(b *testing.B) {
	store, emb := populatedStore(b, 1000)
	ctx := context.Background()
	query, _ := emb.Embed(ctx, "vector search rerank")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.SimilaritySearch(ctx, "bench", query, 10)
	}
}

func BenchmarkEngineSearch(b *testing.B) {
	store, emb := populatedStore(b, 1000)
	engine := search.NewEngine(store, emb, rerank.NewLexicalScorer())
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Search(ctx, "bench", "vector search rerank", 10)
	}
}

func BenchmarkLexicalScorer(b *testing.B) {
	r := rand.New(rand.NewSource(2))
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = randomText(r, 20)
	}
	s := rerank.NewLexicalScorer()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Score(ctx, "cosine distance between points", texts)
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashEmbedder(benchDims)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
