package cli

import (
	"fmt"

	"github.com/hyperjump/kensaku/internal/collection"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/rerank"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services. The store, embedder and scorer are created once
// and shared by the collection manager, indexer and engine.
type Components struct {
	Store       vector.Store
	Embedder    embedding.Embedder
	Scorer      rerank.Scorer
	Collections *collection.Manager
	Indexer     *indexer.Indexer
	Engine      *search.Engine
}

// Close releases the store and model resources.
func (c *Components) Close() {
	if c.Scorer != nil {
		_ = c.Scorer.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// NewComponents builds every service described by cfg.
func NewComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	distance, err := models.ParseDistance(cfg.Vector.Distance)
	if err != nil {
		return nil, err
	}
	c := &Components{}
	c.Store, err = vector.NewStore(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("vector store initialized",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))

	if c.Embedder, err = newEmbedder(cfg); err != nil {
		c.Embedder = nil
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if c.Embedder.Dimensions() != cfg.Vector.Dimension {
		c.Close()
		return nil, fmt.Errorf("embedder produces %d dimensions, vector.dimension is %d",
			c.Embedder.Dimensions(), cfg.Vector.Dimension)
	}
	if c.Scorer, err = newScorer(cfg); err != nil {
		c.Scorer = nil
		c.Close()
		return nil, fmt.Errorf("failed to initialize reranker: %w", err)
	}
	logger.Info("models initialized",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("rerank_provider", cfg.Rerank.Provider))

	c.Collections = collection.NewManager(c.Store, cfg.Vector.Dimension, distance, collection.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(c.Store, c.Embedder, indexer.WithLogger(logger))
	c.Engine = search.NewEngine(c.Store, c.Embedder, c.Scorer,
		search.WithBounds(cfg.Search.Bounds()),
		search.WithLogger(logger))
	return c, nil
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	ec := cfg.Embedding
	var (
		base embedding.Embedder
		err  error
	)
	switch ec.Provider {
	case config.EmbeddingHash:
		base = embedding.NewHashEmbedder(cfg.Vector.Dimension)
	case config.EmbeddingONNX:
		base, err = embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:   ec.ModelPath,
			LibraryPath: ec.LibraryPath,
			Dimensions:  cfg.Vector.Dimension,
			MaxTokens:   ec.MaxTokens,
		})
	case config.EmbeddingOpenAI:
		base, err = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:            ec.APIKey(),
			BaseURL:           ec.BaseURL,
			Model:             ec.Model,
			Dimensions:        cfg.Vector.Dimension,
			Timeout:           ec.Timeout(),
			RequestsPerSecond: ec.RequestsPerSecond,
			Burst:             ec.Burst,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}
	if err != nil {
		return nil, err
	}
	if ec.CacheSize <= 0 {
		return base, nil
	}
	cached, err := embedding.NewCachedEmbedder(base, ec.CacheSize)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return cached, nil
}

func newScorer(cfg *config.Config) (rerank.Scorer, error) {
	rc := cfg.Rerank
	switch rc.Provider {
	case config.RerankLexical:
		return rerank.NewLexicalScorer(rerank.WithTypoTolerance(rc.TypoTolerance)), nil
	case config.RerankONNX:
		return rerank.NewONNXScorer(rerank.ONNXConfig{
			ModelPath:   rc.ModelPath,
			LibraryPath: rc.LibraryPath,
			MaxTokens:   rc.MaxTokens,
		})
	case config.RerankCohere:
		return rerank.NewCohereScorer(rerank.CohereConfig{
			APIKey:            rc.APIKey(),
			BaseURL:           rc.BaseURL,
			Model:             rc.Model,
			Timeout:           rc.Timeout(),
			RequestsPerSecond: rc.RequestsPerSecond,
			Burst:             rc.Burst,
		})
	default:
		return nil, fmt.Errorf("unknown rerank provider %q", rc.Provider)
	}
}
