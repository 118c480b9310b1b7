package cli

import (
	"context"
	"time"

	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
)

// Backend is what client commands talk to: a running server or a local store.
type Backend interface {
	CreateCollection(ctx context.Context, name string) (bool, error)
	DeleteCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	DescribeCollection(ctx context.Context, name string) (*models.CollectionInfo, error)
	Index(ctx context.Context, collection string, item models.Item) (bool, error)
	IndexItems(ctx context.Context, collection string, items []models.Item, progress func(done, total int)) (indexer.Stats, error)
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
	Status(ctx context.Context) (*StatusResponse, error)
	Close() error
}

// StatusResponse is the shape of GET /status.
type StatusResponse struct {
	Status        string        `json:"status"`
	UptimeSeconds int64         `json:"uptime_seconds,omitempty"`
	Collections   int           `json:"collections"`
	Points        int           `json:"points"`
	Config        *StatusConfig `json:"config,omitempty"`
}

// StatusConfig is the configuration part of StatusResponse.
type StatusConfig struct {
	StorageBackend    string `json:"storage_backend"`
	VectorDimension   int    `json:"vector_dimension"`
	DistanceMetric    string `json:"distance_metric"`
	EmbeddingProvider string `json:"embedding_provider"`
	RerankProvider    string `json:"rerank_provider"`
	MaxLimit          int    `json:"max_limit"`
}

// localBackend runs commands in-process against the configured store.
type localBackend struct {
	components *Components
	storage    string
	embedding  string
	rerank     string
}

func (b *localBackend) CreateCollection(ctx context.Context, name string) (bool, error) {
	return b.components.Collections.Create(ctx, name)
}

func (b *localBackend) DeleteCollection(ctx context.Context, name string) (bool, error) {
	return b.components.Collections.Delete(ctx, name)
}

func (b *localBackend) ListCollections(ctx context.Context) ([]string, error) {
	return b.components.Collections.List(ctx)
}

func (b *localBackend) DescribeCollection(ctx context.Context, name string) (*models.CollectionInfo, error) {
	return b.components.Collections.Describe(ctx, name)
}

func (b *localBackend) Index(ctx context.Context, collection string, item models.Item) (bool, error) {
	return b.components.Indexer.Index(ctx, collection, item)
}

func (b *localBackend) IndexItems(ctx context.Context, collection string, items []models.Item, progress func(done, total int)) (indexer.Stats, error) {
	return b.components.Indexer.IndexItems(ctx, collection, items, progress)
}

func (b *localBackend) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	return b.components.Engine.Query(ctx, query)
}

func (b *localBackend) Status(ctx context.Context) (*StatusResponse, error) {
	names, err := b.components.Collections.List(ctx)
	if err != nil {
		return nil, err
	}
	points := 0
	for _, name := range names {
		info, err := b.components.Collections.Describe(ctx, name)
		if err != nil {
			return nil, err
		}
		points += info.PointsCount
	}
	return &StatusResponse{
		Status:      "ok",
		Collections: len(names),
		Points:      points,
		Config: &StatusConfig{
			StorageBackend:    b.storage,
			VectorDimension:   b.components.Collections.Dimension(),
			DistanceMetric:    string(b.components.Collections.Distance()),
			EmbeddingProvider: b.embedding,
			RerankProvider:    b.rerank,
			MaxLimit:          b.components.Engine.Bounds().MaxLimit,
		},
	}, nil
}

func (b *localBackend) Close() error {
	b.components.Close()
	return nil
}

// indexItemsOneByOne indexes items through index, matching Indexer.IndexItems semantics.
func indexItemsOneByOne(ctx context.Context, items []models.Item, progress func(done, total int),
	index func(context.Context, models.Item) (bool, error)) (indexer.Stats, error) {
	var stats indexer.Stats
	for i, item := range items {
		indexed, err := index(ctx, item)
		if err != nil {
			return stats, err
		}
		if indexed {
			stats.Indexed++
		} else {
			stats.Skipped++
		}
		if progress != nil {
			progress(i+1, len(items))
		}
	}
	return stats, nil
}

// defaultClientTimeout bounds a single HTTP request from the CLI.
const defaultClientTimeout = 60 * time.Second
