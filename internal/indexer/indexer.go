// Package indexer embeds items and writes them into collections.
package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
	"go.uber.org/zap"
)

// Indexer embeds items and stores them as points. An external ID that is already
// present in the collection is skipped; its stored text and vector are left untouched.
type Indexer struct {
	store    vector.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (item indexed, item skipped).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer writing to store.
func NewIndexer(store vector.Store, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:    store,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Stats counts the outcome of a batch.
type Stats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// Index stores item in collection unless its ID is already there. It reports whether a
// point was written. The collection must exist; Index never creates it.
func (idx *Indexer) Index(ctx context.Context, collection string, item models.Item) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, err
	}
	existing, err := idx.store.FindByExternalID(ctx, collection, item.ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		idx.logger.Debug("indexer skipping existing item",
			zap.String("collection", collection), zap.String("id", item.ID))
		return false, nil
	}

	vec, err := idx.embedder.Embed(ctx, item.Text)
	if err != nil {
		return false, fmt.Errorf("failed to generate embedding: %w", err)
	}
	point, err := models.NewPoint(item, vec)
	if err != nil {
		return false, err
	}
	if err := idx.store.UpsertPoint(ctx, collection, point); err != nil {
		return false, err
	}
	idx.logger.Debug("indexer item indexed",
		zap.String("collection", collection),
		zap.String("id", item.ID),
		zap.String("point_id", point.ID))
	return true, nil
}

// IndexItems indexes items in order and stops at the first failure. progress, when
// non-nil, is called after each item with the number done so far and the total.
func (idx *Indexer) IndexItems(ctx context.Context, collection string, items []models.Item, progress func(done, total int)) (Stats, error) {
	var stats Stats
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		indexed, err := idx.Index(ctx, collection, item)
		if err != nil {
			return stats, fmt.Errorf("item %d (%q): %w", i, item.ID, err)
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
	idx.logger.Info("indexer batch done",
		zap.String("collection", collection),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}
