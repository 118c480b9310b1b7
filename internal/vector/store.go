// Package vector provides collection-scoped vector stores and a factory for creating them.
package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/kensaku/internal/models"
)

// Store owns collections of points and answers similarity queries over them.
//
// Lookups of absent things return a nil value and a nil error. Point reads and
// similarity searches against a missing collection fail with
// models.ErrCollectionNotFound; writes against a missing collection fail with a
// *models.StoreError wrapping it. Implementations are safe for concurrent use.
type Store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	// CreateCollection returns false without error when the collection already exists.
	CreateCollection(ctx context.Context, name string, dimension int, distance models.Distance) (bool, error)
	// DeleteCollection returns false without error when the collection did not exist.
	DeleteCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	DescribeCollection(ctx context.Context, name string) (*models.CollectionInfo, error)
	FindByExternalID(ctx context.Context, collection, externalID string) (*models.Point, error)
	// UpsertPoint writes p, replacing any point with the same ID.
	UpsertPoint(ctx context.Context, collection string, p *models.Point) error
	// SimilaritySearch returns up to limit points by descending similarity. Equal scores keep insertion order.
	SimilaritySearch(ctx context.Context, collection string, vector []float32, limit int) ([]models.ScoredPoint, error)
	Close() error
}

type candidate struct {
	point *models.Point
	score float64
}

// topK orders cands by descending score, keeping input order among equal scores, and keeps at most k.
func topK(cands []candidate, k int) []models.ScoredPoint {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	if k < len(cands) {
		cands = cands[:k]
	}
	out := make([]models.ScoredPoint, len(cands))
	for i, c := range cands {
		out[i] = models.ScoredPoint{Point: c.point, Score: c.score}
	}
	return out
}

func checkDimension(want int, v []float32) error {
	if len(v) != want {
		return fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(v), want)
	}
	return nil
}

func validateCollection(name string, dimension int) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", models.ErrInvalidArgument)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", models.ErrInvalidArgument)
	}
	return nil
}

func clonePoint(p *models.Point) *models.Point {
	vec := make([]float32, len(p.Vector))
	copy(vec, p.Vector)
	return &models.Point{ID: p.ID, Vector: vec, Payload: p.Payload}
}
