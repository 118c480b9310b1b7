// Package models defines core data structures for collections, points, and search results.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Distance is the similarity metric a collection is created with.
type Distance string

const (
	// DistanceCosine ranks by cosine similarity.
	DistanceCosine Distance = "cosine"
	// DistanceDot ranks by raw inner product.
	DistanceDot Distance = "dot"
	// DistanceEuclid ranks by inverse euclidean distance.
	DistanceEuclid Distance = "euclid"
)

// ParseDistance returns the Distance named by s (case-insensitive).
func ParseDistance(s string) (Distance, error) {
	switch d := Distance(strings.ToLower(strings.TrimSpace(s))); d {
	case DistanceCosine, DistanceDot, DistanceEuclid:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown distance %q (supported: cosine, dot, euclid)", ErrInvalidArgument, s)
	}
}

// CollectionInfo describes a collection. Dimension and Distance never change after creation.
type CollectionInfo struct {
	Name        string    `json:"name"`
	Dimension   int       `json:"vector_dimension"`
	Distance    Distance  `json:"distance_metric"`
	PointsCount int       `json:"points_count"`
	CreatedAt   time.Time `json:"created_at"`
}
