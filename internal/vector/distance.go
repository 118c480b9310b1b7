package vector

import (
	"fmt"

	"github.com/viant/vec/search"

	"github.com/hyperjump/kensaku/internal/models"
)

// SimilarityFunc scores a stored vector against a query; higher means closer.
type SimilarityFunc func(query, stored []float32) float64

// Similarity returns the scoring function for d.
func Similarity(d models.Distance) (SimilarityFunc, error) {
	switch d {
	case models.DistanceCosine:
		return CosineSimilarity, nil
	case models.DistanceDot:
		return InnerProduct, nil
	case models.DistanceEuclid:
		return EuclidSimilarity, nil
	default:
		return nil, fmt.Errorf("%w: unsupported distance %q", models.ErrInvalidArgument, d)
	}
}

// CosineSimilarity returns 1 - cosine distance. Zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	va := search.Float32s(a)
	if va.Magnitude() == 0 || search.Float32s(b).Magnitude() == 0 {
		return 0
	}
	return 1 - float64(va.CosineDistance(b))
}

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// EuclidSimilarity maps euclidean distance d to 1/(1+d).
func EuclidSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	d := float64(search.Float32s(a).EuclideanDistance(b))
	return 1 / (1 + d)
}
