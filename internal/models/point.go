package models

import (
	"fmt"

	"github.com/google/uuid"
)

// pointNamespace seeds the UUIDv5 point IDs derived from external IDs.
var pointNamespace = uuid.MustParse("6f1c2a0e-8a43-4d8e-9b7a-2f3c4d5e6a7b")

// Item is a caller-supplied text unit addressed by its external ID.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Validate reports whether the item can be indexed.
func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: item id cannot be empty", ErrInvalidArgument)
	}
	return nil
}

// Payload is stored verbatim next to a vector so results can be rebuilt without a second lookup.
type Payload struct {
	ExternalID string `json:"external_id"`
	Text       string `json:"text"`
}

// Point is the stored form of an Item inside a collection.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"-"`
	Payload Payload   `json:"payload"`
}

// PointID returns the deterministic point ID for an external ID.
// The same external ID always maps to the same point, so concurrent writes for it overwrite each other.
func PointID(externalID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(externalID)).String()
}

// NewPoint builds a point for item with the given embedding.
func NewPoint(item Item, vector []float32) (*Point, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: point vector cannot be empty", ErrInvalidArgument)
	}
	return &Point{
		ID:     PointID(item.ID),
		Vector: vector,
		Payload: Payload{
			ExternalID: item.ID,
			Text:       item.Text,
		},
	}, nil
}

// ScoredPoint is a similarity search hit.
type ScoredPoint struct {
	Point *Point
	Score float64
}
