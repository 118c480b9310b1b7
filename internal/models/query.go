package models

import (
	"fmt"
	"unicode/utf8"
)

// QueryBounds holds the accepted query length and limit ranges for a search request.
type QueryBounds struct {
	MinQueryLength int
	MaxQueryLength int
	DefaultLimit   int
	MaxLimit       int
}

// DefaultQueryBounds matches the service defaults: 3..50 characters, limit 1..100 (default 10).
var DefaultQueryBounds = QueryBounds{
	MinQueryLength: 3,
	MaxQueryLength: 50,
	DefaultLimit:   10,
	MaxLimit:       100,
}

// SearchQuery is a search request against one collection.
type SearchQuery struct {
	Collection string `json:"collection"`
	Query      string `json:"q"`
	Limit      int    `json:"limit,omitempty"`
}

// Validate checks the query against b. A zero Limit is replaced by b.DefaultLimit.
func (q *SearchQuery) Validate(b QueryBounds) error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection cannot be empty", ErrInvalidArgument)
	}
	n := utf8.RuneCountInString(q.Query)
	if n < b.MinQueryLength || n > b.MaxQueryLength {
		return fmt.Errorf("%w: query length must be between %d and %d characters",
			ErrInvalidArgument, b.MinQueryLength, b.MaxQueryLength)
	}
	if q.Limit == 0 {
		q.Limit = b.DefaultLimit
	}
	if q.Limit < 1 || q.Limit > b.MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidArgument, b.MaxLimit)
	}
	return nil
}
