package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in      string
		want    Distance
		wantErr bool
	}{
		{"cosine", DistanceCosine, false},
		{"COSINE", DistanceCosine, false},
		{" dot ", DistanceDot, false},
		{"euclid", DistanceEuclid, false},
		{"manhattan", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDistance(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("doc-1"), PointID("doc-1"))
	assert.NotEqual(t, PointID("doc-1"), PointID("doc-2"))
	assert.Len(t, PointID("doc-1"), 36)
}

func TestNewPoint(t *testing.T) {
	p, err := NewPoint(Item{ID: "x", Text: "hello"}, []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, PointID("x"), p.ID)
	assert.Equal(t, Payload{ExternalID: "x", Text: "hello"}, p.Payload)

	_, err = NewPoint(Item{ID: "", Text: "hello"}, []float32{1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewPoint(Item{ID: "x"}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     SearchQuery
		wantErr   bool
		wantLimit int
	}{
		{"valid with default limit", SearchQuery{Collection: "c", Query: "hello"}, false, 10},
		{"explicit limit", SearchQuery{Collection: "c", Query: "hello", Limit: 25}, false, 25},
		{"max limit", SearchQuery{Collection: "c", Query: "hello", Limit: 100}, false, 100},
		{"too short", SearchQuery{Collection: "c", Query: "hi"}, true, 0},
		{"too long", SearchQuery{Collection: "c", Query: string(make([]byte, 51))}, true, 0},
		{"multibyte counts runes", SearchQuery{Collection: "c", Query: "検索だ"}, false, 10},
		{"negative limit", SearchQuery{Collection: "c", Query: "hello", Limit: -1}, true, 0},
		{"limit over max", SearchQuery{Collection: "c", Query: "hello", Limit: 101}, true, 0},
		{"missing collection", SearchQuery{Query: "hello"}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			err := q.Validate(DefaultQueryBounds)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, q.Limit)
		})
	}
}

func TestStoreError(t *testing.T) {
	assert.Nil(t, NewStoreError("upsert", "c", nil))

	err := fmt.Errorf("failed to store point: %w", NewStoreError("upsert", "c", ErrCollectionNotFound))
	assert.True(t, IsStoreError(err))
	assert.True(t, IsCollectionNotFound(err))
	assert.Contains(t, err.Error(), `store upsert "c"`)

	plain := NewStoreError("list", "", errors.New("disk full"))
	assert.Equal(t, "store list: disk full", plain.Error())
	assert.False(t, IsCollectionNotFound(plain))
}
