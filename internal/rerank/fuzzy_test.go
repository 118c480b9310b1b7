package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{"identical empty", "", "", 0},
		{"identical word", "hello", "hello", 0},
		{"empty a", "", "hello", 5},
		{"empty b", "hello", "", 5},
		{"one substitution", "cat", "bat", 1},
		{"one insertion", "cat", "cart", 1},
		{"kitten to sitting", "kitten", "sitting", 3},
		{"dropped letter", "machine", "machne", 1},
		{"transposition", "ab", "ba", 1},
		{"transposed typo", "teh", "the", 1},
		{"transposition in word", "recieve", "receive", 1},
		{"unicode substitution", "café", "cafe", 1},
		{"unicode identical", "こんにちは", "こんにちは", 0},
		{"ca to abc", "ca", "abc", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, editDistance(tt.a, tt.b))
			assert.Equal(t, tt.expected, editDistance(tt.b, tt.a))
		})
	}
}

func TestNearestWithin(t *testing.T) {
	freqs := map[string]int{"learning": 1, "data": 2}
	assert.True(t, nearestWithin("lerning", freqs, 1))
	assert.False(t, nearestWithin("lerning", freqs, 0))
	assert.False(t, nearestWithin("dada", freqs, 1), "short terms never match fuzzily")
	assert.False(t, nearestWithin("yearnings", freqs, 1))
}

func TestLexicalScorer_TypoTolerance(t *testing.T) {
	ctx := context.Background()
	texts := []string{"machine learning basics", "bread baking basics"}

	exact, err := NewLexicalScorer().Score(ctx, "machne lerning", texts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, exact)

	fuzzy, err := NewLexicalScorer(WithTypoTolerance(1)).Score(ctx, "machne lerning", texts)
	require.NoError(t, err)
	assert.Greater(t, fuzzy[0], 0.0)
	assert.Equal(t, 0.0, fuzzy[1])

	correct, err := NewLexicalScorer(WithTypoTolerance(1)).Score(ctx, "machine learning", texts)
	require.NoError(t, err)
	assert.Greater(t, correct[0], fuzzy[0], "exact matches outrank near misses")
}
