package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"aspada.com/assistant/internal/store"
)

func TestSemanticMatcher_Best(t *testing.T) {
	m := NewSemanticMatcher(0.9, zaptest.NewLogger(t))
	entries := []store.CacheEntry{
		{ID: "far", Embedding: []float32{0, 1, 0, 0}},
		{ID: "near", Embedding: []float32{1, 0.1, 0, 0}},
		{ID: "nan", Embedding: []float32{0, 0, 0, 0}},
		{ID: "short", Embedding: []float32{1, 0}},
		{ID: "none"},
	}

	match := m.Best([]float32{1, 0, 0, 0}, entries)
	require.NotNil(t, match.Entry)
	assert.Equal(t, "near", match.Entry.ID)
	assert.True(t, match.Hit)
	assert.Greater(t, match.Score, 0.99)
}

func TestSemanticMatcher_ThresholdIsStrict(t *testing.T) {
	m := NewSemanticMatcher(0.9, zaptest.NewLogger(t))
	entries := []store.CacheEntry{{ID: "a", Embedding: []float32{9, 3, 3, 1}}}

	match := m.Best([]float32{1, 0, 0, 0}, entries)
	require.NotNil(t, match.Entry)
	assert.Equal(t, 0.9, match.Score)
	assert.False(t, match.Hit)
}

func TestSemanticMatcher_FirstSeenWinsTies(t *testing.T) {
	m := NewSemanticMatcher(0.9, zaptest.NewLogger(t))
	entries := []store.CacheEntry{
		{ID: "older", Embedding: []float32{2, 0}},
		{ID: "newer", Embedding: []float32{5, 0}},
	}

	match := m.Best([]float32{1, 0}, entries)
	assert.Equal(t, "older", match.Entry.ID)
	assert.True(t, match.Hit)
}

func TestSemanticMatcher_NoCandidates(t *testing.T) {
	m := NewSemanticMatcher(0, zaptest.NewLogger(t))

	match := m.Best([]float32{1, 0}, nil)
	assert.Nil(t, match.Entry)
	assert.False(t, match.Hit)

	match = m.Best([]float32{0, 0}, []store.CacheEntry{{ID: "a", Embedding: []float32{1, 0}}})
	assert.Nil(t, match.Entry, "a zero query vector matches nothing")
}
