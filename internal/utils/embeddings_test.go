package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "self", a: []float32{0.3, -1.2, 4}, b: []float32{0.3, -1.2, 4}, want: 1},
		{name: "opposite", a: []float32{0.3, -1.2, 4}, b: []float32{-0.3, 1.2, -4}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 5}, want: 0},
		{name: "scaled", a: []float32{1, 2}, b: []float32{10, 20}, want: 1},
		{name: "exact 0.9", a: []float32{1, 0, 0, 0}, b: []float32{9, 3, 3, 1}, want: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineSimilarity_ZeroMagnitudeIsNaN(t *testing.T) {
	got, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
	assert.False(t, got > 0.9)
}

func TestCosineSimilarity_Errors(t *testing.T) {
	_, err := CosineSimilarity(nil, []float32{1})
	assert.Error(t, err)

	_, err = CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorContains(t, err, "same dimension")
}
