package utils

import (
	"fmt"
	"math"
)

// dotProduct calculates the dot product of two vectors.
func dotProduct(vec1, vec2 []float32) float64 {
	var product float64
	for i := range vec1 {
		product += float64(vec1[i]) * float64(vec2[i])
	}
	return product
}

// magnitude calculates the L2 norm (magnitude) of a vector.
func magnitude(vec []float32) float64 {
	var sumOfSquares float64
	for _, val := range vec {
		sumOfSquares += float64(val) * float64(val)
	}
	return math.Sqrt(sumOfSquares)
}

// CosineSimilarity returns dot(v1, v2) / (|v1| * |v2|), accumulated in float64.
// A zero-magnitude vector yields NaN, which compares false against any
// threshold. Vectors of different or zero length are an error.
func CosineSimilarity(vec1, vec2 []float32) (float64, error) {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	if len(vec1) != len(vec2) {
		return 0, fmt.Errorf("vectors must have the same dimension (%d != %d)", len(vec1), len(vec2))
	}

	mag1 := magnitude(vec1)
	mag2 := magnitude(vec2)
	if mag1 == 0 || mag2 == 0 {
		return math.NaN(), nil
	}

	return dotProduct(vec1, vec2) / (mag1 * mag2), nil
}
