package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 2.1},
		{-1, -1, -1},
	}

	for _, v := range vectors {
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-9, "sim(a,a) should be 1")
	}
}

func TestCosine_Symmetry(t *testing.T) {
	a := []float32{0.5, -1.2, 3.3, 0}
	b := []float32{2.0, 0.1, -0.4, 1.1}

	assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-12)
}

func TestCosine_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	assert.InDelta(t, 0.0, Cosine(a, b), 1e-9)
}

func TestCosine_Opposite(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}

	assert.InDelta(t, -1.0, Cosine(a, b), 1e-9)
}

func TestCosine_ZeroNorm(t *testing.T) {
	zero := []float32{0, 0, 0}
	a := []float32{1, 2, 3}

	assert.Equal(t, 0.0, Cosine(zero, a))
	assert.Equal(t, 0.0, Cosine(a, zero))
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestCosine_DimensionMismatch(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestCosine_BoundedRange(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 2.1},
		{-1, -1, -1},
		{0.001, 1000, -3},
	}

	for _, a := range vectors {
		for _, b := range vectors {
			sim := Cosine(a, b)
			assert.GreaterOrEqual(t, sim, -1.0-1e-9)
			assert.LessOrEqual(t, sim, 1.0+1e-9)
		}
	}
}

func TestMaxOverReferences(t *testing.T) {
	candidate := []float32{1, 0}
	references := [][]float32{
		{0, 1},  // sim 0
		{1, 1},  // sim ~0.707
		{-1, 0}, // sim -1
	}

	assert.InDelta(t, 0.70710678, MaxOverReferences(candidate, references), 1e-6)
}

func TestMaxOverReferences_EmptyReferences(t *testing.T) {
	assert.Equal(t, 0.0, MaxOverReferences([]float32{1, 0}, nil))
}

func TestMaxOverReferences_AllNegative(t *testing.T) {
	// The max is taken over actual similarities, even when all are negative.
	candidate := []float32{1, 0}
	references := [][]float32{
		{-1, 0},          // sim -1
		{-1, -1},         // sim ~-0.707
		{-0.1, 1},        // sim ~-0.0995
		{-0.5, 0.000001}, // sim ~-1 (almost opposite)
	}

	best := MaxOverReferences(candidate, references)
	assert.InDelta(t, -0.0995, best, 1e-3)
}
