// Package similarity provides pure vector similarity and ranking functions.
package similarity

import "math"

// Cosine computes the cosine similarity between two vectors.
// Returns 0 when either vector has zero norm (degenerate embedding) or when
// the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MaxOverReferences returns the maximum cosine similarity between a candidate
// vector and any reference vector. A candidate matching strongly to any
// accumulated example counts as a hit; diverse references broaden recall
// rather than dilute it. Returns 0 for an empty reference set.
func MaxOverReferences(candidate []float32, references [][]float32) float64 {
	best := 0.0
	for i, ref := range references {
		sim := Cosine(candidate, ref)
		if i == 0 || sim > best {
			best = sim
		}
	}
	return best
}
