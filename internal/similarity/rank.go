package similarity

import "sort"

// Scored pairs a candidate's pool index with its aggregated similarity.
type Scored struct {
	Index int     // position in the candidate pool, preserved for tie-breaks
	Score float64 // max similarity over all reference vectors
}

// Rank scores every candidate vector against the reference set, drops those
// strictly below threshold (the boundary is inclusive), and returns at most
// topK results ordered by descending score. Ties keep candidate pool order,
// so identical inputs always produce identical output.
//
// An empty reference set or candidate set yields an empty result, not an
// error.
func Rank(references, candidates [][]float32, threshold float64, topK int) []Scored {
	if len(references) == 0 || len(candidates) == 0 || topK <= 0 {
		return nil
	}

	scored := make([]Scored, 0, len(candidates))
	for i, vec := range candidates {
		score := MaxOverReferences(vec, references)
		if score >= threshold {
			scored = append(scored, Scored{Index: i, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
