package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/pkg/models"
)

// seedFromCache preloads the run embedder with vectors already known to the
// persistent cache and returns the set of normalized phrases that were
// found. A cache failure degrades to recomputing everything; it never aborts
// the cycle.
func (e *Engine) seedFromCache(ctx context.Context,
	refs []models.UncertainExample, eligible []models.Candidate) map[string]bool {

	found := make(map[string]bool)
	if e.vectors == nil {
		return found
	}

	phrases := make([]string, 0, len(refs)+len(eligible))
	for _, r := range refs {
		phrases = append(phrases, r.Text)
	}
	for _, c := range eligible {
		phrases = append(phrases, c.Phrase)
	}

	vecs, err := e.vectors.Get(ctx, phrases)
	if err != nil {
		log.Warn().Err(err).Msg("Embedding cache unavailable, recomputing all vectors")
		return found
	}

	for phrase, vec := range vecs {
		e.embedder.Seed(phrase, vec)
		found[phrase] = true
	}

	if len(found) > 0 {
		log.Debug().Int("cached", len(found)).Int("requested", len(phrases)).
			Msg("Seeded run embedder from persistent cache")
	}
	return found
}

// persistNewVectors writes vectors computed this cycle back to the
// persistent cache. Failures are logged, not fatal: the cycle's suggestions
// are already decided.
func (e *Engine) persistNewVectors(ctx context.Context, phrases []string, vecs [][]float32) {
	if e.vectors == nil || len(phrases) == 0 {
		return
	}
	if err := e.vectors.Put(ctx, phrases, vecs); err != nil {
		log.Warn().Err(err).Int("count", len(phrases)).
			Msg("Failed to persist embeddings to cache")
	}
}
