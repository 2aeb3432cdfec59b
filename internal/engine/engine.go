// Package engine orchestrates the suggestion generation cycle: accumulated
// MAYBE examples are scored against the unlabeled candidate pool and the
// best matches are persisted as suggestions for human review.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/internal/accumulator"
	"github.com/guestradar/guestradar/internal/similarity"
	"github.com/guestradar/guestradar/internal/store"
	"github.com/guestradar/guestradar/pkg/models"
)

// Embedder converts text to vectors with per-run memoization.
// embedding.Cache satisfies it.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Seed(text string, vec []float32)
	Version() string
}

// VectorCache persists embeddings across runs. sqlitevec.Client satisfies
// it; a nil cache disables persistence.
type VectorCache interface {
	Get(ctx context.Context, phrases []string) (map[string][]float32, error)
	Put(ctx context.Context, phrases []string, embeddings [][]float32) error
}

// Options configures the engine's retrieval behavior.
type Options struct {
	// SimilarityThreshold is the minimum aggregated score for acceptance
	// (inclusive boundary).
	SimilarityThreshold float64
	// TopK caps the number of suggestions per cycle.
	TopK int
}

// Engine wires the accumulator, embedding layers, similarity ranking and the
// suggestion store into one synchronous control flow.
type Engine struct {
	acc         *accumulator.Accumulator
	candidates  *store.CandidateStore
	suggestions *store.SuggestionStore
	embedder    Embedder
	vectors     VectorCache
	opts        Options
}

// New creates an engine. vectors may be nil.
func New(acc *accumulator.Accumulator, candidates *store.CandidateStore,
	suggestions *store.SuggestionStore, embedder Embedder, vectors VectorCache, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 8
	}
	return &Engine{
		acc:         acc,
		candidates:  candidates,
		suggestions: suggestions,
		embedder:    embedder,
		vectors:     vectors,
		opts:        opts,
	}
}

// CycleResult summarizes one generation cycle.
type CycleResult struct {
	CycleID    string
	References int
	Eligible   int
	Skipped    int // items excluded after embedding failures
	Proposed   int // candidates that cleared threshold and top-k
	Accepted   int // survivors of the is-known filter
	Duration   time.Duration
	// Suggestions holds the proposed batch in ranked order, for display.
	Suggestions []models.Suggestion
}

// RecordMaybe records an uncertain label and, when the accumulation
// threshold is reached, runs a generation cycle synchronously. The returned
// CycleResult is nil when no cycle fired. A failed example-store write is
// logged and swallowed: the label is still accumulated in memory and the
// annotator is not blocked.
func (e *Engine) RecordMaybe(ctx context.Context, text, source string) (*CycleResult, error) {
	trigger, err := e.acc.Record(text, source)
	if err != nil {
		if errors.Is(err, models.ErrEmptyPhrase) {
			return nil, err
		}
		log.Warn().Err(err).Str("text", text).
			Msg("Example persisted in memory only, storage write failed")
	}

	if !trigger {
		return nil, nil
	}

	result, err := e.RunCycle(ctx)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunCycle executes one generation cycle over the full accumulated example
// history and resets the trigger counter on success. Safe to re-run over the
// same inputs: the is-known filter makes acceptance idempotent.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	cycleID := uuid.NewString()

	refs := e.acc.AllExamples()
	pool := e.candidates.All()

	proposed, stats, err := e.generate(ctx, cycleID, refs, pool)
	if err != nil {
		return nil, err
	}

	accepted, err := e.suggestions.Accept(proposed)
	if err != nil {
		return nil, fmt.Errorf("accept suggestions: %w", err)
	}

	e.acc.ResetCounter()

	result := &CycleResult{
		CycleID:     cycleID,
		References:  len(refs),
		Eligible:    stats.eligible,
		Skipped:     stats.skipped,
		Proposed:    len(proposed),
		Accepted:    accepted,
		Duration:    time.Since(start),
		Suggestions: proposed,
	}

	log.Info().
		Str("cycle_id", cycleID).
		Int("references", result.References).
		Int("eligible", result.Eligible).
		Int("skipped", result.Skipped).
		Int("proposed", result.Proposed).
		Int("accepted", result.Accepted).
		Dur("duration", result.Duration).
		Msg("Generation cycle complete")

	return result, nil
}

type generateStats struct {
	eligible int
	skipped  int
}

// generate embeds references and eligible candidates, ranks by max
// similarity over the reference set, and returns the surviving suggestions.
// Individual embedding failures exclude only the affected item.
func (e *Engine) generate(ctx context.Context, cycleID string,
	refs []models.UncertainExample, pool []models.Candidate) ([]models.Suggestion, generateStats, error) {

	var stats generateStats
	if len(refs) == 0 || len(pool) == 0 {
		return nil, stats, nil
	}

	// Keep only candidates not already labeled or suggested. Candidates
	// matching an accumulated example are excluded too: a phrase scores
	// 1.0 against its own reference vector and would crowd out every
	// genuine match.
	refSet := make(map[string]bool, len(refs))
	for _, r := range refs {
		refSet[models.NormalizePhrase(r.Text)] = true
	}
	eligible := make([]models.Candidate, 0, len(pool))
	for _, c := range pool {
		if refSet[models.NormalizePhrase(c.Phrase)] || e.suggestions.IsKnown(c.Phrase) {
			continue
		}
		eligible = append(eligible, c)
	}
	stats.eligible = len(eligible)
	if len(eligible) == 0 {
		return nil, stats, nil
	}

	cached := e.seedFromCache(ctx, refs, eligible)

	refVecs := make([][]float32, 0, len(refs))
	for _, r := range refs {
		vec, err := e.embedder.Embed(r.Text)
		if err != nil {
			stats.skipped++
			log.Debug().Err(err).Str("text", r.Text).Msg("Skipping reference example")
			continue
		}
		refVecs = append(refVecs, vec)
	}
	if len(refVecs) == 0 {
		return nil, stats, nil
	}

	candVecs := make([][]float32, 0, len(eligible))
	candIdx := make([]int, 0, len(eligible))
	var newPhrases []string
	var newVecs [][]float32
	for i, c := range eligible {
		vec, err := e.embedder.Embed(c.Phrase)
		if err != nil {
			stats.skipped++
			log.Debug().Err(err).Str("phrase", c.Phrase).Msg("Skipping candidate")
			continue
		}
		candVecs = append(candVecs, vec)
		candIdx = append(candIdx, i)
		if e.vectors != nil && !cached[models.NormalizePhrase(c.Phrase)] {
			newPhrases = append(newPhrases, c.Phrase)
			newVecs = append(newVecs, vec)
		}
	}

	ranked := similarity.Rank(refVecs, candVecs, e.opts.SimilarityThreshold, e.opts.TopK)

	now := time.Now().UTC()
	suggestions := make([]models.Suggestion, 0, len(ranked))
	for _, r := range ranked {
		c := eligible[candIdx[r.Index]]
		suggestions = append(suggestions, models.Suggestion{
			Phrase:            c.Phrase,
			Source:            c.Source,
			SimilarityScore:   r.Score,
			SuggestedByEngine: true,
			CycleID:           cycleID,
			Timestamp:         now,
		})
	}

	e.persistNewVectors(ctx, newPhrases, newVecs)

	return suggestions, stats, nil
}
