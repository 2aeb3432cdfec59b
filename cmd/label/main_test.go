package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestradar/guestradar/internal/accumulator"
	"github.com/guestradar/guestradar/internal/embedding"
	"github.com/guestradar/guestradar/internal/engine"
	"github.com/guestradar/guestradar/internal/store"
	"github.com/guestradar/guestradar/pkg/models"
)

// staticModel serves fixed vectors per normalized phrase.
type staticModel struct {
	vectors map[string][]float32
}

func (m *staticModel) Name() string    { return "static" }
func (m *staticModel) Version() string { return "static-v1" }
func (m *staticModel) Dimensions() int { return 2 }
func (m *staticModel) Close() error    { return nil }

func (m *staticModel) Embed(text string) ([]float32, error) {
	vec, ok := m.vectors[models.NormalizePhrase(text)]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func (m *staticModel) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

type sessionEnv struct {
	eng         *engine.Engine
	acc         *accumulator.Accumulator
	examples    *store.ExampleStore
	candidates  *store.CandidateStore
	labels      *store.LabelStore
	suggestions *store.SuggestionStore
}

func newSessionEnv(t *testing.T, dir string, interval int, pool []models.Candidate) *sessionEnv {
	t.Helper()

	examples, err := store.OpenExampleStore(filepath.Join(dir, "maybe_examples.json"))
	require.NoError(t, err)
	candidates, err := store.OpenCandidateStore(filepath.Join(dir, "candidates.json"))
	require.NoError(t, err)
	labels, err := store.OpenLabelStore(filepath.Join(dir, "labels.json"))
	require.NoError(t, err)
	suggestions, err := store.OpenSuggestionStore(filepath.Join(dir, "suggestions.json"), labels)
	require.NoError(t, err)

	if candidates.Count() == 0 && len(pool) > 0 {
		_, err = candidates.Append(pool)
		require.NoError(t, err)
	}

	model := &staticModel{vectors: map[string][]float32{
		"jakub kowalski":            {1, 0},
		"jakub kowalski energetyka": {0.87, 0.49317},
		"anna nowak":                {0.2, 0.97980},
	}}

	acc := accumulator.New(examples, interval)
	eng := engine.New(acc, candidates, suggestions,
		embedding.NewCache(embedding.NewServiceWith(model)), nil,
		engine.Options{SimilarityThreshold: 0.6, TopK: 8})

	return &sessionEnv{
		eng:         eng,
		acc:         acc,
		examples:    examples,
		candidates:  candidates,
		labels:      labels,
		suggestions: suggestions,
	}
}

func (e *sessionEnv) run(t *testing.T, input string) string {
	t.Helper()
	var out strings.Builder
	err := runSession(context.Background(), e.eng, e.acc, e.candidates,
		e.labels, e.suggestions, strings.NewReader(input), &out)
	require.NoError(t, err)
	return out.String()
}

func testPool() []models.Candidate {
	return []models.Candidate{
		{Phrase: "Jakub Kowalski", Source: "title"},
		{Phrase: "Jakub Kowalski energetyka", Source: "title"},
		{Phrase: "Anna Nowak", Source: "description"},
	}
}

func TestRunSession_MaybeRecordsLabel(t *testing.T) {
	env := newSessionEnv(t, t.TempDir(), 10, testPool())

	out := env.run(t, "M\nQ\n")

	assert.True(t, env.labels.Known("Jakub Kowalski"),
		"an uncertain phrase is a finished annotation, not a pending one")
	assert.Equal(t, 1, env.examples.Count())
	assert.Contains(t, out, "9 more uncertain phrase(s) until the next cycle")
}

func TestRunSession_MaybePhraseNotRepresentedNextSession(t *testing.T) {
	dir := t.TempDir()
	env := newSessionEnv(t, dir, 10, testPool())
	env.run(t, "M\nQ\n")

	// Fresh session over the same files: the maybe'd phrase is done.
	env2 := newSessionEnv(t, dir, 10, nil)
	queue := buildQueue(env2.candidates, env2.labels, map[string]models.Suggestion{})

	require.Len(t, queue, 2)
	for _, c := range queue {
		assert.NotEqual(t, "jakub kowalski", models.NormalizePhrase(c.Phrase))
	}
}

func TestRunSession_ForcedCycle(t *testing.T) {
	env := newSessionEnv(t, t.TempDir(), 10, testPool())

	out := env.run(t, "+\nQ\n")

	assert.Contains(t, out, "generation cycle: 1 new suggestion(s)")
	assert.Equal(t, 1, env.suggestions.Count(), "'+' fires a cycle without waiting for the interval")

	pending := env.suggestions.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Jakub Kowalski energetyka", pending[0].Phrase)

	// The freshly suggested phrase comes up next, marked with its score.
	assert.Contains(t, out, "suggested, score 0.87")
}

func TestRunSession_SummaryBreakdown(t *testing.T) {
	env := newSessionEnv(t, t.TempDir(), 10, testPool())

	out := env.run(t, "G\nS\nH\n")

	assert.Contains(t, out, "Session: 3 phrase(s) reviewed.")
	assert.Contains(t, out, "GUEST")
	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, "SKIP")
	assert.Contains(t, out, "(33.3%)")
}

func TestSessionStats_Summary(t *testing.T) {
	stats := newSessionStats()
	stats.counts[models.LabelGuest] = 2
	stats.counts[models.LabelMaybe] = 1
	stats.skipped = 1

	s := stats.summary()
	assert.Contains(t, s, "4 phrase(s) reviewed")
	assert.Contains(t, s, "GUEST")
	assert.Contains(t, s, "(50.0%)")
	assert.Contains(t, s, "MAYBE")
	assert.Contains(t, s, "(25.0%)")
	assert.Contains(t, s, "SKIP")

	assert.Equal(t, "No phrases reviewed.\n", newSessionStats().summary())
}

func TestKeyLabel(t *testing.T) {
	assert.Equal(t, models.LabelGuest, keyLabel("G"))
	assert.Equal(t, models.LabelHost, keyLabel("H"))
	assert.Equal(t, models.LabelOther, keyLabel("O"))
}
