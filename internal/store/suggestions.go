package store

import (
	"fmt"

	"github.com/guestradar/guestradar/pkg/models"
)

// KnownChecker reports whether a phrase already exists somewhere. The label
// store implements it; the suggestion store unions it with its own records.
type KnownChecker interface {
	Known(phrase string) bool
}

// SuggestionStore persists engine-generated suggestions and enforces the
// never-resuggest invariant: a phrase present in the label store or in any
// prior suggestion is filtered out on accept.
type SuggestionStore struct {
	path        string
	labels      KnownChecker
	suggestions []models.Suggestion
	index       map[string]int // normalized phrase -> position
}

// OpenSuggestionStore loads the suggestion file (or starts empty). labels
// may be nil when no label store exists yet.
func OpenSuggestionStore(path string, labels KnownChecker) (*SuggestionStore, error) {
	s := &SuggestionStore{path: path, labels: labels, index: make(map[string]int)}
	if err := readJSON(path, &s.suggestions); err != nil {
		return nil, err
	}
	for i, sg := range s.suggestions {
		if norm := models.NormalizePhrase(sg.Phrase); norm != "" {
			s.index[norm] = i
		}
	}
	return s, nil
}

// IsKnown reports whether the phrase exists in the label store or as a prior
// suggestion. Comparison is normalized: trimmed, case-folded.
func (s *SuggestionStore) IsKnown(phrase string) bool {
	norm := models.NormalizePhrase(phrase)
	if norm == "" {
		return false
	}
	if _, ok := s.index[norm]; ok {
		return true
	}
	return s.labels != nil && s.labels.Known(phrase)
}

// Accept filters out suggestions that are now known (including duplicates
// inside the batch itself), appends the survivors and persists the store.
// Returns the count actually added. Zero additions is steady-state behavior,
// not an error.
func (s *SuggestionStore) Accept(suggestions []models.Suggestion) (int, error) {
	added := 0
	for _, sg := range suggestions {
		norm := models.NormalizePhrase(sg.Phrase)
		if norm == "" || s.IsKnown(sg.Phrase) {
			continue
		}
		s.suggestions = append(s.suggestions, sg)
		s.index[norm] = len(s.suggestions) - 1
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := writeJSONAtomic(s.path, s.suggestions); err != nil {
		return added, fmt.Errorf("persist suggestions: %w", err)
	}
	return added, nil
}

// MarkConsumed records that a human labeled a previously suggested phrase.
// The suggestion record stays; only its ConsumedLabel is set.
func (s *SuggestionStore) MarkConsumed(phrase string, chosen models.Label) error {
	norm := models.NormalizePhrase(phrase)
	i, ok := s.index[norm]
	if !ok {
		return fmt.Errorf("phrase %q was never suggested", phrase)
	}
	if !chosen.Valid() {
		return fmt.Errorf("invalid label %q", chosen)
	}

	s.suggestions[i].ConsumedLabel = chosen
	return writeJSONAtomic(s.path, s.suggestions)
}

// Pending returns suggestions not yet consumed by a human label, in
// generation order.
func (s *SuggestionStore) Pending() []models.Suggestion {
	var out []models.Suggestion
	for _, sg := range s.suggestions {
		if sg.ConsumedLabel == "" {
			out = append(out, sg)
		}
	}
	return out
}

// All returns every suggestion record.
func (s *SuggestionStore) All() []models.Suggestion {
	out := make([]models.Suggestion, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// Count returns the number of suggestion records.
func (s *SuggestionStore) Count() int {
	return len(s.suggestions)
}
