package store

import (
	"fmt"
	"time"

	"github.com/guestradar/guestradar/pkg/models"
)

// ExampleStore persists the append-only list of MAYBE-labeled examples.
type ExampleStore struct {
	path     string
	examples []models.UncertainExample
	index    map[string]bool // normalized text
}

// OpenExampleStore loads the example file (or starts empty).
func OpenExampleStore(path string) (*ExampleStore, error) {
	s := &ExampleStore{path: path, index: make(map[string]bool)}
	if err := readJSON(path, &s.examples); err != nil {
		return nil, err
	}
	for _, ex := range s.examples {
		s.index[models.NormalizePhrase(ex.Text)] = true
	}
	return s, nil
}

// Append records a new uncertain example and persists the updated list.
// Returns false without error when the phrase is already recorded. A
// persistence failure still leaves the example appended in memory; the
// caller treats the error as a warning, not a lost label.
func (s *ExampleStore) Append(text, source string) (bool, error) {
	norm := models.NormalizePhrase(text)
	if norm == "" {
		return false, models.ErrEmptyPhrase
	}
	if s.index[norm] {
		return false, nil
	}

	s.examples = append(s.examples, models.UncertainExample{
		Text:      text,
		Source:    source,
		Label:     models.LabelMaybe,
		Timestamp: time.Now().UTC(),
	})
	s.index[norm] = true

	if err := writeJSONAtomic(s.path, s.examples); err != nil {
		return true, fmt.Errorf("persist examples: %w", err)
	}
	return true, nil
}

// All returns the full accumulated example history. The retriever always
// scores against all of it, not only the newest batch.
func (s *ExampleStore) All() []models.UncertainExample {
	out := make([]models.UncertainExample, len(s.examples))
	copy(out, s.examples)
	return out
}

// Count returns the number of accumulated examples.
func (s *ExampleStore) Count() int {
	return len(s.examples)
}
