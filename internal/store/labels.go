package store

import (
	"fmt"
	"time"

	"github.com/guestradar/guestradar/pkg/models"
)

// LabelStore persists human annotations.
type LabelStore struct {
	path   string
	labels []models.LabelRecord
	index  map[string]bool // normalized text
}

// OpenLabelStore loads the label file (or starts empty).
func OpenLabelStore(path string) (*LabelStore, error) {
	s := &LabelStore{path: path, index: make(map[string]bool)}
	if err := readJSON(path, &s.labels); err != nil {
		return nil, err
	}
	for _, l := range s.labels {
		if norm := models.NormalizePhrase(l.Text); norm != "" {
			s.index[norm] = true
		}
	}
	return s, nil
}

// Add records a human label and persists the store.
func (s *LabelStore) Add(text string, label models.Label, source string) error {
	norm := models.NormalizePhrase(text)
	if norm == "" {
		return models.ErrEmptyPhrase
	}
	if !label.Valid() {
		return fmt.Errorf("invalid label %q", label)
	}

	s.labels = append(s.labels, models.LabelRecord{
		Text:      text,
		Label:     label,
		Source:    source,
		Timestamp: time.Now().UTC(),
	})
	s.index[norm] = true

	return writeJSONAtomic(s.path, s.labels)
}

// Known reports whether the phrase already carries a label of any category.
func (s *LabelStore) Known(phrase string) bool {
	return s.index[models.NormalizePhrase(phrase)]
}

// All returns every label record.
func (s *LabelStore) All() []models.LabelRecord {
	out := make([]models.LabelRecord, len(s.labels))
	copy(out, s.labels)
	return out
}

// Count returns the number of labels.
func (s *LabelStore) Count() int {
	return len(s.labels)
}
