package store

import (
	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/pkg/models"
)

// CandidateStore holds the unlabeled phrase pool. The suggestion engine only
// reads it; cmd/import appends to it.
type CandidateStore struct {
	path       string
	candidates []models.Candidate
	index      map[string]bool // normalized phrase
}

// OpenCandidateStore loads the candidate pool. Malformed entries (empty
// phrase after normalization) are dropped at the boundary with a warning so
// ambiguity never reaches the retriever.
func OpenCandidateStore(path string) (*CandidateStore, error) {
	s := &CandidateStore{path: path, index: make(map[string]bool)}

	var raw []models.Candidate
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}

	dropped := 0
	for _, c := range raw {
		norm := models.NormalizePhrase(c.Phrase)
		if norm == "" {
			dropped++
			continue
		}
		if s.index[norm] {
			dropped++
			continue
		}
		s.candidates = append(s.candidates, c)
		s.index[norm] = true
	}
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Str("file", path).
			Msg("Dropped malformed or duplicate candidate entries")
	}

	return s, nil
}

// All returns the pool in file order. The engine must never mutate the
// returned slice's entries.
func (s *CandidateStore) All() []models.Candidate {
	out := make([]models.Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Count returns the pool size.
func (s *CandidateStore) Count() int {
	return len(s.candidates)
}

// Append adds new candidates, skipping duplicates and empty phrases, and
// persists the pool. Returns the number actually added.
func (s *CandidateStore) Append(candidates []models.Candidate) (int, error) {
	added := 0
	for _, c := range candidates {
		norm := models.NormalizePhrase(c.Phrase)
		if norm == "" || s.index[norm] {
			continue
		}
		s.candidates = append(s.candidates, c)
		s.index[norm] = true
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := writeJSONAtomic(s.path, s.candidates); err != nil {
		return added, err
	}
	return added, nil
}
