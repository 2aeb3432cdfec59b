package models

import "time"

// Label is an annotation category assigned by a human (or, for MAYBE,
// feeding the suggestion engine).
type Label string

const (
	// LabelGuest marks a phrase as a podcast guest name.
	LabelGuest Label = "GUEST"
	// LabelHost marks a phrase as a host name.
	LabelHost Label = "HOST"
	// LabelOther marks a phrase as not a person name of interest.
	LabelOther Label = "OTHER"
	// LabelMaybe marks a phrase the annotator is uncertain about.
	// Maybe-labeled phrases accumulate and drive suggestion generation.
	LabelMaybe Label = "MAYBE"
)

// AllLabels lists the labels an annotator can assign.
var AllLabels = []Label{LabelGuest, LabelHost, LabelOther, LabelMaybe}

// Valid reports whether l is a known label.
func (l Label) Valid() bool {
	switch l {
	case LabelGuest, LabelHost, LabelOther, LabelMaybe:
		return true
	}
	return false
}

// UncertainExample is a phrase the annotator marked MAYBE. Examples are
// append-only: once recorded they are never mutated or removed, and the
// retriever always scores against the full history.
type UncertainExample struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Label     Label     `json:"label"` // always LabelMaybe
	Timestamp time.Time `json:"timestamp"`
}

// Candidate is an unlabeled phrase from the candidate pool, read-only from
// the engine's perspective.
type Candidate struct {
	Phrase string `json:"phrase"`
	Source string `json:"source"`
}

// Suggestion is a candidate the engine proposed for review based on
// similarity to accumulated uncertain examples.
type Suggestion struct {
	Phrase            string    `json:"phrase"`
	Source            string    `json:"source"`
	SimilarityScore   float64   `json:"similarity_score"`
	SuggestedByEngine bool      `json:"suggested_by_engine"`
	CycleID           string    `json:"cycle_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	// ConsumedLabel is set when a human later labels the suggested phrase.
	// The suggestion record itself is kept; downstream consumers use this
	// to see which suggestions were acted upon.
	ConsumedLabel Label `json:"consumed_label,omitempty"`
}

// LabelRecord is a persisted human annotation.
type LabelRecord struct {
	Text      string    `json:"text"`
	Label     Label     `json:"label"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
