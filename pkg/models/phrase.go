// Package models contains domain records for guestradar.
package models

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ErrEmptyPhrase indicates a record whose text is empty after normalization.
// Stores reject such records at the boundary instead of persisting them.
var ErrEmptyPhrase = errors.New("empty phrase")

var foldCaser = cases.Fold()

// NormalizePhrase is the single normalization point for phrase comparison:
// whitespace is trimmed and collapsed, case is Unicode-folded. Every dedup
// check (label store, suggestion store, candidate import) compares normalized
// forms, never raw text.
func NormalizePhrase(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return foldCaser.String(strings.Join(fields, " "))
}

// ValidPhrase reports whether s survives normalization.
func ValidPhrase(s string) bool {
	return NormalizePhrase(s) != ""
}
