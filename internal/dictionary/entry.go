// Package dictionary holds curated compound words, synonym groups, and
// abbreviations used to correct segmenter output and expand queries.
// Entries are published as immutable generation snapshots: readers pin a
// generation at call start and a concurrent reload can never produce an
// inconsistent read within one call.
package dictionary

import (
	"fmt"
	"strings"
	"unicode"

	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
)

// DefaultConfidence is assigned to compound matches whose entry declares no
// confidence of its own.
const DefaultConfidence = 0.95

// Entry is one curated compound word. Word and all Variations are treated
// as equivalent surface forms of the same unit.
type Entry struct {
	Word       string   `json:"word"`
	Domain     string   `json:"domain"`
	Variations []string `json:"variations,omitempty"`
	Synonyms   []string `json:"synonyms,omitempty"`
	// Confidence in (0,1]; 0 means the entry declares none and
	// DefaultConfidence applies.
	Confidence float64 `json:"confidence,omitempty"`
}

// MatchConfidence returns the entry's declared confidence, or
// DefaultConfidence when the entry declares none.
func (e *Entry) MatchConfidence() float64 {
	if e.Confidence > 0 {
		return e.Confidence
	}
	return DefaultConfidence
}

// validateSurface checks one surface form (word or variation) against the
// load rules: non-empty, no control characters, and, when requireThai is
// set, at least one Thai codepoint.
func validateSurface(s string, requireThai bool) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: empty word", pkgerrors.ErrDictionaryEntryInvalid)
	}
	hasThai := false
	for _, r := range s {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control character", pkgerrors.ErrDictionaryEntryInvalid, s)
		}
		if isThai(r) {
			hasThai = true
		}
	}
	if requireThai && !hasThai {
		return fmt.Errorf("%w: %q contains no Thai character", pkgerrors.ErrDictionaryEntryInvalid, s)
	}
	return nil
}

// isThai reports whether r falls in the Unicode Thai block.
func isThai(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}
