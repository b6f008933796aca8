// Package ranking converts field weights, match-type boosts, and
// content-type boosts into a final per-document score multiplier. Scoring is
// a pure function over an immutable Config snapshot; updates swap the
// snapshot atomically, so no call ever sees a half-applied config.
package ranking

import (
	"fmt"
	"sync/atomic"

	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
)

// MatchType classifies how closely a query term matched a document field.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchPhrase    MatchType = "phrase"
	MatchTokenized MatchType = "tokenized"
	MatchFuzzy     MatchType = "fuzzy"
)

// matchPrecedence orders match types best-first for best-type selection.
var matchPrecedence = []MatchType{MatchExact, MatchPhrase, MatchTokenized, MatchFuzzy}

// FieldMatch reports that a query matched one document field with the given
// best match type for that field.
type FieldMatch struct {
	Field string    `json:"field"`
	Type  MatchType `json:"type"`
}

// Document is the scoring view of one search hit.
type Document struct {
	ContentType string       `json:"content_type"`
	Matches     []FieldMatch `json:"matches"`
}

// Config is one immutable ranking configuration snapshot.
type Config struct {
	Version           int                   `json:"version" yaml:"version"`
	FieldWeights      map[string]float64    `json:"field_weights" yaml:"fieldWeights"`
	MatchTypeBoosts   map[MatchType]float64 `json:"match_type_boosts" yaml:"matchTypeBoosts"`
	ContentTypeBoosts map[string]float64    `json:"content_type_boosts" yaml:"contentTypeBoosts"`
}

// Validate rejects non-positive weights and boosts.
func (c *Config) Validate() error {
	for field, w := range c.FieldWeights {
		if w <= 0 {
			return fmt.Errorf("%w: field %q has non-positive weight %v", pkgerrors.ErrRankingConfigInvalid, field, w)
		}
	}
	for mt, b := range c.MatchTypeBoosts {
		if b <= 0 {
			return fmt.Errorf("%w: match type %q has non-positive boost %v", pkgerrors.ErrRankingConfigInvalid, mt, b)
		}
	}
	for ct, b := range c.ContentTypeBoosts {
		if b <= 0 {
			return fmt.Errorf("%w: content type %q has non-positive boost %v", pkgerrors.ErrRankingConfigInvalid, ct, b)
		}
	}
	return nil
}

// Score multiplies baseScore by the highest-weighted matched field's weight,
// the boost of the best match type found, and the content-type boost for the
// document's declared type. Missing weights and profiles default to 1.
func Score(baseScore float64, doc Document, cfg *Config) float64 {
	if cfg == nil || len(doc.Matches) == 0 {
		return baseScore
	}

	fieldWeight := 1.0
	haveWeight := false
	for _, m := range doc.Matches {
		if w, ok := cfg.FieldWeights[m.Field]; ok {
			if !haveWeight || w > fieldWeight {
				fieldWeight = w
				haveWeight = true
			}
		}
	}

	matchBoost := 1.0
	if best, ok := bestMatchType(doc.Matches); ok {
		if b, found := cfg.MatchTypeBoosts[best]; found {
			matchBoost = b
		}
	}

	contentBoost := 1.0
	if b, ok := cfg.ContentTypeBoosts[doc.ContentType]; ok {
		contentBoost = b
	}

	return baseScore * fieldWeight * matchBoost * contentBoost
}

// bestMatchType returns the best type present among the matches, best-first
// by exact > phrase > tokenized > fuzzy.
func bestMatchType(matches []FieldMatch) (MatchType, bool) {
	present := make(map[MatchType]bool, len(matches))
	for _, m := range matches {
		present[m.Type] = true
	}
	for _, mt := range matchPrecedence {
		if present[mt] {
			return mt, true
		}
	}
	return "", false
}

// Holder publishes Config snapshots atomically.
type Holder struct {
	current atomic.Pointer[Config]
}

// NewHolder creates a Holder with an initial config; nil starts neutral.
func NewHolder(initial *Config) *Holder {
	h := &Holder{}
	if initial == nil {
		initial = &Config{}
	}
	h.current.Store(initial)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Config {
	return h.current.Load()
}

// Swap validates cfg and publishes it, returning the previous snapshot.
func (h *Holder) Swap(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return h.current.Swap(cfg), nil
}
