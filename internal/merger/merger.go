// Package merger corrects raw segmenter output against the compound
// dictionary. It only ever extends boundaries: a dictionary match shorter
// than what a strategy produced is never applied, so a strategy's own
// informed decision is never fragmented.
package merger

import (
	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
)

// Merge scans the raw tokens left to right. At each token start it asks the
// dictionary for the longest entry that spans at least the raw token and
// ends exactly on a raw token boundary; an entry dying inside a token is
// skipped in favor of the next-longest aligned one. When a match is found,
// the covered tokens are replaced by a single compound token carrying the
// entry's confidence. Everything else passes through unchanged. The output
// covers the input text exactly as the raw tokens did.
func Merge(text string, raw []segmenter.Token, gen *dictionary.Generation, domain string) []segmenter.Token {
	if gen == nil || gen.EntryCount() == 0 || len(raw) == 0 {
		return raw
	}

	out := make([]segmenter.Token, 0, len(raw))
	for i := 0; i < len(raw); {
		t := raw[i]
		aligned := func(length int) bool {
			_, ok := spanEnd(raw, i, t.Start+length)
			return ok
		}
		length, entry, ok := gen.MatchSpanning(text, t.Start, t.End-t.Start, domain, aligned)
		if !ok {
			out = append(out, t)
			i++
			continue
		}

		end := t.Start + length
		last, _ := spanEnd(raw, i, end)

		out = append(out, segmenter.Token{
			Text:       text[t.Start:end],
			Start:      t.Start,
			End:        end,
			Compound:   true,
			Confidence: entry.MatchConfidence(),
			Strategy:   t.Strategy,
		})
		i = last + 1
	}
	return out
}

// spanEnd returns the index of the raw token whose End equals end, starting
// the search at from. aligned is false when end falls inside a token.
func spanEnd(raw []segmenter.Token, from, end int) (last int, aligned bool) {
	for j := from; j < len(raw); j++ {
		if raw[j].End == end {
			return j, true
		}
		if raw[j].End > end {
			return 0, false
		}
	}
	return 0, false
}
