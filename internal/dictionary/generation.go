package dictionary

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// surfaceMatch is one indexed surface form (a word or a variation) pointing
// back at its entry. order is the entry's load position, used for the stable
// tie-break between equal-length matches.
type surfaceMatch struct {
	surface string
	entry   *Entry
	order   int
}

// Generation is an immutable snapshot of the dictionary. All lookups are
// safe for concurrent use; mutation always builds a new Generation.
type Generation struct {
	Version uint64

	preferDomainTie bool
	entries         []*Entry
	byFirstRune     map[rune][]surfaceMatch
	synonyms        map[string][]string
	abbreviations   map[string]string
	domainCounts    map[string]int
	maxSurfaceBytes int
}

// newGeneration indexes the given entries, synonym groups, and abbreviations
// into a snapshot. Entries must already be validated and deduplicated; their
// slice order is the load order.
func newGeneration(version uint64, entries []*Entry, synonyms map[string][]string, abbreviations map[string]string, preferDomainTie bool) *Generation {
	g := &Generation{
		Version:         version,
		preferDomainTie: preferDomainTie,
		entries:         entries,
		byFirstRune:     make(map[rune][]surfaceMatch),
		synonyms:        synonyms,
		abbreviations:   abbreviations,
		domainCounts:    make(map[string]int),
	}
	if g.synonyms == nil {
		g.synonyms = map[string][]string{}
	}
	if g.abbreviations == nil {
		g.abbreviations = map[string]string{}
	}
	for order, e := range entries {
		g.domainCounts[e.Domain]++
		g.indexSurface(e.Word, e, order)
		for _, v := range e.Variations {
			g.indexSurface(v, e, order)
		}
	}
	// Longest surface first; equal lengths stay in load order so the
	// tie-break is deterministic.
	for r := range g.byFirstRune {
		list := g.byFirstRune[r]
		sort.SliceStable(list, func(i, j int) bool {
			return len(list[i].surface) > len(list[j].surface)
		})
	}
	return g
}

func (g *Generation) indexSurface(surface string, e *Entry, order int) {
	if surface == "" {
		return
	}
	first, _ := utf8.DecodeRuneInString(surface)
	g.byFirstRune[first] = append(g.byFirstRune[first], surfaceMatch{
		surface: surface,
		entry:   e,
		order:   order,
	})
	if len(surface) > g.maxSurfaceBytes {
		g.maxSurfaceBytes = len(surface)
	}
}

// LongestMatchAt returns the longest dictionary surface starting at byte
// offset in text, together with its entry. When several entries share the
// winning surface, the one from the supplied domain wins if domain
// preference is enabled; otherwise the first-loaded entry wins.
func (g *Generation) LongestMatchAt(text string, offset int, domain string) (length int, entry *Entry, ok bool) {
	return g.MatchSpanning(text, offset, 0, domain, nil)
}

// MatchSpanning returns the longest entry whose surface starts at offset and
// spans at least minLen bytes. A non-nil accept filters surfaces by length:
// rejected surfaces are skipped and the next-longest candidate at the same
// offset is tried, so a caller can restrict matches to ones it can apply.
// Equal-length ties resolve the same way as LongestMatchAt.
func (g *Generation) MatchSpanning(text string, offset, minLen int, domain string, accept func(length int) bool) (length int, entry *Entry, ok bool) {
	rest := text[offset:]
	if rest == "" {
		return 0, nil, false
	}
	first, _ := utf8.DecodeRuneInString(rest)

	bestLen := 0
	var best *Entry
	for _, c := range g.byFirstRune[first] {
		// Surfaces are sorted longest first, so falling below either bound
		// ends the scan.
		if len(c.surface) < minLen {
			break
		}
		if bestLen > 0 && len(c.surface) < bestLen {
			break
		}
		if !strings.HasPrefix(rest, c.surface) {
			continue
		}
		if bestLen == 0 {
			if accept != nil && !accept(len(c.surface)) {
				continue
			}
			bestLen = len(c.surface)
			best = c.entry
			if !g.preferDomainTie || domain == "" || c.entry.Domain == domain {
				break
			}
			continue
		}
		// Same length as the current best: only a domain-preferred entry
		// can displace the first-loaded one.
		if g.preferDomainTie && domain != "" && c.entry.Domain == domain {
			best = c.entry
			break
		}
	}
	if bestLen == 0 {
		return 0, nil, false
	}
	return bestLen, best, true
}

// Lookup returns the first-loaded entry whose word or variation equals
// surface exactly.
func (g *Generation) Lookup(surface string) (*Entry, bool) {
	length, entry, ok := g.LongestMatchAt(surface, 0, "")
	if !ok || length != len(surface) {
		return nil, false
	}
	return entry, true
}

// Synonyms returns the ordered equivalent terms for term: the term's synonym
// group, the synonyms declared by a matching entry, and any abbreviation
// expansion, in that order, without duplicates.
func (g *Generation) Synonyms(term string) []string {
	var out []string
	seen := map[string]struct{}{term: {}}
	appendAll := func(values ...string) {
		for _, v := range values {
			if _, dup := seen[v]; dup || v == "" {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	appendAll(g.synonyms[term]...)
	if e, ok := g.Lookup(term); ok {
		appendAll(e.Synonyms...)
	}
	if full, ok := g.abbreviations[term]; ok {
		appendAll(full)
	}
	return out
}

// EntryCount returns the number of loaded entries.
func (g *Generation) EntryCount() int {
	return len(g.entries)
}

// DomainCounts returns entry counts per domain. The returned map is a copy.
func (g *Generation) DomainCounts() map[string]int {
	out := make(map[string]int, len(g.domainCounts))
	for d, n := range g.domainCounts {
		out[d] = n
	}
	return out
}

// MaxSurfaceBytes returns the byte length of the longest indexed surface.
func (g *Generation) MaxSurfaceBytes() int {
	return g.maxSurfaceBytes
}
