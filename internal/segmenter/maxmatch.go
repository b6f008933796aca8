package segmenter

import (
	"context"
	"unicode/utf8"

	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
)

// Confidence levels reported by the built-in strategies.
const (
	confDictionary = 0.90
	confLatin      = 0.85
	confCluster    = 0.50
	confDelimiter  = 1.0
)

// MaxMatch is the fast deterministic strategy: at each position it takes the
// longest dictionary surface, falling back to orthographic clusters for
// out-of-vocabulary runs. Consecutive unknown clusters are grouped into one
// low-confidence token rather than emitted one by one.
type MaxMatch struct{}

// NewMaxMatch creates the maximal-matching strategy.
func NewMaxMatch() *MaxMatch {
	return &MaxMatch{}
}

func (m *MaxMatch) Name() string { return "maxmatch" }

func (m *MaxMatch) Segment(ctx context.Context, text string, gen *dictionary.Generation, domain string) ([]Token, error) {
	tokens := make([]Token, 0, len(text)/9)
	unknownStart := -1

	flushUnknown := func(end int) {
		if unknownStart < 0 {
			return
		}
		tokens = append(tokens, Token{
			Text:       text[unknownStart:end],
			Start:      unknownStart,
			End:        end,
			Confidence: confCluster,
			Strategy:   m.Name(),
		})
		unknownStart = -1
	}

	emit := func(start, end int, confidence float64) {
		flushUnknown(start)
		tokens = append(tokens, Token{
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Confidence: confidence,
			Strategy:   m.Name(),
		})
	}

	i := 0
	for i < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := rune(text[i])
		if r < 0x80 {
			switch {
			case isSpace(r):
				end := scanRun(text, i, isSpace)
				emit(i, end, confDelimiter)
				i = end
				continue
			case isLatinOrDigit(r):
				end := scanRun(text, i, isLatinOrDigit)
				emit(i, end, confLatin)
				i = end
				continue
			default:
				end := scanRun(text, i, isOther)
				emit(i, end, confDelimiter)
				i = end
				continue
			}
		}

		if length, entry, ok := gen.LongestMatchAt(text, i, domain); ok {
			emit(i, i+length, entry.MatchConfidence())
			i += length
			continue
		}

		rr, _ := utf8.DecodeRuneInString(text[i:])
		if !isThai(rr) {
			if isSpace(rr) {
				end := scanRun(text, i, isSpace)
				emit(i, end, confDelimiter)
				i = end
				continue
			}
			if isLatinOrDigit(rr) {
				end := scanRun(text, i, isLatinOrDigit)
				emit(i, end, confLatin)
				i = end
				continue
			}
			end := scanRun(text, i, isOther)
			emit(i, end, confDelimiter)
			i = end
			continue
		}

		// Out-of-vocabulary Thai: consume one cluster and keep accumulating
		// until the dictionary matches again or the script run ends.
		if unknownStart < 0 {
			unknownStart = i
		}
		i = nextCluster(text, i)
	}
	flushUnknown(len(text))
	return tokens, nil
}
