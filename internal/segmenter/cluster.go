package segmenter

import (
	"context"

	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
)

// Cluster is the dictionary-free fallback strategy: it emits one token per
// Thai orthographic cluster and one per Latin/digit, whitespace, or symbol
// run. Output is deliberately fine-grained; the boundary merger re-joins
// spans the dictionary knows about.
type Cluster struct{}

// NewCluster creates the rule-based cluster strategy.
func NewCluster() *Cluster {
	return &Cluster{}
}

func (c *Cluster) Name() string { return "cluster" }

func (c *Cluster) Segment(ctx context.Context, text string, gen *dictionary.Generation, domain string) ([]Token, error) {
	tokens := make([]Token, 0, len(text)/3)
	emit := func(start, end int, confidence float64) {
		tokens = append(tokens, Token{
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Confidence: confidence,
			Strategy:   c.Name(),
		})
	}

	i := 0
	for i < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, _ := firstRuneAt(text, i)
		switch {
		case isSpace(r):
			end := scanRun(text, i, isSpace)
			emit(i, end, confDelimiter)
			i = end
		case isLatinOrDigit(r):
			end := scanRun(text, i, isLatinOrDigit)
			emit(i, end, confLatin)
			i = end
		case isThai(r):
			end := nextCluster(text, i)
			emit(i, end, confCluster)
			i = end
		default:
			end := scanRun(text, i, isOther)
			emit(i, end, confDelimiter)
			i = end
		}
	}
	return tokens, nil
}
