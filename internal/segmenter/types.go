// Package segmenter splits unspaced Thai (and mixed Thai/Latin) text into
// tokens. Concrete strategies sit behind one Strategy interface and are
// orchestrated by Chain, which tries them in configured priority order with
// a per-strategy timeout.
package segmenter

import (
	"context"

	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
)

// Token is one segment of the source text. Start and End are byte offsets;
// Text is always exactly text[Start:End]. Tokens of one result are
// contiguous, non-overlapping, and cover the input completely.
type Token struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Compound   bool    `json:"is_compound"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"-"`
}

// Options select per-call behavior of the chain.
type Options struct {
	// StrategyOverride promotes the named strategy to the front of the
	// chain for this call. The rest of the chain stays as fallback.
	StrategyOverride string
	// Domain biases dictionary tie-breaks toward the named domain.
	Domain string
}

// Strategy is one black-box segmentation approach. Implementations are pure
// functions of (text, generation, domain): they must not mutate shared
// state, and they must honor ctx cancellation. domain biases dictionary
// tie-breaks and may be empty.
type Strategy interface {
	Name() string
	Segment(ctx context.Context, text string, gen *dictionary.Generation, domain string) ([]Token, error)
}
