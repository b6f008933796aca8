// Package queryproc turns a raw user query into an expanded set of
// candidate queries plus a detected intent and modifier tags. Queries are
// tokenized with the same chain and merger as document text, so a compound
// that survives indexing also survives querying.
package queryproc

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/internal/engine"
	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
	"github.com/kasemsan-k/thai-search-core/pkg/config"
	"github.com/kasemsan-k/thai-search-core/pkg/metrics"
)

// Candidate is one query variant with the confidence of the substitution
// that produced it. The original query always has confidence 1.
type Candidate struct {
	Query      string  `json:"query"`
	Confidence float64 `json:"confidence"`
}

// Intent tags the query's likely purpose.
type Intent struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Expansion is the full result of processing one query.
type Expansion struct {
	Original   string      `json:"original_query"`
	Candidates []Candidate `json:"candidate_queries"`
	Intent     Intent      `json:"intent"`
	Modifiers  []string    `json:"modifiers"`
	Generation uint64      `json:"dictionary_generation"`
}

// Processor expands queries against the dictionary store.
type Processor struct {
	engine        *engine.Engine
	store         *dictionary.Store
	stopWords     map[string]struct{}
	maxCandidates int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// New creates a Processor.
func New(cfg config.QueryConfig, eng *engine.Engine, store *dictionary.Store, m *metrics.Metrics) *Processor {
	stop := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 8
	}
	return &Processor{
		engine:        eng,
		store:         store,
		stopWords:     stop,
		maxCandidates: maxCandidates,
		metrics:       m,
		logger:        slog.Default().With("component", "query-processor"),
	}
}

// Expand tokenizes the query, strips stop words, generates synonym and
// variation candidates up to the configured cap, detects intent, and
// records modifier cues. If tokenization fails, the expansion degrades to
// the original query alone with intent "unknown".
func (p *Processor) Expand(ctx context.Context, query string, opts segmenter.Options) *Expansion {
	gen := p.store.Generation()
	exp := &Expansion{
		Original:   query,
		Candidates: []Candidate{{Query: query, Confidence: 1}},
		Intent:     Intent{Type: "unknown"},
		Modifiers:  []string{},
		Generation: gen.Version,
	}

	result, err := p.engine.TokenizeWith(ctx, query, opts, gen)
	if err != nil {
		p.logger.Warn("query tokenization failed, returning unexpanded query", "error", err)
		p.observe(exp)
		return exp
	}

	terms := p.contentTokens(result.Tokens)
	exp.Candidates = p.buildCandidates(query, terms, gen)
	exp.Intent = detectIntent(query)
	exp.Modifiers = detectModifiers(query, terms)
	p.observe(exp)
	return exp
}

// contentTokens drops whitespace, punctuation, and configured stop words.
func (p *Processor) contentTokens(tokens []segmenter.Token) []segmenter.Token {
	out := make([]segmenter.Token, 0, len(tokens))
	for _, t := range tokens {
		trimmed := strings.TrimSpace(t.Text)
		if trimmed == "" {
			continue
		}
		if _, stop := p.stopWords[strings.ToLower(trimmed)]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// buildCandidates produces one candidate per synonym/variation substitution,
// capped at maxCandidates with the original query first and the
// highest-confidence substitutions next. Output never contains duplicates.
func (p *Processor) buildCandidates(query string, terms []segmenter.Token, gen *dictionary.Generation) []Candidate {
	seen := map[string]struct{}{query: {}}
	candidates := []Candidate{{Query: query, Confidence: 1}}
	var substitutions []Candidate

	for _, t := range terms {
		for _, alt := range gen.Synonyms(t.Text) {
			candidate := query[:t.Start] + alt + query[t.End:]
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			substitutions = append(substitutions, Candidate{
				Query:      candidate,
				Confidence: t.Confidence,
			})
		}
	}

	sort.SliceStable(substitutions, func(i, j int) bool {
		return substitutions[i].Confidence > substitutions[j].Confidence
	})
	for _, c := range substitutions {
		if len(candidates) >= p.maxCandidates {
			break
		}
		candidates = append(candidates, c)
	}
	return candidates
}

func (p *Processor) observe(exp *Expansion) {
	if p.metrics == nil {
		return
	}
	p.metrics.ExpandTotal.WithLabelValues(exp.Intent.Type).Inc()
	p.metrics.CandidatesPerQuery.Observe(float64(len(exp.Candidates)))
}
