// Package engine wires the segmenter chain, boundary merger, dictionary
// store, and result cache into the tokenize call: validate, cache lookup,
// segment on miss, merge, store, return.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/kasemsan-k/thai-search-core/internal/cache"
	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/internal/merger"
	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
	"github.com/kasemsan-k/thai-search-core/pkg/config"
	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
	"github.com/kasemsan-k/thai-search-core/pkg/metrics"
)

// Result is one immutable tokenization outcome.
type Result struct {
	Text       string            `json:"original_text"`
	Tokens     []segmenter.Token `json:"tokens"`
	Strategy   string            `json:"strategy_used"`
	Micros     int64             `json:"processing_time_micros"`
	Generation uint64            `json:"dictionary_generation"`
}

// Engine is safe for concurrent use. Every call pins the dictionary
// generation current at its start and uses it throughout, so a concurrent
// reload never produces an inconsistent read within one call.
type Engine struct {
	chain        *segmenter.Chain
	store        *dictionary.Store
	cache        *cache.Cache[*Result]
	maxTextBytes int
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New creates an Engine. resultCache may be nil to disable caching.
func New(cfg config.SegmenterConfig, chain *segmenter.Chain, store *dictionary.Store, resultCache *cache.Cache[*Result], m *metrics.Metrics) *Engine {
	maxBytes := cfg.MaxTextBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Engine{
		chain:        chain,
		store:        store,
		cache:        resultCache,
		maxTextBytes: maxBytes,
		metrics:      m,
		logger:       slog.Default().With("component", "engine"),
	}
}

// Tokenize segments text and corrects boundaries against the current
// dictionary generation.
func (e *Engine) Tokenize(ctx context.Context, text string, opts segmenter.Options) (*Result, error) {
	return e.TokenizeWith(ctx, text, opts, e.store.Generation())
}

// TokenizeWith is Tokenize against a caller-pinned generation. The query
// processor uses it so tokens and synonym lookups come from one snapshot.
func (e *Engine) TokenizeWith(ctx context.Context, text string, opts segmenter.Options, gen *dictionary.Generation) (*Result, error) {
	start := time.Now()
	if text == "" {
		e.count("invalid_input")
		return nil, pkgerrors.New(pkgerrors.ErrInvalidInput, 400, "text is empty")
	}
	if len(text) > e.maxTextBytes {
		e.count("invalid_input")
		return nil, pkgerrors.Newf(pkgerrors.ErrInvalidInput, 400, "text exceeds %d bytes", e.maxTextBytes)
	}

	if e.cache == nil {
		result, err := e.compute(ctx, text, gen, opts, start)
		e.observe(result, err, "disabled", start)
		return result, err
	}

	key := cache.Key{
		Text:       text,
		ChainID:    e.chain.ID(),
		Domain:     opts.Domain,
		Override:   opts.StrategyOverride,
		Generation: gen.Version,
	}
	result, hit, err := e.cache.GetOrCompute(ctx, key, func() (*Result, error) {
		return e.compute(ctx, text, gen, opts, start)
	})
	status := "miss"
	if hit {
		status = "hit"
	}
	e.observe(result, err, status, start)
	return result, err
}

func (e *Engine) compute(ctx context.Context, text string, gen *dictionary.Generation, opts segmenter.Options, start time.Time) (*Result, error) {
	raw, strategy, err := e.chain.Segment(ctx, text, gen, opts)
	if err != nil {
		return nil, err
	}
	merged := merger.Merge(text, raw, gen, opts.Domain)
	return &Result{
		Text:       text,
		Tokens:     merged,
		Strategy:   strategy,
		Micros:     time.Since(start).Microseconds(),
		Generation: gen.Version,
	}, nil
}

func (e *Engine) observe(result *Result, err error, cacheStatus string, start time.Time) {
	if e.metrics == nil {
		return
	}
	if err != nil {
		e.count("failure")
		return
	}
	e.count("ok")
	e.metrics.TokenizeLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	e.metrics.TokensPerCall.Observe(float64(len(result.Tokens)))
}

func (e *Engine) count(outcome string) {
	if e.metrics != nil {
		e.metrics.TokenizeTotal.WithLabelValues(outcome).Inc()
	}
}

// Dictionary exposes the store for reloads and health checks.
func (e *Engine) Dictionary() *dictionary.Store {
	return e.store
}

// Cache exposes the result cache; nil when caching is disabled.
func (e *Engine) Cache() *cache.Cache[*Result] {
	return e.cache
}

// ChainID identifies the configured strategy chain.
func (e *Engine) ChainID() string {
	return e.chain.ID()
}
