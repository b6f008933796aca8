package segmenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/pkg/config"
	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
	"github.com/kasemsan-k/thai-search-core/pkg/metrics"
	"github.com/kasemsan-k/thai-search-core/pkg/resilience"
)

// chainEntry pairs a strategy with its configured timeout.
type chainEntry struct {
	strategy Strategy
	timeout  time.Duration
}

// Chain tries strategies in configured priority order. A strategy that
// errors or exceeds its timeout is abandoned (its partial work discarded)
// and the next one is tried; only when every strategy has failed does the
// chain surface a segmentation failure.
type Chain struct {
	entries []chainEntry
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewChain builds the chain from configuration. Known strategy names are
// "maxmatch", "cluster", and "remote".
func NewChain(cfg config.SegmenterConfig, m *metrics.Metrics) (*Chain, error) {
	if len(cfg.Chain) == 0 {
		return nil, fmt.Errorf("segmenter chain is empty")
	}
	entries := make([]chainEntry, 0, len(cfg.Chain))
	for _, sc := range cfg.Chain {
		var strategy Strategy
		switch sc.Name {
		case "maxmatch":
			strategy = NewMaxMatch()
		case "cluster":
			strategy = NewCluster()
		case "remote":
			if sc.Endpoint == "" {
				return nil, fmt.Errorf("remote strategy requires an endpoint")
			}
			strategy = NewRemote(sc.Endpoint, sc.Timeout)
		default:
			return nil, fmt.Errorf("unknown segmentation strategy %q", sc.Name)
		}
		entries = append(entries, chainEntry{strategy: strategy, timeout: sc.Timeout})
	}
	return &Chain{
		entries: entries,
		metrics: m,
		logger:  slog.Default().With("component", "segmenter-chain"),
	}, nil
}

// ID identifies the configured chain for cache keying.
func (c *Chain) ID() string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.strategy.Name()
	}
	return strings.Join(names, ">")
}

// Segment runs the chain and returns the raw tokens plus the name of the
// strategy that produced them.
func (c *Chain) Segment(ctx context.Context, text string, gen *dictionary.Generation, opts Options) ([]Token, string, error) {
	order := c.entries
	if opts.StrategyOverride != "" {
		reordered, err := c.promote(opts.StrategyOverride)
		if err != nil {
			return nil, "", err
		}
		order = reordered
	}

	var lastErr error
	for _, e := range order {
		tokens, err := c.attempt(ctx, e, text, gen, opts.Domain)
		if err == nil {
			return tokens, e.strategy.Name(), nil
		}
		lastErr = err
		if c.metrics != nil {
			c.metrics.StrategyFallbacks.WithLabelValues(e.strategy.Name()).Inc()
		}
		c.logger.Warn("strategy failed, falling through",
			"strategy", e.strategy.Name(),
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", fmt.Errorf("%w: %v", pkgerrors.ErrSegmentationFailed, lastErr)
}

// attempt runs a single strategy under its timeout and validates the
// coverage invariant on its output.
func (c *Chain) attempt(ctx context.Context, e chainEntry, text string, gen *dictionary.Generation, domain string) ([]Token, error) {
	var tokens []Token
	err := resilience.WithTimeout(ctx, e.timeout, e.strategy.Name(), func(ctx context.Context) error {
		var err error
		tokens, err = e.strategy.Segment(ctx, text, gen, domain)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		c.observe(e.strategy.Name(), "timeout")
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStrategyTimeout, err)
	default:
		c.observe(e.strategy.Name(), "error")
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStrategyFailed, err)
	}

	if err := checkCoverage(text, tokens); err != nil {
		c.observe(e.strategy.Name(), "error")
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrStrategyFailed, err)
	}
	c.observe(e.strategy.Name(), "ok")
	return tokens, nil
}

func (c *Chain) observe(strategy, outcome string) {
	if c.metrics != nil {
		c.metrics.StrategyAttempts.WithLabelValues(strategy, outcome).Inc()
	}
}

// promote moves the named strategy to the front, keeping the rest of the
// chain as fallback.
func (c *Chain) promote(name string) ([]chainEntry, error) {
	idx := -1
	for i, e := range c.entries {
		if e.strategy.Name() == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrInvalidInput, 400, "unknown strategy override %q", name)
	}
	reordered := make([]chainEntry, 0, len(c.entries))
	reordered = append(reordered, c.entries[idx])
	reordered = append(reordered, c.entries[:idx]...)
	reordered = append(reordered, c.entries[idx+1:]...)
	return reordered, nil
}

// checkCoverage enforces the partition invariant: tokens are contiguous,
// non-overlapping, and their concatenation reproduces text exactly.
func checkCoverage(text string, tokens []Token) error {
	offset := 0
	for i, t := range tokens {
		if t.Start != offset || t.End <= t.Start || t.End > len(text) {
			return fmt.Errorf("token %d has bad span [%d,%d) at offset %d", i, t.Start, t.End, offset)
		}
		if t.Text != text[t.Start:t.End] {
			return fmt.Errorf("token %d text does not match its span", i)
		}
		offset = t.End
	}
	if offset != len(text) {
		return fmt.Errorf("tokens cover %d of %d bytes", offset, len(text))
	}
	return nil
}
