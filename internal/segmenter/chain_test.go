package segmenter

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/pkg/config"
	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
)

// stubStrategy returns fixed tokens or a fixed error, optionally blocking
// until the context is done.
type stubStrategy struct {
	name   string
	tokens []Token
	err    error
	block  bool
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Segment(ctx context.Context, text string, gen *dictionary.Generation, domain string) ([]Token, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.tokens != nil {
		return s.tokens, nil
	}
	return []Token{{Text: text, Start: 0, End: len(text), Confidence: 1, Strategy: s.name}}, nil
}

func testChain(strategies ...*stubStrategy) *Chain {
	entries := make([]chainEntry, len(strategies))
	for i, s := range strategies {
		entries[i] = chainEntry{strategy: s, timeout: 50 * time.Millisecond}
	}
	return &Chain{entries: entries, logger: slog.Default()}
}

func TestNewChain(t *testing.T) {
	t.Run("builds known strategies", func(t *testing.T) {
		chain, err := NewChain(config.SegmenterConfig{Chain: []config.StrategyConfig{
			{Name: "maxmatch", Timeout: 100 * time.Millisecond},
			{Name: "cluster", Timeout: 100 * time.Millisecond},
		}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "maxmatch>cluster", chain.ID())
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := NewChain(config.SegmenterConfig{}, nil)
		assert.Error(t, err)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := NewChain(config.SegmenterConfig{Chain: []config.StrategyConfig{
			{Name: "neural", Timeout: time.Second},
		}}, nil)
		assert.Error(t, err)
	})

	t.Run("remote requires endpoint", func(t *testing.T) {
		_, err := NewChain(config.SegmenterConfig{Chain: []config.StrategyConfig{
			{Name: "remote", Timeout: time.Second},
		}}, nil)
		assert.Error(t, err)
	})
}

func TestChainFallback(t *testing.T) {
	text := "ทดสอบ"

	t.Run("first success wins", func(t *testing.T) {
		first := &stubStrategy{name: "first"}
		second := &stubStrategy{name: "second"}
		tokens, used, err := testChain(first, second).Segment(context.Background(), text, nil, Options{})
		require.NoError(t, err)
		assert.Equal(t, "first", used)
		assert.Len(t, tokens, 1)
		assert.Equal(t, 0, second.calls)
	})

	t.Run("error falls through to next", func(t *testing.T) {
		first := &stubStrategy{name: "first", err: errors.New("boom")}
		second := &stubStrategy{name: "second"}
		_, used, err := testChain(first, second).Segment(context.Background(), text, nil, Options{})
		require.NoError(t, err)
		assert.Equal(t, "second", used)
		assert.Equal(t, 1, first.calls)
	})

	t.Run("timeout falls through to next", func(t *testing.T) {
		slow := &stubStrategy{name: "slow", block: true}
		fast := &stubStrategy{name: "fast"}
		tokens, used, err := testChain(slow, fast).Segment(context.Background(), text, nil, Options{})
		require.NoError(t, err)
		assert.Equal(t, "fast", used)
		assert.Len(t, tokens, 1)
	})

	t.Run("partial coverage falls through to next", func(t *testing.T) {
		// Tokens that stop short of the full text violate the partition
		// invariant and must be rejected.
		partial := &stubStrategy{name: "partial", tokens: []Token{
			{Text: text[:3], Start: 0, End: 3},
		}}
		full := &stubStrategy{name: "full"}
		_, used, err := testChain(partial, full).Segment(context.Background(), text, nil, Options{})
		require.NoError(t, err)
		assert.Equal(t, "full", used)
	})

	t.Run("all strategies fail", func(t *testing.T) {
		first := &stubStrategy{name: "first", err: errors.New("boom")}
		second := &stubStrategy{name: "second", err: errors.New("kaput")}
		_, _, err := testChain(first, second).Segment(context.Background(), text, nil, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrSegmentationFailed)
	})
}

func TestChainAttemptClassification(t *testing.T) {
	c := testChain()

	t.Run("timeout", func(t *testing.T) {
		slow := chainEntry{strategy: &stubStrategy{name: "slow", block: true}, timeout: 10 * time.Millisecond}
		_, err := c.attempt(context.Background(), slow, "ทดสอบ", nil, "")
		assert.ErrorIs(t, err, pkgerrors.ErrStrategyTimeout)
	})

	t.Run("failure", func(t *testing.T) {
		bad := chainEntry{strategy: &stubStrategy{name: "bad", err: errors.New("boom")}, timeout: 10 * time.Millisecond}
		_, err := c.attempt(context.Background(), bad, "ทดสอบ", nil, "")
		assert.ErrorIs(t, err, pkgerrors.ErrStrategyFailed)
	})
}

func TestChainStrategyOverride(t *testing.T) {
	first := &stubStrategy{name: "first"}
	second := &stubStrategy{name: "second"}
	chain := testChain(first, second)

	t.Run("override promotes to front", func(t *testing.T) {
		_, used, err := chain.Segment(context.Background(), "ทดสอบ", nil, Options{StrategyOverride: "second"})
		require.NoError(t, err)
		assert.Equal(t, "second", used)
	})

	t.Run("rest of chain stays as fallback", func(t *testing.T) {
		failing := &stubStrategy{name: "failing", err: errors.New("boom")}
		ok := &stubStrategy{name: "ok"}
		c := testChain(ok, failing)
		_, used, err := c.Segment(context.Background(), "ทดสอบ", nil, Options{StrategyOverride: "failing"})
		require.NoError(t, err)
		assert.Equal(t, "ok", used)
	})

	t.Run("unknown override is invalid input", func(t *testing.T) {
		_, _, err := chain.Segment(context.Background(), "ทดสอบ", nil, Options{StrategyOverride: "neural"})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestCheckCoverage(t *testing.T) {
	text := "กข cd"

	t.Run("valid partition", func(t *testing.T) {
		tokens := []Token{
			{Text: "กข", Start: 0, End: 6},
			{Text: " ", Start: 6, End: 7},
			{Text: "cd", Start: 7, End: 9},
		}
		assert.NoError(t, checkCoverage(text, tokens))
	})

	t.Run("gap", func(t *testing.T) {
		tokens := []Token{
			{Text: "กข", Start: 0, End: 6},
			{Text: "cd", Start: 7, End: 9},
		}
		assert.Error(t, checkCoverage(text, tokens))
	})

	t.Run("overlap", func(t *testing.T) {
		tokens := []Token{
			{Text: "กข", Start: 0, End: 6},
			{Text: " c", Start: 5, End: 8},
		}
		assert.Error(t, checkCoverage(text, tokens))
	})

	t.Run("text mismatch", func(t *testing.T) {
		tokens := []Token{{Text: "xx", Start: 0, End: 2}}
		assert.Error(t, checkCoverage(text, tokens))
	})

	t.Run("incomplete", func(t *testing.T) {
		tokens := []Token{{Text: "กข", Start: 0, End: 6}}
		assert.Error(t, checkCoverage(text, tokens))
	})
}
