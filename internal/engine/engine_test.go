package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasemsan-k/thai-search-core/internal/cache"
	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
	"github.com/kasemsan-k/thai-search-core/pkg/config"
	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
)

type staticSource struct {
	domains map[string]dictionary.DomainFile
}

func (s *staticSource) Fetch(ctx context.Context) (map[string]dictionary.DomainFile, error) {
	return s.domains, nil
}

func (s *staticSource) Name() string { return "static" }

func testEngine(t *testing.T, withCache bool, words ...string) (*Engine, *dictionary.Store) {
	t.Helper()
	compounds := make([]dictionary.Compound, len(words))
	for i, w := range words {
		compounds[i] = dictionary.Compound{Word: w}
	}
	store := dictionary.NewStore(
		config.DictionaryConfig{RequireThaiScript: true},
		&staticSource{domains: map[string]dictionary.DomainFile{"general": {Compounds: compounds}}},
		nil,
	)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	segCfg := config.SegmenterConfig{
		Chain: []config.StrategyConfig{
			{Name: "maxmatch", Timeout: 200 * time.Millisecond},
			{Name: "cluster", Timeout: 200 * time.Millisecond},
		},
		MaxTextBytes: 1024,
	}
	chain, err := segmenter.NewChain(segCfg, nil)
	require.NoError(t, err)

	var resultCache *cache.Cache[*Result]
	if withCache {
		resultCache = cache.New[*Result](config.CacheConfig{Capacity: 64, TTL: time.Minute}, nil, nil)
	}
	return New(segCfg, chain, store, resultCache, nil), store
}

func TestTokenize(t *testing.T) {
	eng, _ := testEngine(t, false, "สาหร่ายวากาเมะ")

	result, err := eng.Tokenize(context.Background(), "กินสาหร่ายวากาเมะ", segmenter.Options{})
	require.NoError(t, err)
	assert.Equal(t, "กินสาหร่ายวากาเมะ", result.Text)
	assert.Equal(t, "maxmatch", result.Strategy)
	assert.Equal(t, uint64(1), result.Generation)

	require.Len(t, result.Tokens, 2)
	assert.Equal(t, "กิน", result.Tokens[0].Text)
	assert.Equal(t, "สาหร่ายวากาเมะ", result.Tokens[1].Text)
	assert.True(t, result.Tokens[1].Compound)
}

func TestTokenizeInvalidInput(t *testing.T) {
	eng, _ := testEngine(t, false)

	t.Run("empty text", func(t *testing.T) {
		_, err := eng.Tokenize(context.Background(), "", segmenter.Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

		var appErr *pkgerrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.StatusCode)
	})

	t.Run("oversized text", func(t *testing.T) {
		big := make([]byte, 2048)
		for i := range big {
			big[i] = 'a'
		}
		_, err := eng.Tokenize(context.Background(), string(big), segmenter.Options{})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestTokenizeDeterministic(t *testing.T) {
	eng, _ := testEngine(t, false, "สาหร่ายวากาเมะ", "ต้มยำกุ้ง")
	text := "สั่งต้มยำกุ้งกับสาหร่ายวากาเมะ 2 ที่"

	first, err := eng.Tokenize(context.Background(), text, segmenter.Options{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := eng.Tokenize(context.Background(), text, segmenter.Options{})
		require.NoError(t, err)
		assert.Equal(t, first.Tokens, again.Tokens)
	}
}

func TestTokenizeUsesCache(t *testing.T) {
	eng, _ := testEngine(t, true, "สาหร่ายวากาเมะ")
	ctx := context.Background()
	text := "สาหร่ายวากาเมะ"

	first, err := eng.Tokenize(ctx, text, segmenter.Options{})
	require.NoError(t, err)

	second, err := eng.Tokenize(ctx, text, segmenter.Options{})
	require.NoError(t, err)
	assert.Same(t, first, second)

	hits, misses := eng.Cache().Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestTokenizeCacheMissAfterReload(t *testing.T) {
	eng, store := testEngine(t, true, "สาหร่ายวากาเมะ")
	ctx := context.Background()
	text := "สาหร่ายวากาเมะ"

	first, err := eng.Tokenize(ctx, text, segmenter.Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Generation)

	_, err = store.Reload(ctx)
	require.NoError(t, err)

	second, err := eng.Tokenize(ctx, text, segmenter.Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Generation)
	assert.NotSame(t, first, second)
}

func TestTokenizeStrategyOverride(t *testing.T) {
	eng, _ := testEngine(t, false, "สาหร่ายวากาเมะ")

	result, err := eng.Tokenize(context.Background(), "สาหร่ายวากาเมะ", segmenter.Options{StrategyOverride: "cluster"})
	require.NoError(t, err)
	assert.Equal(t, "cluster", result.Strategy)
	// The merger still rejoins what the dictionary knows.
	require.Len(t, result.Tokens, 1)
	assert.True(t, result.Tokens[0].Compound)
}

func TestTokenizeWithPinnedGeneration(t *testing.T) {
	eng, store := testEngine(t, false, "สาหร่ายวากาเมะ")
	ctx := context.Background()

	pinned := store.Generation()
	_, err := store.Reload(ctx)
	require.NoError(t, err)

	result, err := eng.TokenizeWith(ctx, "สาหร่ายวากาเมะ", segmenter.Options{}, pinned)
	require.NoError(t, err)
	assert.Equal(t, pinned.Version, result.Generation)
}

func TestBatchTokenizer(t *testing.T) {
	eng, _ := testEngine(t, false, "สาหร่ายวากาเมะ")
	batch, err := NewBatchTokenizer(eng, 4)
	require.NoError(t, err)
	defer batch.Close()

	texts := []string{"สาหร่ายวากาเมะ", "", "กินสาหร่ายวากาเมะ"}
	results, errs := batch.Tokenize(context.Background(), texts, segmenter.Options{})
	require.Len(t, results, 3)
	require.Len(t, errs, 3)

	assert.NoError(t, errs[0])
	assert.Equal(t, "สาหร่ายวากาเมะ", results[0].Text)

	assert.Nil(t, results[1])
	assert.ErrorIs(t, errs[1], pkgerrors.ErrInvalidInput)

	assert.NoError(t, errs[2])
	assert.Len(t, results[2].Tokens, 2)
}

func TestBatchTokenizerManyTexts(t *testing.T) {
	eng, _ := testEngine(t, true, "ต้มยำกุ้ง")
	batch, err := NewBatchTokenizer(eng, 2)
	require.NoError(t, err)
	defer batch.Close()

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = fmt.Sprintf("ต้มยำกุ้ง %d", i%5)
	}
	results, errs := batch.Tokenize(context.Background(), texts, segmenter.Options{})
	for i := range texts {
		require.NoError(t, errs[i], "text %d", i)
		require.NotNil(t, results[i], "text %d", i)
		assert.Equal(t, texts[i], results[i].Text)
	}
}
