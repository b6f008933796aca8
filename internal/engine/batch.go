package engine

import (
	"context"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
)

// BatchTokenizer runs Tokenize over many independent texts in parallel.
// Texts share nothing but the pinned dictionary snapshot and the cache,
// both safe for concurrent readers.
type BatchTokenizer struct {
	engine *Engine
	pool   *ants.Pool
}

// NewBatchTokenizer creates a BatchTokenizer with the given worker count;
// size <= 0 means runtime.NumCPU().
func NewBatchTokenizer(engine *Engine, size int) (*BatchTokenizer, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &BatchTokenizer{engine: engine, pool: pool}, nil
}

// Tokenize processes every text and returns results and errors positionally:
// exactly one of results[i], errs[i] is set for each input.
func (b *BatchTokenizer) Tokenize(ctx context.Context, texts []string, opts segmenter.Options) ([]*Result, []error) {
	results := make([]*Result, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		i, text := i, text
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = b.engine.Tokenize(ctx, text, opts)
		})
		if submitErr != nil {
			errs[i] = submitErr
			wg.Done()
		}
	}
	wg.Wait()
	return results, errs
}

// Close releases the worker pool.
func (b *BatchTokenizer) Close() {
	b.pool.Release()
}
