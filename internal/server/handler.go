// Package server exposes the engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kasemsan-k/thai-search-core/internal/analytics"
	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/internal/engine"
	"github.com/kasemsan-k/thai-search-core/internal/queryproc"
	"github.com/kasemsan-k/thai-search-core/internal/ranking"
	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
	pkgerrors "github.com/kasemsan-k/thai-search-core/pkg/errors"
	"github.com/kasemsan-k/thai-search-core/pkg/logger"
	"github.com/kasemsan-k/thai-search-core/pkg/middleware"
)

// Handler serves the tokenize, expand, dictionary, ranking, and cache
// endpoints.
type Handler struct {
	engine    *engine.Engine
	batch     *engine.BatchTokenizer
	processor *queryproc.Processor
	store     *dictionary.Store
	ranking   *ranking.Holder
	collector *analytics.Collector
	logger    *slog.Logger
}

// New creates a Handler. batch and collector may be nil.
func New(eng *engine.Engine, batch *engine.BatchTokenizer, processor *queryproc.Processor, store *dictionary.Store, holder *ranking.Holder, collector *analytics.Collector) *Handler {
	return &Handler{
		engine:    eng,
		batch:     batch,
		processor: processor,
		store:     store,
		ranking:   holder,
		collector: collector,
		logger:    slog.Default().With("component", "http-handler"),
	}
}

type tokenizeRequest struct {
	Text    string `json:"text"`
	Options struct {
		StrategyOverride string `json:"strategyOverride"`
		Domain           string `json:"domain"`
	} `json:"options"`
}

type batchTokenizeRequest struct {
	Texts   []string `json:"texts"`
	Options struct {
		StrategyOverride string `json:"strategyOverride"`
		Domain           string `json:"domain"`
	} `json:"options"`
}

type expandRequest struct {
	Query   string `json:"query"`
	Context struct {
		Domain string `json:"domain"`
	} `json:"context"`
}

type scoreRequest struct {
	BaseScore float64          `json:"base_score"`
	Document  ranking.Document `json:"document"`
}

// Tokenize handles POST /api/v1/tokenize.
func (h *Handler) Tokenize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req tokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	opts := segmenter.Options{
		StrategyOverride: req.Options.StrategyOverride,
		Domain:           req.Options.Domain,
	}

	result, err := h.engine.Tokenize(ctx, req.Text, opts)
	if err != nil {
		log.Error("tokenize failed", "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}

	if h.collector != nil {
		h.collector.Track(analytics.QueryEvent{
			Type:       analytics.EventTokenize,
			Query:      req.Text,
			Tokens:     len(result.Tokens),
			Strategy:   result.Strategy,
			Generation: result.Generation,
			LatencyUs:  time.Since(start).Microseconds(),
			RequestID:  middleware.GetRequestID(ctx),
			Timestamp:  time.Now().UTC(),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// TokenizeBatch handles POST /api/v1/tokenize/batch.
func (h *Handler) TokenizeBatch(w http.ResponseWriter, r *http.Request) {
	if h.batch == nil {
		h.writeError(w, http.StatusServiceUnavailable, "batch tokenization is disabled")
		return
	}
	var req batchTokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Texts) == 0 {
		h.writeError(w, http.StatusBadRequest, "texts is empty")
		return
	}
	opts := segmenter.Options{
		StrategyOverride: req.Options.StrategyOverride,
		Domain:           req.Options.Domain,
	}
	results, errs := h.batch.Tokenize(r.Context(), req.Texts, opts)

	type item struct {
		Result *engine.Result `json:"result,omitempty"`
		Error  string         `json:"error,omitempty"`
	}
	items := make([]item, len(results))
	for i := range results {
		if errs[i] != nil {
			items[i] = item{Error: errs[i].Error()}
		} else {
			items[i] = item{Result: results[i]}
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Expand handles POST /api/v1/expand.
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "query is empty")
		return
	}

	exp := h.processor.Expand(ctx, req.Query, segmenter.Options{Domain: req.Context.Domain})

	if h.collector != nil {
		h.collector.Track(analytics.QueryEvent{
			Type:       analytics.EventExpand,
			Query:      req.Query,
			Intent:     exp.Intent.Type,
			Candidates: len(exp.Candidates),
			Generation: exp.Generation,
			LatencyUs:  time.Since(start).Microseconds(),
			RequestID:  middleware.GetRequestID(ctx),
			Timestamp:  time.Now().UTC(),
		})
	}
	h.writeJSON(w, http.StatusOK, exp)
}

// DictionaryReload handles POST /api/v1/dictionary/reload.
func (h *Handler) DictionaryReload(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Reload(r.Context())
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error("dictionary reload failed", "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// DictionaryStats handles GET /api/v1/dictionary/stats.
func (h *Handler) DictionaryStats(w http.ResponseWriter, r *http.Request) {
	gen := h.store.Generation()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation": gen.Version,
		"entries":    gen.EntryCount(),
		"domains":    gen.DomainCounts(),
	})
}

// RankingUpdate handles PUT /api/v1/ranking/config.
func (h *Handler) RankingUpdate(w http.ResponseWriter, r *http.Request) {
	var cfg ranking.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	previous, err := h.ranking.Swap(&cfg)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrRankingConfigInvalid) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("ranking config swapped", "version", cfg.Version, "previous_version", previous.Version)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":           "applied",
		"version":          cfg.Version,
		"previous_version": previous.Version,
	})
}

// Score handles POST /api/v1/ranking/score. The external search engine
// calls it per candidate page when it does not link the adjuster directly.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	adjusted := ranking.Score(req.BaseScore, req.Document, h.ranking.Load())
	h.writeJSON(w, http.StatusOK, map[string]any{"adjusted_score": adjusted})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.engine.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"entries":  c.Len(),
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.engine.Cache()
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := c.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
