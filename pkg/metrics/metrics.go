// Package metrics defines the Prometheus metric collectors used by the
// tokenization and query processing engine and exposes an HTTP handler for
// scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	TokenizeTotal        *prometheus.CounterVec
	TokenizeLatency      *prometheus.HistogramVec
	TokensPerCall        prometheus.Histogram
	ExpandTotal          *prometheus.CounterVec
	CandidatesPerQuery   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	StrategyAttempts     *prometheus.CounterVec
	StrategyFallbacks    *prometheus.CounterVec
	DictionaryGeneration prometheus.Gauge
	DictionaryEntries    *prometheus.GaugeVec
	EntriesRejectedTotal prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		TokenizeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenize_requests_total",
				Help: "Total tokenize calls by outcome (ok, invalid_input, failure).",
			},
			[]string{"outcome"},
		),
		TokenizeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenize_latency_seconds",
				Help:    "Tokenize call latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		TokensPerCall: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tokenize_tokens_per_call",
				Help:    "Number of tokens produced per tokenize call.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		ExpandTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_expand_total",
				Help: "Total query expansion calls by detected intent.",
			},
			[]string{"intent"},
		),
		CandidatesPerQuery: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "query_expand_candidates",
				Help:    "Number of candidate queries produced per expansion.",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		StrategyAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segmenter_strategy_attempts_total",
				Help: "Strategy attempts by strategy name and outcome (ok, timeout, error).",
			},
			[]string{"strategy", "outcome"},
		),
		StrategyFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segmenter_strategy_fallbacks_total",
				Help: "Times a strategy failed and the chain fell through to the next.",
			},
			[]string{"strategy"},
		),
		DictionaryGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dictionary_generation",
				Help: "Version number of the currently published dictionary generation.",
			},
		),
		DictionaryEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dictionary_entries",
				Help: "Number of loaded dictionary entries per domain.",
			},
			[]string{"domain"},
		),
		EntriesRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dictionary_entries_rejected_total",
				Help: "Dictionary entries rejected during load validation.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.TokenizeTotal,
		m.TokenizeLatency,
		m.TokensPerCall,
		m.ExpandTotal,
		m.CandidatesPerQuery,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.StrategyAttempts,
		m.StrategyFallbacks,
		m.DictionaryGeneration,
		m.DictionaryEntries,
		m.EntriesRejectedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
