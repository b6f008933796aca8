package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kasemsan-k/thai-search-core/internal/analytics"
	"github.com/kasemsan-k/thai-search-core/internal/cache"
	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/internal/engine"
	"github.com/kasemsan-k/thai-search-core/internal/queryproc"
	"github.com/kasemsan-k/thai-search-core/internal/ranking"
	"github.com/kasemsan-k/thai-search-core/internal/segmenter"
	"github.com/kasemsan-k/thai-search-core/internal/server"
	"github.com/kasemsan-k/thai-search-core/pkg/config"
	"github.com/kasemsan-k/thai-search-core/pkg/health"
	"github.com/kasemsan-k/thai-search-core/pkg/kafka"
	"github.com/kasemsan-k/thai-search-core/pkg/logger"
	"github.com/kasemsan-k/thai-search-core/pkg/metrics"
	"github.com/kasemsan-k/thai-search-core/pkg/middleware"
	"github.com/kasemsan-k/thai-search-core/pkg/postgres"
	pkgredis "github.com/kasemsan-k/thai-search-core/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting query engine", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, cleanup, err := buildDictionarySource(cfg)
	if err != nil {
		slog.Error("failed to create dictionary source", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	store := dictionary.NewStore(cfg.Dictionary, source, m)
	summary, err := store.Reload(ctx)
	if err != nil {
		slog.Error("initial dictionary load failed", "error", err)
		os.Exit(1)
	}
	slog.Info("dictionary loaded",
		"version", summary.Version,
		"entries", summary.Loaded,
		"rejected", len(summary.Rejected),
	)

	if cfg.Dictionary.Source == "file" && cfg.Dictionary.Watch {
		watcher, err := dictionary.NewWatcher(store, cfg.Dictionary.Path)
		if err != nil {
			slog.Warn("dictionary watch disabled", "error", err)
		} else {
			go watcher.Run(ctx)
			slog.Info("dictionary hot reload enabled", "path", cfg.Dictionary.Path)
		}
	}

	chain, err := segmenter.NewChain(cfg.Segmenter, m)
	if err != nil {
		slog.Error("failed to build segmenter chain", "error", err)
		os.Exit(1)
	}
	slog.Info("segmenter chain ready", "chain", chain.ID())

	var redisClient *pkgredis.Client
	if cfg.Cache.RedisTier {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, second cache tier disabled", "error", err)
		} else {
			defer redisClient.Close()
			slog.Info("redis cache tier enabled", "addr", cfg.Redis.Addr)
		}
	}
	resultCache := cache.New[*engine.Result](cfg.Cache, redisClient, m)

	eng := engine.New(cfg.Segmenter, chain, store, resultCache, m)
	batch, err := engine.NewBatchTokenizer(eng, cfg.Query.BatchWorkers)
	if err != nil {
		slog.Error("failed to create batch tokenizer", "error", err)
		os.Exit(1)
	}
	defer batch.Close()

	processor := queryproc.New(cfg.Query, eng, store, m)

	rankingCfg, err := ranking.LoadConfig(cfg.Ranking.Path)
	if err != nil {
		slog.Warn("ranking config not loaded, starting neutral", "path", cfg.Ranking.Path, "error", err)
		rankingCfg = nil
	}
	holder := ranking.NewHolder(rankingCfg)

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.QueryEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.QueryEvents)
	}

	checker := health.NewChecker()
	checker.Register("dictionary", func(ctx context.Context) health.ComponentHealth {
		gen := store.Generation()
		if gen.Version == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no dictionary loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("generation %d, %d entries", gen.Version, gen.EntryCount())}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(eng, batch, processor, store, holder, collector)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/tokenize", h.Tokenize)
	mux.HandleFunc("POST /api/v1/tokenize/batch", h.TokenizeBatch)
	mux.HandleFunc("POST /api/v1/expand", h.Expand)
	mux.HandleFunc("POST /api/v1/dictionary/reload", h.DictionaryReload)
	mux.HandleFunc("GET /api/v1/dictionary/stats", h.DictionaryStats)
	mux.HandleFunc("PUT /api/v1/ranking/config", h.RankingUpdate)
	mux.HandleFunc("POST /api/v1/ranking/score", h.Score)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var handlerChain http.Handler = mux
	if m != nil {
		handlerChain = middleware.Metrics(m)(handlerChain)
	}
	handlerChain = middleware.Timeout(cfg.Server.WriteTimeout)(handlerChain)
	handlerChain = middleware.RequestID(handlerChain)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handlerChain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("query engine listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("query engine stopped")
}

// buildDictionarySource creates the configured source; the returned cleanup
// closes any underlying connection.
func buildDictionarySource(cfg *config.Config) (dictionary.Source, func(), error) {
	switch cfg.Dictionary.Source {
	case "file", "":
		return dictionary.NewFileSource(cfg.Dictionary.Path), nil, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return dictionary.NewPostgresSource(client), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown dictionary source %q", cfg.Dictionary.Source)
	}
}
