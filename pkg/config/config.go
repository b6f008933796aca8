// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Dictionary, Segmenter, Cache, Query, Ranking,
// Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Cache      CacheConfig      `yaml:"cache"`
	Query      QueryConfig      `yaml:"query"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DictionaryConfig controls where compound/synonym entries are loaded from
// and how reloads are triggered.
type DictionaryConfig struct {
	// Source is "file" or "postgres".
	Source string `yaml:"source"`
	// Path is the JSON dictionary file when Source is "file".
	Path string `yaml:"path"`
	// Watch enables fsnotify-based hot reload of the dictionary file.
	Watch bool `yaml:"watch"`
	// RequireThaiScript rejects entries containing no Thai codepoint.
	RequireThaiScript bool `yaml:"requireThaiScript"`
	// PreferDomainTieBreak prefers the supplied domain when two entries of
	// equal length start at the same offset; first-loaded order otherwise.
	PreferDomainTieBreak bool `yaml:"preferDomainTieBreak"`
}

// StrategyConfig declares one segmentation strategy in the fallback chain.
type StrategyConfig struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
	// Endpoint is only used by the "remote" strategy.
	Endpoint string `yaml:"endpoint"`
}

// SegmenterConfig controls the strategy chain and input limits.
type SegmenterConfig struct {
	Chain        []StrategyConfig `yaml:"chain"`
	MaxTextBytes int              `yaml:"maxTextBytes"`
}

// CacheConfig controls the in-process result cache and the optional Redis
// second tier.
type CacheConfig struct {
	Capacity   int           `yaml:"capacity"`
	TTL        time.Duration `yaml:"ttl"`
	RedisTier  bool          `yaml:"redisTier"`
	RedisTTL   time.Duration `yaml:"redisTtl"`
	KeyVersion string        `yaml:"keyVersion"`
}

// QueryConfig controls query expansion.
type QueryConfig struct {
	StopWords     []string `yaml:"stopWords"`
	MaxCandidates int      `yaml:"maxCandidates"`
	BatchWorkers  int      `yaml:"batchWorkers"`
}

// RankingConfig points at the initial ranking configuration file.
type RankingConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL connection parameters for the dictionary
// source.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters for the cache tier.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// KafkaConfig holds Kafka broker and topic settings for analytics events.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	QueryEvents   string        `yaml:"queryEventsTopic"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config with built-in defaults, without reading any file
// or environment variables.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Dictionary: DictionaryConfig{
			Source:               "file",
			Path:                 "configs/dictionary.json",
			Watch:                true,
			RequireThaiScript:    true,
			PreferDomainTieBreak: true,
		},
		Segmenter: SegmenterConfig{
			Chain: []StrategyConfig{
				{Name: "maxmatch", Timeout: 200 * time.Millisecond},
				{Name: "cluster", Timeout: 200 * time.Millisecond},
			},
			MaxTextBytes: 1 << 20,
		},
		Cache: CacheConfig{
			Capacity: 50000,
			TTL:      6 * time.Hour,
			RedisTTL: time.Hour,
		},
		Query: QueryConfig{
			StopWords:     []string{"ครับ", "ค่ะ", "คะ", "นะ", "หน่อย", "the", "a", "an"},
			MaxCandidates: 8,
			BatchWorkers:  0, // 0 means runtime.NumCPU()
		},
		Ranking: RankingConfig{
			Path: "configs/ranking.yaml",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "thaisearch",
			User:            "thaisearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			QueryEvents:   "query-events",
			BatchSize:     200,
			FlushInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyEnvOverrides reads TSE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TSE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TSE_DICTIONARY_SOURCE"); v != "" {
		cfg.Dictionary.Source = v
	}
	if v := os.Getenv("TSE_DICTIONARY_PATH"); v != "" {
		cfg.Dictionary.Path = v
	}
	if v := os.Getenv("TSE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TSE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TSE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TSE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TSE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TSE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TSE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TSE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TSE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TSE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TSE_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Capacity = n
		}
	}
}
