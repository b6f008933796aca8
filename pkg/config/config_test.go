package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Dictionary.Source)
	assert.True(t, cfg.Dictionary.PreferDomainTieBreak)
	require.Len(t, cfg.Segmenter.Chain, 2)
	assert.Equal(t, "maxmatch", cfg.Segmenter.Chain[0].Name)
	assert.Equal(t, "cluster", cfg.Segmenter.Chain[1].Name)
	assert.Equal(t, 50000, cfg.Cache.Capacity)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 8, cfg.Query.MaxCandidates)
	assert.Contains(t, cfg.Query.StopWords, "ครับ")
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
dictionary:
  source: postgres
segmenter:
  chain:
    - name: cluster
      timeout: 50ms
cache:
  capacity: 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Dictionary.Source)
	require.Len(t, cfg.Segmenter.Chain, 1)
	assert.Equal(t, "cluster", cfg.Segmenter.Chain[0].Name)
	assert.Equal(t, 50*time.Millisecond, cfg.Segmenter.Chain[0].Timeout)
	assert.Equal(t, 100, cfg.Cache.Capacity)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TSE_SERVER_PORT", "9999")
	t.Setenv("TSE_DICTIONARY_SOURCE", "postgres")
	t.Setenv("TSE_POSTGRES_HOST", "db.internal")
	t.Setenv("TSE_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("TSE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TSE_LOGGING_LEVEL", "debug")
	t.Setenv("TSE_CACHE_CAPACITY", "123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Dictionary.Source)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 123, cfg.Cache.Capacity)
}

func TestEnvOverrideInvalidNumberIgnored(t *testing.T) {
	t.Setenv("TSE_SERVER_PORT", "not-a-port")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "svc",
		Password: "secret",
		Database: "dict",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=svc password=secret dbname=dict sslmode=disable",
		p.DSN(),
	)
}
