package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(EnvMap{
		"MORALIS_API_KEY":  "key",
		"METADATA_API_URL": "http://metadata.local/",
	})
	require.NoError(t, err)

	assert.Equal(t, defaultMoralisURL, cfg.MoralisURL)
	assert.Equal(t, "http://metadata.local", cfg.MetadataAPIURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 50, cfg.TxPageSize)
	assert.Equal(t, 25, cfg.TransferPageSize)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, time.Hour, cfg.MetadataCacheTTL)
	assert.Equal(t, "txfeed-transactions", cfg.KafkaTopicPrefix)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(EnvMap{
		"MORALIS_API_KEY":             " key ",
		"MORALIS_API_URL":             "http://moralis.local",
		"METADATA_DB_DSN":             "root:@tcp(127.0.0.1:3306)/txfeed",
		"REDIS_ADDR":                  "127.0.0.1:6379",
		"METADATA_CACHE_TTL":          "10m",
		"TX_PAGE_SIZE":                "20",
		"TRANSFER_PAGE_SIZE":          "10",
		"UPSTREAM_TIMEOUT":            "3s",
		"KAFKA_BROKERS":               "a:9092, ,b:9092",
		"LOG_LEVEL":                   "debug",
		"LOG_FILE":                    "/tmp/txfeed.log",
		"LOG_MAX_BACKUPS":             "5",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4318",
	})
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.MoralisAPIKey)
	assert.Equal(t, "http://moralis.local", cfg.MoralisURL)
	assert.Equal(t, 20, cfg.TxPageSize)
	assert.Equal(t, 10, cfg.TransferPageSize)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 10*time.Minute, cfg.MetadataCacheTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.LogMaxBackups)
	assert.Equal(t, "localhost:4318", cfg.OtelEndpoint)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(nil)
	assert.Error(t, err)

	_, err = Load(EnvMap{"METADATA_API_URL": "http://m"})
	assert.EqualError(t, err, "MORALIS_API_KEY is required")

	_, err = Load(EnvMap{"MORALIS_API_KEY": "key"})
	assert.Error(t, err)

	_, err = Load(EnvMap{"MORALIS_API_KEY": "key", "METADATA_SQLITE_PATH": "m.db", "TX_PAGE_SIZE": "abc"})
	assert.ErrorContains(t, err, "TX_PAGE_SIZE")

	_, err = Load(EnvMap{"MORALIS_API_KEY": "key", "METADATA_SQLITE_PATH": "m.db", "TRANSFER_PAGE_SIZE": "0"})
	assert.ErrorContains(t, err, "TRANSFER_PAGE_SIZE")

	cfg, err := Load(EnvMap{"MORALIS_API_KEY": "key", "METADATA_SQLITE_PATH": "m.db", "LOG_MAX_BACKUPS": "0"})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.LogMaxBackups)

	_, err = Load(EnvMap{"MORALIS_API_KEY": "key", "METADATA_SQLITE_PATH": "m.db", "UPSTREAM_TIMEOUT": "soon"})
	assert.ErrorContains(t, err, "UPSTREAM_TIMEOUT")
}
