package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMoralisURL       = "https://deep-index.moralis.io/api/v2.2"
	defaultHTTPAddr         = ":8080"
	defaultTxPageSize       = 50
	defaultTransferPageSize = 25
	defaultUpstreamTimeout  = 15 * time.Second
	defaultCacheTTL         = time.Hour
	defaultKafkaTopicPrefix = "txfeed-transactions"
)

type Config struct {
	MoralisURL         string
	MoralisAPIKey      string
	MetadataAPIURL     string
	MetadataDBDSN      string
	MetadataSQLitePath string
	RedisAddr          string
	MetadataCacheTTL   time.Duration
	HTTPAddr           string
	TxPageSize         int
	TransferPageSize   int
	UpstreamTimeout    time.Duration
	OtelEndpoint       string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	LogLevel           string
	LogFile            string
	LogMaxSizeMB       int
	LogMaxBackups      int
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	apiKey := lookupTrimmed(source, "MORALIS_API_KEY", "")
	if apiKey == "" {
		return Config{}, errors.New("MORALIS_API_KEY is required")
	}

	txPageSize, err := parseIntEnv(source, "TX_PAGE_SIZE", defaultTxPageSize, 1)
	if err != nil {
		return Config{}, err
	}
	transferPageSize, err := parseIntEnv(source, "TRANSFER_PAGE_SIZE", defaultTransferPageSize, 1)
	if err != nil {
		return Config{}, err
	}
	upstreamTimeout, err := parseDurationEnv(source, "UPSTREAM_TIMEOUT", defaultUpstreamTimeout)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDurationEnv(source, "METADATA_CACHE_TTL", defaultCacheTTL)
	if err != nil {
		return Config{}, err
	}
	logMaxSize, err := parseIntEnv(source, "LOG_MAX_SIZE_MB", 100, 1)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseIntEnv(source, "LOG_MAX_BACKUPS", 3, 0)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		MoralisURL:         strings.TrimRight(lookupTrimmed(source, "MORALIS_API_URL", defaultMoralisURL), "/"),
		MoralisAPIKey:      apiKey,
		MetadataAPIURL:     strings.TrimRight(lookupTrimmed(source, "METADATA_API_URL", ""), "/"),
		MetadataDBDSN:      lookupTrimmed(source, "METADATA_DB_DSN", ""),
		MetadataSQLitePath: lookupTrimmed(source, "METADATA_SQLITE_PATH", ""),
		RedisAddr:          lookupTrimmed(source, "REDIS_ADDR", ""),
		MetadataCacheTTL:   cacheTTL,
		HTTPAddr:           lookupTrimmed(source, "HTTP_ADDR", defaultHTTPAddr),
		TxPageSize:         txPageSize,
		TransferPageSize:   transferPageSize,
		UpstreamTimeout:    upstreamTimeout,
		OtelEndpoint:       lookupTrimmed(source, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		KafkaBrokers:       parseList(source, "KAFKA_BROKERS"),
		KafkaTopicPrefix:   lookupTrimmed(source, "KAFKA_TOPIC_PREFIX", defaultKafkaTopicPrefix),
		LogLevel:           lookupTrimmed(source, "LOG_LEVEL", "info"),
		LogFile:            lookupTrimmed(source, "LOG_FILE", ""),
		LogMaxSizeMB:       logMaxSize,
		LogMaxBackups:      logMaxBackups,
	}
	if cfg.MetadataAPIURL == "" && cfg.MetadataDBDSN == "" && cfg.MetadataSQLitePath == "" {
		return Config{}, errors.New("one of METADATA_API_URL, METADATA_DB_DSN or METADATA_SQLITE_PATH is required")
	}
	return cfg, nil
}

func lookupTrimmed(source EnvSource, key, defaultValue string) string {
	raw, ok := source.Lookup(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return defaultValue
	}
	return raw
}

func parseIntEnv(source EnvSource, key string, defaultValue, minValue int) (int, error) {
	raw := lookupTrimmed(source, key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < minValue {
		return 0, fmt.Errorf("invalid %s: must be at least %d", key, minValue)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw := lookupTrimmed(source, key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseList(source EnvSource, key string) []string {
	raw := lookupTrimmed(source, key, "")
	if raw == "" {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}
