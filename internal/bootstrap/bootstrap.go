// Package bootstrap assembles the feed from configuration for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"txfeed/internal/application"
	"txfeed/internal/config"
	"txfeed/internal/infrastructure/logging"
	"txfeed/internal/infrastructure/metadataapi"
	"txfeed/internal/infrastructure/moralis"
	"txfeed/internal/infrastructure/mysql"
	"txfeed/internal/infrastructure/rediscache"
	"txfeed/internal/infrastructure/sqlite"
	"txfeed/internal/infrastructure/telemetry"

	"go.uber.org/zap"
)

// Logger builds the process logger. defaultFile is used when LOG_FILE is
// unset; an empty defaultFile logs to stdout only.
func Logger(cfg config.Config, defaultFile string) (*zap.Logger, func(), error) {
	file := cfg.LogFile
	if file == "" {
		file = defaultFile
	}
	logger, writer, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       file,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return nil, nil, err
	}
	return logger, func() {
		_ = logger.Sync()
		if writer != nil {
			_ = writer.Close()
		}
	}, nil
}

// Tracing starts the tracer provider and returns its shutdown hook. A failed
// start is logged and tracing stays disabled.
func Tracing(ctx context.Context, cfg config.Config, service, version string, logger *zap.Logger) func() {
	shutdown, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Endpoint:       cfg.OtelEndpoint,
	})
	if err != nil {
		logger.Warn("tracing init error", zap.Error(err))
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown error", zap.Error(err))
		}
	}
}

// ContractSource picks the metadata backend in order: the HTTP metadata
// service, the MySQL registry, then the SQLite registry. When REDIS_ADDR is
// set the chosen backend is fronted by the Redis cache.
func ContractSource(cfg config.Config, logger *zap.Logger) (application.ContractSource, func() error, error) {
	base, closeBase, err := baseContractSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	source, closeCache, err := rediscache.Dial(base, rediscache.Config{Addr: cfg.RedisAddr, TTL: cfg.MetadataCacheTTL}, logger)
	if err != nil {
		_ = closeBase()
		return nil, nil, err
	}
	return source, func() error {
		return errors.Join(closeCache(), closeBase())
	}, nil
}

func baseContractSource(cfg config.Config, logger *zap.Logger) (application.ContractSource, func() error, error) {
	switch {
	case cfg.MetadataAPIURL != "":
		client, err := metadataapi.NewClient(metadataapi.Config{BaseURL: cfg.MetadataAPIURL, Timeout: cfg.UpstreamTimeout})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("contract metadata via http service", zap.String("url", cfg.MetadataAPIURL))
		return client, func() error { return nil }, nil
	case cfg.MetadataDBDSN != "":
		registry, err := mysql.NewRegistry(cfg.MetadataDBDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("contract metadata via mysql registry")
		return registry, registry.Close, nil
	case cfg.MetadataSQLitePath != "":
		registry, err := sqlite.NewRegistry(cfg.MetadataSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("contract metadata via sqlite registry", zap.String("path", cfg.MetadataSQLitePath))
		return registry, registry.Close, nil
	default:
		return nil, nil, errors.New("no contract metadata source configured")
	}
}

// Pager wires the upstream client and the given contract source into a pager.
func Pager(cfg config.Config, contracts application.ContractSource, observer application.PageObserver, logger *zap.Logger) (*application.Pager, error) {
	client, err := moralis.NewClient(moralis.Config{
		BaseURL: cfg.MoralisURL,
		APIKey:  cfg.MoralisAPIKey,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return nil, err
	}
	return application.NewPager(client, contracts, observer, logger, application.PagerConfig{
		TransactionPageSize: cfg.TxPageSize,
		TransferPageSize:    cfg.TransferPageSize,
	})
}
