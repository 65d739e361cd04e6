package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"txfeed/internal/bootstrap"
	"txfeed/internal/config"
	"txfeed/internal/interfaces/httpapi"

	"go.uber.org/zap"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closeLogs, err := bootstrap.Logger(cfg, "")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer closeLogs()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing := bootstrap.Tracing(ctx, cfg, "txfeed-api", version, logger)
	defer shutdownTracing()

	contracts, closeContracts, err := bootstrap.ContractSource(cfg, logger)
	if err != nil {
		logger.Fatal("contract source error", zap.Error(err))
	}
	defer func() {
		if err := closeContracts(); err != nil {
			logger.Warn("contract source close error", zap.Error(err))
		}
	}()

	metrics := httpapi.NewMetrics()
	pager, err := bootstrap.Pager(cfg, contracts, metrics, logger)
	if err != nil {
		logger.Fatal("pager error", zap.Error(err))
	}

	server, err := httpapi.NewServer(pager, contracts, metrics, logger, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		logger.Fatal("http server error", zap.Error(err))
	}

	logger.Info("http server listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.Int("tx_page_size", cfg.TxPageSize),
		zap.Int("transfer_page_size", cfg.TransferPageSize),
	)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server stopped", zap.Error(err))
	}
}
