package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txfeed/internal/application"
	"txfeed/internal/bootstrap"
	"txfeed/internal/config"
	"txfeed/internal/domain"
	"txfeed/internal/infrastructure/kafka"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type options struct {
	chain    string
	address  string
	cursor   string
	maxPages int
	publish  bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "feedsync",
		Short:        "Walk a wallet's classified history page by page",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.chain, "chain", string(domain.ChainEthereum), "chain name (eth or polygon)")
	flags.StringVar(&opts.address, "address", "", "wallet address")
	flags.StringVar(&opts.cursor, "cursor", "", "resume from this cursor")
	flags.IntVar(&opts.maxPages, "max-pages", 0, "stop after this many pages (0 walks the full history)")
	flags.BoolVar(&opts.publish, "publish", false, "publish pages to kafka instead of stdout")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	chain, err := domain.ParseChain(opts.chain)
	if err != nil {
		return err
	}
	address, err := application.ValidateAddress(opts.address)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger, closeLogs, err := bootstrap.Logger(cfg, "logs/feedsync.log")
	if err != nil {
		return fmt.Errorf("logger init error: %w", err)
	}
	defer closeLogs()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing := bootstrap.Tracing(ctx, cfg, "txfeed-sync", version, logger)
	defer shutdownTracing()

	contracts, closeContracts, err := bootstrap.ContractSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeContracts()

	pager, err := bootstrap.Pager(cfg, contracts, syncObserver{logger: logger}, logger)
	if err != nil {
		return err
	}

	sink := newStdoutSink(out)
	if opts.publish {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
		})
		if err != nil {
			return err
		}
		defer producer.Close()
		sink = func(ctx context.Context, page domain.Page) error {
			return producer.PublishPage(ctx, chain.ID(), address, page)
		}
	}

	logger.Info("feed sync started",
		zap.String("chain", string(chain)),
		zap.String("address", address),
		zap.Int("max_pages", opts.maxPages),
		zap.Bool("publish", opts.publish),
	)
	transactions := 0
	pages, err := application.Walk(ctx, pager, application.PageRequest{
		Chain:   chain,
		Address: address,
		Cursor:  opts.cursor,
	}, opts.maxPages, func(page domain.Page) error {
		transactions += len(page.Transactions)
		return sink(ctx, page)
	})
	logger.Info("feed sync finished", zap.Int("pages", pages), zap.Int("transactions", transactions))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type pageSink func(ctx context.Context, page domain.Page) error

// newStdoutSink writes one JSON line per transaction, then a line carrying
// the page cursor.
func newStdoutSink(out io.Writer) pageSink {
	encoder := json.NewEncoder(out)
	return func(ctx context.Context, page domain.Page) error {
		for _, txn := range page.Transactions {
			if err := encoder.Encode(txn); err != nil {
				return err
			}
		}
		return encoder.Encode(map[string]any{"cursor": page.Cursor, "count": len(page.Transactions)})
	}
}

type syncObserver struct {
	logger *zap.Logger
}

func (o syncObserver) OnPageClassified(chain domain.Chain, page domain.Page, elapsed time.Duration) {
	o.logger.Info("page classified",
		zap.String("chain", string(chain)),
		zap.Int("transactions", len(page.Transactions)),
		zap.Bool("last", page.Cursor == ""),
		zap.Duration("elapsed", elapsed),
	)
}

func (o syncObserver) OnBackfill(stream string) {
	o.logger.Debug("transfer window backfill", zap.String("stream", stream))
}

func (o syncObserver) OnUpstreamError(op string) {
	o.logger.Warn("upstream error", zap.String("op", op))
}
