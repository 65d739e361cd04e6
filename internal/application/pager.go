package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"txfeed/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAddressRequired = errors.New("address is required")
	ErrInvalidAddress  = errors.New("address is not a valid hex address")
)

type PagerConfig struct {
	TransactionPageSize int
	TransferPageSize    int
}

// Pager produces one classified page of a wallet's history per call.
// It holds no state between calls.
type Pager struct {
	source     TransactionSource
	resolver   *Resolver
	classifier *Classifier
	observer   PageObserver
	logger     *zap.Logger
	cfg        PagerConfig
}

func NewPager(source TransactionSource, contracts ContractSource, observer PageObserver, logger *zap.Logger, cfg PagerConfig) (*Pager, error) {
	if source == nil || contracts == nil {
		return nil, errors.New("pager dependencies must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if cfg.TransactionPageSize <= 0 {
		cfg.TransactionPageSize = 50
	}
	if cfg.TransferPageSize <= 0 {
		cfg.TransferPageSize = 25
	}
	resolver, err := NewResolver(contracts, logger)
	if err != nil {
		return nil, err
	}
	return &Pager{
		source:     source,
		resolver:   resolver,
		classifier: NewClassifier(),
		observer:   observer,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

// ValidateAddress trims the wallet address and checks it is a hex address.
func ValidateAddress(raw string) (string, error) {
	address := strings.TrimSpace(raw)
	if address == "" {
		return "", ErrAddressRequired
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return address, nil
}

// GetPage fetches one transaction page, correlates it with the wallet's token
// transfers in the same block range and classifies every transaction. The
// output keeps the upstream order and cursor.
func (p *Pager) GetPage(ctx context.Context, req PageRequest) (domain.Page, error) {
	ctx, span := otel.Tracer("txfeed/feed").Start(ctx, "feed.get_page")
	defer span.End()
	started := time.Now()

	address, err := ValidateAddress(req.Address)
	if err != nil {
		return domain.Page{}, err
	}
	chain := req.Chain
	if chain == "" {
		chain = domain.ChainEthereum
	}
	span.SetAttributes(
		attribute.String("chain", string(chain)),
		attribute.String("wallet.address", address),
		attribute.Bool("cursor.present", req.Cursor != ""),
	)

	raw, err := p.source.FetchTransactions(ctx, domain.TransactionQuery{
		Chain:   chain,
		Address: address,
		Cursor:  req.Cursor,
		Limit:   p.cfg.TransactionPageSize,
	})
	if err != nil {
		return domain.Page{}, p.fail(span, err)
	}

	page := domain.Page{
		Transactions: make([]domain.ClassifiedTransaction, 0, len(raw.Transactions)),
		Cursor:       raw.Cursor,
	}
	startBlock, endBlock, ok := raw.BlockRange()
	if !ok {
		p.observer.OnPageClassified(chain, page, time.Since(started))
		return page, nil
	}

	query := domain.TransferQuery{
		Chain:     chain,
		Address:   address,
		FromBlock: startBlock,
		ToBlock:   endBlock,
		Limit:     p.cfg.TransferPageSize,
	}
	fungible := NewTransferWindow[domain.FungibleTransfer](StreamFungible, query, p.source.FetchFungibleTransfers)
	nonFungible := NewTransferWindow[domain.NonFungibleTransfer](StreamNonFungible, query, p.source.FetchNonFungibleTransfers)

	var book domain.ContractBook
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fungible.Load(gctx) })
	g.Go(func() error { return nonFungible.Load(gctx) })
	g.Go(func() error {
		var err error
		book, err = p.resolver.Resolve(gctx, chain.ID(), raw.DestinationAddresses())
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Page{}, p.fail(span, err)
	}

	correlator := NewCorrelator(fungible, nonFungible, p.observer.OnBackfill)
	evidence := Evidence{ChainID: chain.ID(), Contracts: book, Transfers: correlator}
	for _, txn := range raw.Transactions {
		if err := correlator.Advance(ctx, txn.BlockNumber); err != nil {
			return domain.Page{}, p.fail(span, err)
		}
		page.Transactions = append(page.Transactions, p.classifier.Classify(txn, evidence))
	}

	elapsed := time.Since(started)
	p.observer.OnPageClassified(chain, page, elapsed)
	p.logger.Debug("page classified",
		zap.String("chain", string(chain)),
		zap.String("address", address),
		zap.Int("transactions", len(page.Transactions)),
		zap.Int("backfills", fungible.Backfills()+nonFungible.Backfills()),
		zap.Duration("elapsed", elapsed),
	)
	return page, nil
}

// CountTransactions returns the wallet's total transaction count.
func (p *Pager) CountTransactions(ctx context.Context, chain domain.Chain, rawAddress string) (TransactionCount, error) {
	address, err := ValidateAddress(rawAddress)
	if err != nil {
		return TransactionCount{}, err
	}
	if chain == "" {
		chain = domain.ChainEthereum
	}
	count, err := p.source.TransactionCount(ctx, chain, address)
	if err != nil {
		p.reportUpstream(err)
		return TransactionCount{}, err
	}
	return TransactionCount{Count: count, WalletAddress: address}, nil
}

func (p *Pager) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.reportUpstream(err)
	return err
}

func (p *Pager) reportUpstream(err error) {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		p.observer.OnUpstreamError(upstream.Op)
		p.logger.Warn("upstream call failed", zap.String("op", upstream.Op), zap.Int("status", upstream.Status), zap.Error(err))
	}
}
