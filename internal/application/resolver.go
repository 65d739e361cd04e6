package application

import (
	"context"
	"errors"
	"strings"

	"txfeed/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolver looks up token and collection metadata for the contracts touched
// by one page.
type Resolver struct {
	source ContractSource
	logger *zap.Logger
}

func NewResolver(source ContractSource, logger *zap.Logger) (*Resolver, error) {
	if source == nil {
		return nil, errors.New("contract source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{source: source, logger: logger}, nil
}

// Resolve issues the fungible and non-fungible lookups concurrently. Either
// failure fails the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, chainID uint64, addresses []string) (domain.ContractBook, error) {
	book := domain.NewContractBook()
	keys := contractKeys(chainID, addresses)
	if len(keys) == 0 {
		return book, nil
	}

	var fungible, nonFungible []domain.ContractMetadata
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fungible, err = r.source.FungibleContracts(gctx, keys)
		return err
	})
	g.Go(func() error {
		var err error
		nonFungible, err = r.source.NonFungibleContracts(gctx, keys)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ContractBook{}, err
	}

	for _, m := range fungible {
		if m.ChainID != 0 && m.ChainID != chainID {
			continue
		}
		book.Fungible[normalizeAddress(m.Address)] = m
	}
	for _, m := range nonFungible {
		if m.ChainID != 0 && m.ChainID != chainID {
			continue
		}
		book.NonFungible[normalizeAddress(m.Address)] = m
	}
	r.logger.Debug("contracts resolved",
		zap.Uint64("chainId", chainID),
		zap.Int("requested", len(keys)),
		zap.Int("fungible", len(book.Fungible)),
		zap.Int("nonFungible", len(book.NonFungible)),
	)
	return book, nil
}

func contractKeys(chainID uint64, addresses []string) []domain.ContractKey {
	seen := make(map[string]struct{}, len(addresses))
	keys := make([]domain.ContractKey, 0, len(addresses))
	for _, raw := range addresses {
		addr := normalizeAddress(raw)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		keys = append(keys, domain.ContractKey{ChainID: chainID, Address: addr})
	}
	return keys
}

func normalizeAddress(raw string) string {
	addr := strings.TrimSpace(raw)
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex())
	}
	return strings.ToLower(addr)
}
