package application

import (
	"context"
	"time"

	"txfeed/internal/domain"
)

// TransactionSource is the upstream indexing API.
type TransactionSource interface {
	FetchTransactions(ctx context.Context, query domain.TransactionQuery) (domain.RawPage, error)
	FetchFungibleTransfers(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[domain.FungibleTransfer], error)
	FetchNonFungibleTransfers(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[domain.NonFungibleTransfer], error)
	TransactionCount(ctx context.Context, chain domain.Chain, address string) (uint64, error)
}

// ContractSource answers batch metadata lookups. Addresses missing from the
// result are unknown contracts.
type ContractSource interface {
	FungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error)
	NonFungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error)
	Ping(ctx context.Context) error
}

// PageObserver receives per-page classification statistics.
type PageObserver interface {
	OnPageClassified(chain domain.Chain, page domain.Page, elapsed time.Duration)
	OnBackfill(stream string)
	OnUpstreamError(op string)
}

type noopObserver struct{}

func (noopObserver) OnPageClassified(domain.Chain, domain.Page, time.Duration) {}
func (noopObserver) OnBackfill(string)                                         {}
func (noopObserver) OnUpstreamError(string)                                    {}
