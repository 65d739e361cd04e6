package application

import (
	"context"
	"sync"
	"time"

	"txfeed/internal/domain"
)

type fakeSource struct {
	mu sync.Mutex

	pages       map[string]domain.RawPage
	fungible    map[string]domain.TransferPage[domain.FungibleTransfer]
	nonFungible map[string]domain.TransferPage[domain.NonFungibleTransfer]
	count       uint64

	txErr       error
	transferErr error

	txQueries       []domain.TransactionQuery
	transferQueries []domain.TransferQuery
}

func (f *fakeSource) FetchTransactions(ctx context.Context, query domain.TransactionQuery) (domain.RawPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txQueries = append(f.txQueries, query)
	if f.txErr != nil {
		return domain.RawPage{}, f.txErr
	}
	return f.pages[query.Cursor], nil
}

func (f *fakeSource) FetchFungibleTransfers(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[domain.FungibleTransfer], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferQueries = append(f.transferQueries, query)
	if f.transferErr != nil {
		return domain.TransferPage[domain.FungibleTransfer]{}, f.transferErr
	}
	return f.fungible[query.Cursor], nil
}

func (f *fakeSource) FetchNonFungibleTransfers(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[domain.NonFungibleTransfer], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferQueries = append(f.transferQueries, query)
	if f.transferErr != nil {
		return domain.TransferPage[domain.NonFungibleTransfer]{}, f.transferErr
	}
	return f.nonFungible[query.Cursor], nil
}

func (f *fakeSource) TransactionCount(ctx context.Context, chain domain.Chain, address string) (uint64, error) {
	if f.txErr != nil {
		return 0, f.txErr
	}
	return f.count, nil
}

func (f *fakeSource) transferCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transferQueries)
}

type fakeContracts struct {
	mu sync.Mutex

	fungible    []domain.ContractMetadata
	nonFungible []domain.ContractMetadata
	err         error
	keys        [][]domain.ContractKey
}

func (f *fakeContracts) FungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys)
	if f.err != nil {
		return nil, f.err
	}
	return f.fungible, nil
}

func (f *fakeContracts) NonFungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys)
	if f.err != nil {
		return nil, f.err
	}
	return f.nonFungible, nil
}

func (f *fakeContracts) Ping(ctx context.Context) error { return f.err }

func (f *fakeContracts) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

type recordingObserver struct {
	mu        sync.Mutex
	pages     int
	backfills map[string]int
	errors    []string
}

func (o *recordingObserver) OnPageClassified(chain domain.Chain, page domain.Page, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pages++
}

func (o *recordingObserver) OnBackfill(stream string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.backfills == nil {
		o.backfills = make(map[string]int)
	}
	o.backfills[stream]++
}

func (o *recordingObserver) OnUpstreamError(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, op)
}

func decoded(signature string, params ...domain.Param) *domain.DecodedCall {
	return &domain.DecodedCall{Signature: signature, Params: params}
}
