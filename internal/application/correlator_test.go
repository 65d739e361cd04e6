package application

import (
	"context"
	"errors"
	"testing"

	"txfeed/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fungibleAt(hash string, block uint64) domain.FungibleTransfer {
	return domain.FungibleTransfer{TxHash: hash, BlockNumber: block, TokenAddress: "0xtoken", Value: "1"}
}

type pagedFetcher struct {
	pages   map[string]domain.TransferPage[domain.FungibleTransfer]
	queries []domain.TransferQuery
	err     error
}

func (p *pagedFetcher) fetch(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[domain.FungibleTransfer], error) {
	p.queries = append(p.queries, query)
	if p.err != nil && query.Cursor != "" {
		return domain.TransferPage[domain.FungibleTransfer]{}, p.err
	}
	return p.pages[query.Cursor], nil
}

func threePageFetcher() *pagedFetcher {
	return &pagedFetcher{pages: map[string]domain.TransferPage[domain.FungibleTransfer]{
		"": {
			Records: []domain.FungibleTransfer{fungibleAt("0xa", 100), fungibleAt("0xb", 90)},
			Cursor:  "c1",
		},
		"c1": {
			Records: []domain.FungibleTransfer{fungibleAt("0xc", 80), fungibleAt("0xd", 70)},
			Cursor:  "c2",
		},
		"c2": {
			Records: []domain.FungibleTransfer{fungibleAt("0xe", 60)},
		},
	}}
}

func newTestWindow(fetcher *pagedFetcher) *TransferWindow[domain.FungibleTransfer] {
	query := domain.TransferQuery{Chain: domain.ChainEthereum, Address: "0xwallet", FromBlock: 10, ToBlock: 100, Limit: 2}
	return NewTransferWindow[domain.FungibleTransfer](StreamFungible, query, fetcher.fetch)
}

func TestTransferWindow_ShouldBackfill(t *testing.T) {
	fetcher := threePageFetcher()
	window := newTestWindow(fetcher)
	require.NoError(t, window.Load(context.Background()))

	assert.Equal(t, 2, window.Len())
	assert.Equal(t, uint64(90), window.Lowest())
	assert.Equal(t, "c1", window.Cursor())

	assert.False(t, window.ShouldBackfill(95), "block inside the window")
	assert.False(t, window.ShouldBackfill(90), "block equal to the lowest block")
	assert.True(t, window.ShouldBackfill(89), "full window passed going back in time")
}

func TestTransferWindow_CoverWalksDownToBlock(t *testing.T) {
	fetcher := threePageFetcher()
	window := newTestWindow(fetcher)
	ctx := context.Background()
	require.NoError(t, window.Load(ctx))

	require.NoError(t, window.Cover(ctx, 85))
	assert.Equal(t, 1, window.Backfills())
	assert.Equal(t, uint64(70), window.Lowest())
	_, ok := window.Find("0xA")
	assert.False(t, ok, "refetch replaces the window")
	record, ok := window.Find("0XC")
	require.True(t, ok)
	assert.Equal(t, uint64(80), record.BlockNumber)

	require.NoError(t, window.Cover(ctx, 75))
	assert.Equal(t, 1, window.Backfills())

	// two pages deeper in one call
	fresh := newTestWindow(threePageFetcher())
	require.NoError(t, fresh.Load(ctx))
	require.NoError(t, fresh.Cover(ctx, 65))
	assert.Equal(t, 2, fresh.Backfills())
	assert.Equal(t, uint64(60), fresh.Lowest())
}

func TestTransferWindow_ShortWindowStopsBackfill(t *testing.T) {
	fetcher := threePageFetcher()
	window := newTestWindow(fetcher)
	ctx := context.Background()
	require.NoError(t, window.Load(ctx))
	require.NoError(t, window.Cover(ctx, 65))
	calls := len(fetcher.queries)

	require.NoError(t, window.Cover(ctx, 10))
	assert.Equal(t, calls, len(fetcher.queries), "short window never refetches")
	_, ok := window.Find("0xdeep")
	assert.False(t, ok)
}

func TestTransferWindow_BackfillKeepsBlockRange(t *testing.T) {
	fetcher := threePageFetcher()
	window := newTestWindow(fetcher)
	ctx := context.Background()
	require.NoError(t, window.Load(ctx))
	require.NoError(t, window.Cover(ctx, 85))

	require.Len(t, fetcher.queries, 2)
	assert.Equal(t, "", fetcher.queries[0].Cursor)
	assert.Equal(t, "c1", fetcher.queries[1].Cursor)
	for _, q := range fetcher.queries {
		assert.Equal(t, uint64(10), q.FromBlock)
		assert.Equal(t, uint64(100), q.ToBlock)
		assert.Equal(t, 2, q.Limit)
	}
}

func TestTransferWindow_RepeatedCursorTerminates(t *testing.T) {
	stuck := domain.TransferPage[domain.FungibleTransfer]{
		Records: []domain.FungibleTransfer{fungibleAt("0xa", 100), fungibleAt("0xb", 90)},
		Cursor:  "same",
	}
	fetcher := &pagedFetcher{pages: map[string]domain.TransferPage[domain.FungibleTransfer]{"": stuck, "same": stuck}}
	window := newTestWindow(fetcher)
	ctx := context.Background()
	require.NoError(t, window.Load(ctx))

	require.NoError(t, window.Cover(ctx, 1))
	assert.Equal(t, 1, window.Backfills())
	assert.Equal(t, "", window.Cursor())
}

func TestTransferWindow_EmptyCursorNeverRefetches(t *testing.T) {
	fetcher := &pagedFetcher{pages: map[string]domain.TransferPage[domain.FungibleTransfer]{
		"": {Records: []domain.FungibleTransfer{fungibleAt("0xa", 100), fungibleAt("0xb", 90)}},
	}}
	window := newTestWindow(fetcher)
	ctx := context.Background()
	require.NoError(t, window.Load(ctx))

	assert.False(t, window.ShouldBackfill(1))
	require.NoError(t, window.Cover(ctx, 1))
	assert.Len(t, fetcher.queries, 1)
}

func TestTransferWindow_BackfillErrorPropagates(t *testing.T) {
	fetcher := threePageFetcher()
	fetcher.err = errors.New("boom")
	window := newTestWindow(fetcher)
	ctx := context.Background()
	require.NoError(t, window.Load(ctx))

	err := window.Cover(ctx, 50)
	require.Error(t, err)
	assert.Equal(t, 0, window.Backfills())
}

func TestCorrelator_AdvanceReportsRefetches(t *testing.T) {
	ctx := context.Background()
	fungible := newTestWindow(threePageFetcher())
	nftQuery := domain.TransferQuery{Limit: 2}
	nonFungible := NewTransferWindow[domain.NonFungibleTransfer](StreamNonFungible, nftQuery,
		func(ctx context.Context, q domain.TransferQuery) (domain.TransferPage[domain.NonFungibleTransfer], error) {
			return domain.TransferPage[domain.NonFungibleTransfer]{
				Records: []domain.NonFungibleTransfer{{TxHash: "0xnft", BlockNumber: 95, TokenID: "7"}},
			}, nil
		})
	require.NoError(t, fungible.Load(ctx))
	require.NoError(t, nonFungible.Load(ctx))

	var refetched []string
	correlator := NewCorrelator(fungible, nonFungible, func(stream string) { refetched = append(refetched, stream) })

	require.NoError(t, correlator.Advance(ctx, 85))
	assert.Equal(t, []string{StreamFungible}, refetched)

	_, ok := correlator.FindFungible("0xc")
	assert.True(t, ok)
	nft, ok := correlator.FindNonFungible("0xNFT")
	require.True(t, ok)
	assert.Equal(t, "7", nft.TokenID)
}
