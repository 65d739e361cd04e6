package application

import (
	"context"
	"errors"
	"strings"

	"txfeed/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	StreamFungible    = "erc20"
	StreamNonFungible = "nft"
)

type transferRecord interface {
	TransactionHash() string
	Block() uint64
}

// TransferFetcher loads one page of a transfer stream.
type TransferFetcher[T transferRecord] func(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[T], error)

// TransferWindow is the in-memory slice of one transfer stream currently held
// for a classification pass, together with the cursor of the next page.
type TransferWindow[T transferRecord] struct {
	stream    string
	records   []T
	cursor    string
	lowest    uint64
	pageSize  int
	query     domain.TransferQuery
	fetch     TransferFetcher[T]
	backfills int
	onRefetch func(stream string)
}

// NewTransferWindow builds an empty window; Load fetches its first page.
// The query's block range is kept for every deeper page.
func NewTransferWindow[T transferRecord](stream string, query domain.TransferQuery, fetch TransferFetcher[T]) *TransferWindow[T] {
	return &TransferWindow[T]{
		stream:   stream,
		pageSize: query.Limit,
		query:    query,
		fetch:    fetch,
	}
}

// Load fetches the first page of the stream.
func (w *TransferWindow[T]) Load(ctx context.Context) error {
	if w.fetch == nil {
		return errors.New("transfer fetcher is required")
	}
	query := w.query
	query.Cursor = ""
	page, err := w.fetch(ctx, query)
	if err != nil {
		return err
	}
	w.replace(page)
	return nil
}

// ShouldBackfill reports whether a transaction at block has fallen below the
// held window while a full window implies deeper records may exist.
func (w *TransferWindow[T]) ShouldBackfill(block uint64) bool {
	return w.pageSize > 0 &&
		len(w.records) == w.pageSize &&
		block < w.lowest &&
		w.cursor != ""
}

// Cover backfills until the window reaches block or the stream is exhausted.
func (w *TransferWindow[T]) Cover(ctx context.Context, block uint64) error {
	for w.ShouldBackfill(block) {
		if err := w.backfill(ctx, block); err != nil {
			return err
		}
	}
	return nil
}

func (w *TransferWindow[T]) backfill(ctx context.Context, block uint64) error {
	ctx, span := otel.Tracer("txfeed/feed").Start(ctx, "feed.backfill")
	defer span.End()
	span.SetAttributes(
		attribute.String("stream", w.stream),
		attribute.Int64("block.number", int64(block)),
		attribute.Int64("window.lowest", int64(w.lowest)),
	)

	used := w.cursor
	query := w.query
	query.Cursor = used
	page, err := w.fetch(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	w.replace(page)
	if w.cursor == used {
		// the upstream handed back the same position; stop walking
		w.cursor = ""
	}
	w.backfills++
	if w.onRefetch != nil {
		w.onRefetch(w.stream)
	}
	return nil
}

func (w *TransferWindow[T]) replace(page domain.TransferPage[T]) {
	w.records = page.Records
	w.cursor = page.Cursor
	w.lowest = 0
	for i, record := range page.Records {
		if i == 0 || record.Block() < w.lowest {
			w.lowest = record.Block()
		}
	}
}

// Find returns the record belonging to the transaction hash, if held.
func (w *TransferWindow[T]) Find(hash string) (T, bool) {
	for _, record := range w.records {
		if strings.EqualFold(record.TransactionHash(), hash) {
			return record, true
		}
	}
	var zero T
	return zero, false
}

func (w *TransferWindow[T]) Len() int { return len(w.records) }

func (w *TransferWindow[T]) Lowest() uint64 { return w.lowest }

func (w *TransferWindow[T]) Cursor() string { return w.cursor }

func (w *TransferWindow[T]) Backfills() int { return w.backfills }

// TransferLookup answers correlation queries against the held windows.
type TransferLookup interface {
	FindFungible(hash string) (domain.FungibleTransfer, bool)
	FindNonFungible(hash string) (domain.NonFungibleTransfer, bool)
}

// Correlator pairs the fungible and non-fungible windows of one pass.
type Correlator struct {
	fungible    *TransferWindow[domain.FungibleTransfer]
	nonFungible *TransferWindow[domain.NonFungibleTransfer]
}

func NewCorrelator(fungible *TransferWindow[domain.FungibleTransfer], nonFungible *TransferWindow[domain.NonFungibleTransfer], onRefetch func(stream string)) *Correlator {
	fungible.onRefetch = onRefetch
	nonFungible.onRefetch = onRefetch
	return &Correlator{fungible: fungible, nonFungible: nonFungible}
}

// Advance brings both windows down to block. Fetches run sequentially and
// block the caller.
func (c *Correlator) Advance(ctx context.Context, block uint64) error {
	if err := c.fungible.Cover(ctx, block); err != nil {
		return err
	}
	return c.nonFungible.Cover(ctx, block)
}

func (c *Correlator) FindFungible(hash string) (domain.FungibleTransfer, bool) {
	return c.fungible.Find(hash)
}

func (c *Correlator) FindNonFungible(hash string) (domain.NonFungibleTransfer, bool) {
	return c.nonFungible.Find(hash)
}
