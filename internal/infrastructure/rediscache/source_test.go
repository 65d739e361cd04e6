package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"txfeed/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	values  map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	if m.readErr != nil {
		return redis.NewSliceResult(nil, m.readErr)
	}
	out := make([]any, len(keys))
	for i, key := range keys {
		if v, ok := m.values[key]; ok {
			out[i] = v
		}
	}
	return redis.NewSliceResult(out, nil)
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryCache) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

type countingSource struct {
	fungible []domain.ContractMetadata
	requests [][]domain.ContractKey
	err      error
}

func (c *countingSource) FungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	c.requests = append(c.requests, keys)
	if c.err != nil {
		return nil, c.err
	}
	var out []domain.ContractMetadata
	for _, m := range c.fungible {
		for _, k := range keys {
			if k.Address == m.Address {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (c *countingSource) NonFungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	c.requests = append(c.requests, keys)
	return nil, c.err
}

func (c *countingSource) Ping(ctx context.Context) error { return c.err }

var (
	usdc    = domain.ContractKey{ChainID: 1, Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}
	unknown = domain.ContractKey{ChainID: 1, Address: "0x000000000000000000000000000000000000dead"}
)

func TestSource_ReadThroughWithNegativeEntries(t *testing.T) {
	inner := &countingSource{fungible: []domain.ContractMetadata{{ChainID: 1, Address: usdc.Address, Symbol: "USDC", Decimals: 6}}}
	cache := newMemoryCache()
	source, err := NewSource(inner, cache, time.Minute, nil)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := source.FungibleContracts(ctx, []domain.ContractKey{usdc, unknown})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, missingMarker, cache.values[cacheKey(kindFungible, unknown)])
	assert.Equal(t, time.Minute, cache.ttls[cacheKey(kindFungible, usdc)])

	second, err := source.FungibleContracts(ctx, []domain.ContractKey{usdc, unknown})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, inner.requests, 1, "second lookup is served from cache")
}

func TestSource_OnlyMissesReachInner(t *testing.T) {
	inner := &countingSource{fungible: []domain.ContractMetadata{{ChainID: 1, Address: usdc.Address, Decimals: 6}}}
	cache := newMemoryCache()
	cache.values[cacheKey(kindFungible, unknown)] = missingMarker
	source, err := NewSource(inner, cache, 0, nil)
	require.NoError(t, err)

	_, err = source.FungibleContracts(context.Background(), []domain.ContractKey{usdc, unknown})
	require.NoError(t, err)
	require.Len(t, inner.requests, 1)
	assert.Equal(t, []domain.ContractKey{usdc}, inner.requests[0])
	assert.Equal(t, defaultTTL, cache.ttls[cacheKey(kindFungible, usdc)])
}

func TestSource_CacheReadFailureFallsBack(t *testing.T) {
	inner := &countingSource{fungible: []domain.ContractMetadata{{ChainID: 1, Address: usdc.Address}}}
	cache := newMemoryCache()
	cache.readErr = errors.New("connection refused")
	source, err := NewSource(inner, cache, time.Minute, nil)
	require.NoError(t, err)

	out, err := source.FungibleContracts(context.Background(), []domain.ContractKey{usdc})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Empty(t, cache.values)
}

func TestSource_InnerErrorIsNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("metadata down")}
	cache := newMemoryCache()
	source, err := NewSource(inner, cache, time.Minute, nil)
	require.NoError(t, err)

	_, err = source.NonFungibleContracts(context.Background(), []domain.ContractKey{usdc})
	require.Error(t, err)
	assert.Empty(t, cache.values)
}

func TestDial_EmptyAddrReturnsInner(t *testing.T) {
	inner := &countingSource{}
	source, closeFn, err := Dial(inner, Config{}, nil)
	require.NoError(t, err)
	assert.Same(t, inner, source)
	assert.NoError(t, closeFn())
}
