package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"txfeed/internal/application"
	"txfeed/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix      = "txfeed:contracts:"
	missingMarker  = "-"
	defaultTTL     = time.Hour
	kindFungible   = "erc20"
	kindCollection = "nft"
)

// Cmdable is the subset of go-redis used by the cache.
type Cmdable interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

type Config struct {
	Addr string
	TTL  time.Duration
}

// Source is a read-through cache in front of another ContractSource. Unknown
// contracts are cached too so that repeated misses stay cheap.
type Source struct {
	inner  application.ContractSource
	cache  Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// Dial connects to redis and wraps inner. An empty address returns inner unchanged.
func Dial(inner application.ContractSource, cfg Config, logger *zap.Logger) (application.ContractSource, func() error, error) {
	if inner == nil {
		return nil, nil, errors.New("contract source is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return inner, func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	source, err := NewSource(inner, client, cfg.TTL, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return source, client.Close, nil
}

func NewSource(inner application.ContractSource, cache Cmdable, ttl time.Duration, logger *zap.Logger) (*Source, error) {
	if inner == nil || cache == nil {
		return nil, errors.New("cache dependencies must not be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{inner: inner, cache: cache, ttl: ttl, logger: logger}, nil
}

func (s *Source) FungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	return s.lookup(ctx, kindFungible, keys, s.inner.FungibleContracts)
}

func (s *Source) NonFungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	return s.lookup(ctx, kindCollection, keys, s.inner.NonFungibleContracts)
}

// Ping reports the backing source. Cache failures are only logged.
func (s *Source) Ping(ctx context.Context) error {
	if err := s.cache.Ping(ctx).Err(); err != nil {
		s.logger.Warn("contract cache unreachable", zap.Error(err))
	}
	return s.inner.Ping(ctx)
}

type fetchFunc func(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error)

func (s *Source) lookup(ctx context.Context, kind string, keys []domain.ContractKey, fetch fetchFunc) ([]domain.ContractMetadata, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = cacheKey(kind, key)
	}

	values, err := s.cache.MGet(ctx, cacheKeys...).Result()
	if err != nil {
		s.logger.Warn("contract cache read failed", zap.String("kind", kind), zap.Error(err))
		return fetch(ctx, keys)
	}

	var (
		found  []domain.ContractMetadata
		misses []domain.ContractKey
	)
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			misses = append(misses, keys[i])
			continue
		}
		if raw == missingMarker {
			continue
		}
		var m domain.ContractMetadata
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			misses = append(misses, keys[i])
			continue
		}
		found = append(found, m)
	}
	if len(misses) == 0 {
		return found, nil
	}

	fetched, err := fetch(ctx, misses)
	if err != nil {
		return nil, err
	}
	s.store(ctx, kind, misses, fetched)
	return append(found, fetched...), nil
}

func (s *Source) store(ctx context.Context, kind string, requested []domain.ContractKey, fetched []domain.ContractMetadata) {
	stored := make(map[string]struct{}, len(fetched))
	for _, m := range fetched {
		payload, err := json.Marshal(m)
		if err != nil {
			continue
		}
		for _, key := range requested {
			if !strings.EqualFold(key.Address, m.Address) || (m.ChainID != 0 && m.ChainID != key.ChainID) {
				continue
			}
			k := cacheKey(kind, key)
			stored[k] = struct{}{}
			_ = s.cache.Set(ctx, k, payload, s.ttl).Err()
		}
	}
	for _, key := range requested {
		k := cacheKey(kind, key)
		if _, ok := stored[k]; ok {
			continue
		}
		_ = s.cache.Set(ctx, k, missingMarker, s.ttl).Err()
	}
}

func cacheKey(kind string, key domain.ContractKey) string {
	var b strings.Builder
	b.Grow(len(keyPrefix) + len(kind) + 64)
	b.WriteString(keyPrefix)
	b.WriteString(kind)
	b.WriteString(":")
	b.WriteString(strconv.FormatUint(key.ChainID, 10))
	b.WriteString(":")
	b.WriteString(strings.ToLower(key.Address))
	return b.String()
}
