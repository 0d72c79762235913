package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sniperlabs/dexsniper/internal/domain"
)

// defaultPriceTTL bounds how stale a cached USD price may get before the
// oracle refetches it.
const defaultPriceTTL = time.Minute

// PriceCache implements domain.PriceCache using plain Redis string keys with
// a TTL. Keys are oracle-chosen, typically "usd:{chain}:{symbol}:{address}".
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. A zero ttl
// selects the default of one minute.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = defaultPriceTTL
	}
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

// SetPrice stores a USD price under the given key with the cache TTL.
func (pc *PriceCache) SetPrice(ctx context.Context, key string, price float64) error {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := pc.rdb.Set(ctx, key, val, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", key, err)
	}
	return nil
}

// GetPrice retrieves a cached USD price. Returns domain.ErrNotFound when the
// key does not exist or has expired.
func (pc *PriceCache) GetPrice(ctx context.Context, key string) (float64, error) {
	val, err := pc.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get price %s: %w", key, err)
	}

	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse price %s: %w", key, err)
	}
	return price, nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
