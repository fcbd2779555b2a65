package service

import (
	"context"
	"encoding/json"
	"time"

	"economat/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const productCachePrefix = "product:"

// ProductCache keeps rendered product reads in Redis. A nil client disables
// it, which is how unit tests run the services.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductCache(rdb *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProductCache{rdb: rdb, ttl: ttl}
}

func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, productCachePrefix+id.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("product cache read failed")
		}
		return nil, false
	}
	var resp dto.ProductResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *ProductCache) Set(ctx context.Context, resp *dto.ProductResponse) {
	if c == nil || c.rdb == nil || resp == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, productCachePrefix+resp.ID, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("product cache write failed")
	}
}

// Invalidate drops the cached entries of every given product.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if c == nil || c.rdb == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productCachePrefix+id.String())
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Int("keys", len(keys)).Msg("product cache invalidation failed")
	}
}
