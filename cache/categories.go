package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const categoriesKey = "el:catalog:categories"

// CategoryCache keeps the distinct catalog categories in redis. Writers to the
// catalog call Invalidate; a miss falls through to the database.
type CategoryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCategoryCache(rdb *redis.Client, ttl time.Duration) *CategoryCache {
	return &CategoryCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached list and whether it was present.
func (c *CategoryCache) Get(ctx context.Context) ([]string, bool, error) {
	b, err := c.rdb.Get(ctx, categoriesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cats []string
	if err := json.Unmarshal(b, &cats); err != nil {
		return nil, false, err
	}
	return cats, true, nil
}

func (c *CategoryCache) Set(ctx context.Context, cats []string) error {
	if cats == nil {
		cats = []string{}
	}
	b, err := json.Marshal(cats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, categoriesKey, b, c.ttl).Err()
}

func (c *CategoryCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, categoriesKey).Err()
}
