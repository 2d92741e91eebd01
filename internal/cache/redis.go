package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
)

// RedisItemCache реализует item.Cache поверх Redis.
// TTL короткий: в карточке есть остаток, который меняется при каждом чекауте.
type RedisItemCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisItemCache(client *redis.Client) *RedisItemCache {
	return &RedisItemCache{
		client:  client,
		baseTTL: time.Minute,
	}
}

func (c *RedisItemCache) Get(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, item.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var it item.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item failed: %w", err)
	}

	return &it, nil
}

func (c *RedisItemCache) Set(ctx context.Context, it *item.Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("marshal item failed: %w", err)
	}

	// Джиттер, чтобы записи не протухали одновременно.
	ttl := c.baseTTL + time.Duration(rand.Intn(15))*time.Second
	if err := c.client.Set(ctx, cacheKey(it.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisItemCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(id uuid.UUID) string {
	return "item:" + id.String()
}
