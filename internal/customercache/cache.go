// Package customercache provides Redis-backed caching for customer profiles.
package customercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/sabordigital/zappedido/internal/domain"
)

// Cache keeps recently seen customer profiles in Redis to avoid hitting
// Postgres on every inbound message.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a customer cache backed by the provided Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get fetches a cached customer profile if it exists.
func (c *Cache) Get(ctx context.Context, phone string) (*domain.Customer, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached customer: %w", err)
	}

	var customer domain.Customer
	if err := json.Unmarshal(data, &customer); err != nil {
		return nil, fmt.Errorf("decode cached customer: %w", err)
	}

	return &customer, nil
}

// Set stores the customer profile in cache for the provided TTL.
func (c *Cache) Set(ctx context.Context, phone string, customer *domain.Customer, ttl time.Duration) error {
	if c == nil || c.client == nil || customer == nil {
		return nil
	}

	payload, err := json.Marshal(customer)
	if err != nil {
		return fmt.Errorf("encode customer for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(phone), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached customer: %w", err)
	}

	return nil
}

// Invalidate removes the cached profile entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, phone string) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(phone)).Err(); err != nil {
		return fmt.Errorf("delete cached customer: %w", err)
	}

	return nil
}

func cacheKey(phone string) string {
	return fmt.Sprintf("customer:%s", phone)
}
