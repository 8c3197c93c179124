package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cleanerScanBatchCount = 100

// Cleaner clears conversations idle beyond the session TTL on a schedule.
type Cleaner struct {
	redisClient *redis.Client
	storage     Storage
	log         *slog.Logger
	ttl         time.Duration
	interval    time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(redisClient *redis.Client, storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		redisClient: redisClient,
		storage:     storage,
		log:         log,
		ttl:         ttl,
		interval:    interval,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.redisClient == nil || c.storage == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if reason := ctx.Err(); reason != nil {
				c.log.Info("conversation cleaner stopped", slog.String("reason", reason.Error()))
			} else {
				c.log.Info("conversation cleaner stopped")
			}
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// Sweep runs one cleanup pass immediately.
func (c *Cleaner) Sweep(ctx context.Context) {
	if c == nil || c.redisClient == nil || c.storage == nil {
		return
	}
	c.cleanup(ctx)
}

func (c *Cleaner) cleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.redisClient.Scan(ctx, cursor, convScanPattern, cleanerScanBatchCount).Result()
		if err != nil {
			c.log.Error("conversation cleaner scan failed", slog.Any("error", err))
			return
		}

		for _, key := range keys {
			userID, err := extractUserID(key)
			if err != nil {
				c.log.Warn("conversation cleaner unable to parse user id", slog.String("key", key), slog.Any("error", err))
				continue
			}

			conv, err := c.storage.Get(ctx, userID)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					c.log.Error("conversation cleaner failed to load conversation", slog.String("user_id", userID), slog.Any("error", err))
				}
				continue
			}

			if conv == nil {
				continue
			}

			if time.Since(conv.UpdatedAt) > c.ttl {
				if err := c.storage.Clear(ctx, userID); err != nil {
					c.log.Error("conversation cleaner failed to clear conversation", slog.String("user_id", userID), slog.Any("error", err))
					continue
				}
				c.log.Info("stale conversation cleared", slog.String("user_id", userID))
			}
		}

		if ctx.Err() != nil || nextCursor == 0 {
			return
		}
		cursor = nextCursor
	}
}

func extractUserID(key string) (string, error) {
	segments := strings.Split(key, ":")
	if len(segments) < 3 || segments[len(segments)-1] == "" {
		return "", fmt.Errorf("invalid key format: %s", key)
	}

	return segments[len(segments)-1], nil
}
