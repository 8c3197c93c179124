package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	convKeyPattern  = "conv:state:%s"
	convScanPattern = "conv:state:*"
)

// RedisStorage persists conversations in Redis.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage implementation. Each
// write refreshes the TTL so active conversations survive and stale ones lapse.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) Storage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// Get returns the stored conversation or ErrNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, userID string) (*Conversation, error) {
	key := redisConvKey(userID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		s.log.Error("failed to get conversation from redis", "user_id", userID, "error", err)
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		s.log.Error("failed to decode conversation", "user_id", userID, "error", err)
		return nil, err
	}

	return &conv, nil
}

// Set saves the provided conversation, refreshing the TTL.
func (s *RedisStorage) Set(ctx context.Context, userID string, conv *Conversation) error {
	conv.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(conv)
	if err != nil {
		s.log.Error("failed to encode conversation", "user_id", userID, "error", err)
		return err
	}

	key := redisConvKey(userID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save conversation in redis", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// Clear removes the stored conversation for the given user.
func (s *RedisStorage) Clear(ctx context.Context, userID string) error {
	key := redisConvKey(userID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.log.Error("failed to clear conversation", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// All retrieves every stored conversation by scanning Redis keys.
func (s *RedisStorage) All(ctx context.Context) ([]*Conversation, error) {
	var (
		cursor uint64
		result []*Conversation
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, convScanPattern, 100).Result()
		if err != nil {
			s.log.Error("failed to scan conversations", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch conversation", "key", key, "error", err)
				return nil, err
			}

			var conv Conversation
			if err := json.Unmarshal([]byte(data), &conv); err != nil {
				s.log.Error("failed to decode conversation", "key", key, "error", err)
				continue
			}

			copied := conv
			result = append(result, &copied)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func redisConvKey(userID string) string {
	return fmt.Sprintf(convKeyPattern, userID)
}
