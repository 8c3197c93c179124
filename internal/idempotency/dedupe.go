// Package idempotency suppresses duplicate processing of WhatsApp webhook
// deliveries. Meta retries webhooks aggressively, so every inbound message ID
// is checked against Redis before dispatch.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// Deduper records seen message IDs in Redis with a TTL.
type Deduper struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewDeduper constructs a message deduper. ttl <= 0 falls back to 24h, which
// comfortably covers the webhook retry horizon.
func NewDeduper(client *redis.Client, ttl time.Duration, log *slog.Logger) *Deduper {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Deduper{client: client, log: log, ttl: ttl}
}

// FirstTime marks messageID as seen and reports whether this is the first
// delivery. Redis failures err on the side of processing: a duplicate reply
// beats a dropped order.
func (d *Deduper) FirstTime(ctx context.Context, messageID string) (bool, error) {
	if d == nil || d.client == nil || messageID == "" {
		return true, nil
	}

	first, err := d.client.SetNX(ctx, seenKey(messageID), 1, d.ttl).Result()
	if err != nil {
		d.log.Error("message dedupe check failed", slog.String("message_id", messageID), slog.Any("error", err))
		return true, err
	}

	return first, nil
}

func seenKey(messageID string) string {
	return fmt.Sprintf("msg:seen:%s", messageID)
}
