package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// WebhookDedupRepo is the fast-path guard in front of the database's
// conditional update. Keys are written only after a transition has been
// applied, so losing redis can cause extra database round trips but never
// a lost event.
type WebhookDedupRepo struct {
	client *goredis.Client
}

func NewWebhookDedupRepo(client *goredis.Client) *WebhookDedupRepo {
	return &WebhookDedupRepo{client: client}
}

func dedupKey(txRef, event string) string {
	return fmt.Sprintf("webhook:processed:%s:%s", txRef, event)
}

func (r *WebhookDedupRepo) Seen(ctx context.Context, txRef, event string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if txRef == "" || event == "" {
		return false, fmt.Errorf("invalid dedup lookup payload")
	}

	n, err := r.client.Exists(ctx, dedupKey(txRef, event)).Result()
	if err != nil {
		return false, fmt.Errorf("check webhook dedup key: %w", err)
	}

	return n > 0, nil
}

func (r *WebhookDedupRepo) MarkProcessed(ctx context.Context, txRef, event string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if txRef == "" || event == "" || ttl <= 0 {
		return fmt.Errorf("invalid dedup mark payload")
	}

	if err := r.client.SetNX(ctx, dedupKey(txRef, event), 1, ttl).Err(); err != nil {
		return fmt.Errorf("set webhook dedup key: %w", err)
	}

	return nil
}
