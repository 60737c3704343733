package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	return mr, goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestWebhookDedupMarkAndSeen(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewWebhookDedupRepo(client)
	ctx := context.Background()

	seen, err := repo.Seen(ctx, "subscription_1_42", "charge.success")
	if err != nil {
		t.Fatalf("seen before mark: %v", err)
	}
	if seen {
		t.Fatalf("event must not be seen before marking")
	}

	if err := repo.MarkProcessed(ctx, "subscription_1_42", "charge.success", time.Hour); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	seen, err = repo.Seen(ctx, "subscription_1_42", "charge.success")
	if err != nil {
		t.Fatalf("seen after mark: %v", err)
	}
	if !seen {
		t.Fatalf("event must be seen after marking")
	}

	seen, err = repo.Seen(ctx, "subscription_1_42", "charge.failed")
	if err != nil {
		t.Fatalf("seen other event: %v", err)
	}
	if seen {
		t.Fatalf("different event must have its own dedup key")
	}
}

func TestWebhookDedupKeyExpires(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewWebhookDedupRepo(client)
	ctx := context.Background()

	if err := repo.MarkProcessed(ctx, "promotion_2_7", "charge.success", time.Minute); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	seen, err := repo.Seen(ctx, "promotion_2_7", "charge.success")
	if err != nil {
		t.Fatalf("seen after expiry: %v", err)
	}
	if seen {
		t.Fatalf("dedup key must expire")
	}
}
