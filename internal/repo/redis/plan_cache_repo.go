package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("plan cache miss")

type PlanCacheRepo struct {
	client *goredis.Client
}

type CachedPlan struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Type       string `json:"type"`
	Price      int64  `json:"price"`
	DurationMS int64  `json:"duration_ms"`
}

func NewPlanCacheRepo(client *goredis.Client) *PlanCacheRepo {
	return &PlanCacheRepo{client: client}
}

func planKey(kind, planType string) string {
	return fmt.Sprintf("plans:%s:%s", kind, planType)
}

func (r *PlanCacheRepo) Get(ctx context.Context, kind, planType string) (CachedPlan, error) {
	if r.client == nil {
		return CachedPlan{}, fmt.Errorf("redis client is nil")
	}
	if kind == "" || planType == "" {
		return CachedPlan{}, fmt.Errorf("invalid plan cache lookup payload")
	}

	raw, err := r.client.Get(ctx, planKey(kind, planType)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return CachedPlan{}, ErrCacheMiss
		}
		return CachedPlan{}, fmt.Errorf("get cached plan: %w", err)
	}

	var plan CachedPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return CachedPlan{}, fmt.Errorf("decode cached plan: %w", err)
	}

	return plan, nil
}

func (r *PlanCacheRepo) Set(ctx context.Context, plan CachedPlan, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if plan.Kind == "" || plan.Type == "" || ttl <= 0 {
		return fmt.Errorf("invalid plan cache payload")
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode cached plan: %w", err)
	}

	if err := r.client.Set(ctx, planKey(plan.Kind, plan.Type), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cached plan: %w", err)
	}

	return nil
}

func (r *PlanCacheRepo) Invalidate(ctx context.Context, kind, planType string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if kind == "" || planType == "" {
		return fmt.Errorf("invalid plan cache invalidate payload")
	}

	if err := r.client.Del(ctx, planKey(kind, planType)).Err(); err != nil {
		return fmt.Errorf("invalidate cached plan: %w", err)
	}

	return nil
}
