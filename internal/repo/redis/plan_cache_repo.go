package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	planKeyPrefix = "plans:"
	planListKey   = "plans:all"
)

var ErrCacheMiss = errors.New("cache miss")

// PlanCacheRepo keeps JSON snapshots of catalog plans with a short TTL. Cache
// failures never surface to callers of the catalog service; they fall through
// to postgres.
type PlanCacheRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPlanCacheRepo(client *goredis.Client, ttl time.Duration) *PlanCacheRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PlanCacheRepo{client: client, ttl: ttl}
}

func (r *PlanCacheRepo) Get(ctx context.Context, planID string, out any) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}

	raw, err := r.client.Get(ctx, planKey(planID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("get cached plan: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode cached plan: %w", err)
	}

	return nil
}

func (r *PlanCacheRepo) Set(ctx context.Context, planID string, plan any) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return fmt.Errorf("plan id is required")
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan for cache: %w", err)
	}
	if err := r.client.Set(ctx, planKey(planID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cached plan: %w", err)
	}

	return nil
}

func (r *PlanCacheRepo) GetList(ctx context.Context, out any) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, planListKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("get cached plan list: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode cached plan list: %w", err)
	}

	return nil
}

func (r *PlanCacheRepo) SetList(ctx context.Context, plans any) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode plan list for cache: %w", err)
	}
	if err := r.client.Set(ctx, planListKey, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cached plan list: %w", err)
	}

	return nil
}

func planKey(planID string) string {
	return planKeyPrefix + planID
}
