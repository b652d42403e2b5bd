// Package cache holds the Redis-backed shared cache used across API instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
)

const defaultStageTTL = 10 * time.Minute

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// StageCache stores resolved pipeline stage sets as JSON, one key per organization
type StageCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewStageCache creates a stage cache on top of a Redis client
func NewStageCache(client redis.Cmdable, prefix string, ttl time.Duration) *StageCache {
	if ttl <= 0 {
		ttl = defaultStageTTL
	}
	return &StageCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *StageCache) key(orgID uuid.UUID) string {
	return c.prefix + "stages:" + orgID.String()
}

// GetStages returns the cached stages; found is false on a cache miss
func (c *StageCache) GetStages(ctx context.Context, orgID uuid.UUID) ([]domain.PipelineStage, bool, error) {
	data, err := c.client.Get(ctx, c.key(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read stages from cache: %w", err)
	}

	var stages []domain.PipelineStage
	if err := json.Unmarshal(data, &stages); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached stages: %w", err)
	}
	return stages, true, nil
}

// SetStages caches an organization's stages for the configured TTL
func (c *StageCache) SetStages(ctx context.Context, orgID uuid.UUID, stages []domain.PipelineStage) error {
	data, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("failed to encode stages: %w", err)
	}
	if err := c.client.Set(ctx, c.key(orgID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stages to cache: %w", err)
	}
	return nil
}

// DeleteStages removes an organization's cached stages
func (c *StageCache) DeleteStages(ctx context.Context, orgID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(orgID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached stages: %w", err)
	}
	return nil
}
