package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// statisticsKey 统计结果缓存 key
const statisticsKey = "club:statistics"

// StatsCache 统计结果缓存
type StatsCache interface {
	// Get 未命中时返回 nil, nil
	Get(ctx context.Context) (*Statistics, error)
	Set(ctx context.Context, stats *Statistics) error
	Invalidate(ctx context.Context) error
}

type redisStatsCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStatsCache 创建基于 Redis 的统计缓存
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) StatsCache {
	return &redisStatsCache{redis: client, ttl: ttl}
}

// Get 读取缓存
func (c *redisStatsCache) Get(ctx context.Context) (*Statistics, error) {
	data, err := c.redis.Get(ctx, statisticsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取统计缓存失败: %w", err)
	}

	var stats Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("反序列化统计缓存失败: %w", err)
	}
	return &stats, nil
}

// Set 写入缓存
func (c *redisStatsCache) Set(ctx context.Context, stats *Statistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("序列化统计结果失败: %w", err)
	}
	if err := c.redis.Set(ctx, statisticsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入统计缓存失败: %w", err)
	}
	return nil
}

// Invalidate 删除缓存
func (c *redisStatsCache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, statisticsKey).Err()
}
