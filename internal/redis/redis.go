// Package redis 管理进程内唯一的 Redis 连接
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pu-ac-cn/club-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// ErrNotInitialized 未启用或尚未初始化
var ErrNotInitialized = errors.New("Redis 未初始化")

var client *redis.Client

// Init 初始化 Redis 连接
// 未启用时不建立连接，GetClient 返回 nil
func Init(cfg *config.RedisConfig) error {
	if !cfg.Enabled {
		client = nil
		return nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return fmt.Errorf("连接 Redis 失败: %w", err)
	}

	client = c
	return nil
}

// GetClient 获取 Redis 客户端实例，未启用时为 nil
func GetClient() *redis.Client {
	return client
}

// Enabled Redis 是否可用
func Enabled() bool {
	return client != nil
}

// Ping 检查连接状态
func Ping(ctx context.Context) error {
	if client == nil {
		return ErrNotInitialized
	}
	return client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
