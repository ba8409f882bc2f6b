package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/club-backend/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimitKeyPrefix 限流计数 key 前缀
const rateLimitKeyPrefix = "rate_limit:api:"

// RateLimiter 基于 Redis 的固定窗口限流，按客户端 IP 计数
// Redis 不可用时放行
func RateLimiter(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rateLimitKeyPrefix + c.ClientIP()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("限流计数失败", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		// 窗口内第一次请求时设置过期时间
		if count == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				logger.Warn("设置限流窗口失败", zap.String("key", key), zap.Error(err))
			}
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			response.Abort(c, response.CodeTooManyRequests, "")
			return
		}

		c.Next()
	}
}
