package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"goim-friend/pkg/errs"
	"goim-friend/pkg/httpx"
	"goim-friend/pkg/logger"
)

// WindowCounter 固定窗口计数器，由Redis客户端实现
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter 限流器
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// FixedWindowLimiter 固定窗口限流器
type FixedWindowLimiter struct {
	counter WindowCounter
	prefix  string
	limit   int
	window  time.Duration
}

// NewFixedWindowLimiter 创建固定窗口限流器，limit<=0表示不限流
func NewFixedWindowLimiter(counter WindowCounter, prefix string, limit int, window time.Duration) *FixedWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		counter: counter,
		prefix:  prefix,
		limit:   limit,
		window:  window,
	}
}

// Allow 判断本次请求是否允许通过
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	n, err := l.counter.IncrWindow(ctx, fmt.Sprintf("%s:%s", l.prefix, key), l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.limit), nil
}

// RateLimit 按请求者限流，计数器不可用时放行
func RateLimit(limiter RateLimiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := RequesterID(c); ok {
			key = fmt.Sprintf("user:%d", userID)
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn(c.Request.Context(), "Rate limiter unavailable",
				logger.F("key", key),
				logger.F("error", err.Error()))
			c.Next()
			return
		}
		if !allowed {
			log.Warn(c.Request.Context(), "Rate limit exceeded",
				logger.F("key", key),
				logger.F("path", c.Request.URL.Path))
			httpx.AbortWithError(c, errs.RateLimited("too many requests"))
			return
		}

		c.Next()
	}
}
