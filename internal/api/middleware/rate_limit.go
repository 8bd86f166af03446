package middleware

import (
	"WhatsInbox/internal/pkg/response"
	"WhatsInbox/internal/service"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// WindowCounter 固定窗口计数
type WindowCounter interface {
	Incr(ctx context.Context, subject string, window time.Duration) (int64, error)
}

// RateLimitMiddleware 按客户端 IP 限流，计数器异常时放行
func RateLimitMiddleware(counter WindowCounter, window time.Duration, maxRequests int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		count, err := counter.Incr(c.Request.Context(), c.ClientIP(), window)
		if err != nil {
			log.WarnContext(c.Request.Context(), "rate limiter unavailable, request allowed", "err", err)
			c.Next()
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(maxRequests) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Fail(c, response.TooManyRequests, service.ErrTooManyRequests.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}
