package middleware

import (
	"time"

	"github.com/foliohq/core/internal/pkg/ratelimit"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// RateLimit returns a middleware that enforces a fixed-window rate limit per
// client IP. Authenticated admin requests bypass the limit.
func RateLimit(limiter *ratelimit.Limiter, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		if !limiter.Allow(c.Request.Context(), ip, max, window) {
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
