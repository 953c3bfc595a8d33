package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/replygate/replygate/internal/infrastructure/ratelimit"
	"github.com/replygate/replygate/internal/shared/logger"
	"github.com/replygate/replygate/internal/shared/utils"
)

// ConnectLimit throttles pairing attempts per tenant. Each connect asks
// the bridge for a fresh pairing challenge, which the far end rations.
func ConnectLimit(limiter ratelimit.RateLimiter, cfg ratelimit.RateLimitConfig, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "connect:" + c.Param("sid")

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg)
		if err != nil {
			// Limiter backend down; let the request through rather than
			// hard-failing every connect.
			log.Warnw("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "too many pairing attempts, please wait before retrying")
			c.Abort()
			return
		}
		c.Next()
	}
}
