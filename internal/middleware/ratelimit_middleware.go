package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hivechat/internal/metrics"
	"hivechat/internal/redis"
	"hivechat/internal/transport/httpdto"
	"hivechat/pkg/logger"
)

// RateLimitMiddleware throttles write endpoints per client IP. The
// limiter fails open: when redis is down the request proceeds, because
// dropping writes over a broken side channel is worse than not
// throttling. Reconnect attempts are not counted here at all.
func RateLimitMiddleware(limiter *redis.RateLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		result, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			if l != nil {
				l.Warnf("rate limiter unavailable: %s", err)
			}
			c.Next()
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			metrics.RateLimitHits.WithLabelValues(c.FullPath()).Inc()
			c.Writer.Header().Set("Retry-After", strconv.Itoa(int(result.ResetIn.Seconds())))
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limited"))
			c.Abort()
			return
		}
		c.Next()
	}
}
