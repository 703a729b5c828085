package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopease/pkg/limiter"
	"shopease/pkg/log"
	"shopease/pkg/utils"
)

// KeyFunc derives the rate limit key of a request
type KeyFunc func(c *gin.Context) string

// ClientIPKey keys requests by client IP
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit rejects requests over l's budget with 429. Limiter errors fail open.
func RateLimit(l limiter.RateLimiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		allowed, err := l.Allow(c.Request.Context(), k)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"key":   k,
				"path":  c.FullPath(),
				"error": err.Error(),
			}).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			log.WithFields(map[string]interface{}{
				"key":    k,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("Rate limit exceeded")

			c.Header("Retry-After", "1")
			utils.ErrorResponse(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
