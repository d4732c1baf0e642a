package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/kiemxuonline/kiemxu/internal/ratelimit"
)

// RateLimitMiddleware limits requests per client IP within a fixed window.
// With no limiter configured it passes everything through.
func RateLimitMiddleware(limiter *ratelimit.Limiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, errConsume := limiter.Consume(c.Request.Context(), scope, c.ClientIP(), limit, window)
		if errConsume != nil {
			// Redis trouble must not take the API down.
			log.WithError(errConsume).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
