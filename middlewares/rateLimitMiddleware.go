package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RateLimiter struct {
	client func() *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter resolves the client per request, so it can be built before Redis is connected.
func NewRateLimiter(client func() *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// counts per company when the caller is known, per client IP otherwise
func rateLimitKey(c *gin.Context) string {
	if companyId, ok := utils.GetCompanyIdFromContext(c.Request.Context()); ok && companyId != "" {
		return "RateLimit:company:" + companyId
	}
	return "RateLimit:ip:" + c.ClientIP()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := rl.client()
		if client == nil {
			c.Next()
			return
		}
		key := rateLimitKey(c)

		// NX: the TTL is set only while the key has none
		var incr *redis.IntCmd
		_, err := client.TxPipelined(c.Request.Context(), func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(c.Request.Context(), key)
			pipe.ExpireNX(c.Request.Context(), key, rl.window)
			return nil
		})
		if err != nil {
			// fail open
			config.GetLogger().WithFields(logrus.Fields{
				"field": "RateLimiter",
				"key":   key,
			}).Error(err.Error())
			c.Next()
			return
		}
		count := incr.Val()

		if count > rl.limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "rate limit exceeded",
				"error":   fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}

		c.Next()
	}
}
