package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit limits requests per client IP using a Redis counter with a
// sliding expiry. INCR and EXPIRE go through one pipeline; a Lua script
// would be fully atomic but the pipeline is close enough for this use.
func RateLimit(redisClient *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// ClientIP respects X-Forwarded-For when trusted proxies are set.
		key := fmt.Sprintf("ratelimit:%s", c.ClientIP())

		pipe := redisClient.Pipeline()
		incrCmd := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			logrus.WithError(err).Error("RateLimit: Redis pipeline failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "rate limiting error"})
			c.Abort()
			return
		}

		count, err := incrCmd.Result()
		if err != nil {
			logrus.WithError(err).Error("RateLimit: failed to read INCR result after Exec")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "rate limiting error"})
			c.Abort()
			return
		}

		if count > int64(maxRequests) {
			logrus.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"count":     count,
			}).Warn("RateLimit: request rejected")
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
