package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	redisc "github.com/nn1-dev/club-api/internal/pkg/redis"
	"github.com/nn1-dev/club-api/internal/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRateLimit = 20
	rateLimitWindow  = time.Second
)

// RateLimit allows at most max requests per client IP per second.
// Redis errors let the request through.
func RateLimit(rdb *redis.Client, max int) gin.HandlerFunc {
	if max <= 0 {
		max = DefaultRateLimit
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("%srate_limit:%s:%d", redisc.KeyPrefix, ip, time.Now().Unix())

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, rateLimitWindow+time.Second)
		}
		if count > int64(max) {
			c.Header("Retry-After", "1")
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
