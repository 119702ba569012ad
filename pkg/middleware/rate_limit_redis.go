package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haikuplus/haikuplus-server/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every instance behind the
// same Redis. Each window allows floor(rps*window)+burst requests per key. When Redis
// cannot be reached requests are let through.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	if window < time.Second {
		window = time.Second
	}
	windowSeconds := int64(window / time.Second)
	allowed := int64(rps*float64(windowSeconds)) + int64(burst)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("rl:%s:%d", rateLimitKey(c), time.Now().Unix()/windowSeconds)

		var incr *redis.IntCmd
		_, err := client.Pipelined(ctx, func(p redis.Pipeliner) error {
			incr = p.Incr(ctx, key)
			p.Expire(ctx, key, window+time.Second)
			return nil
		})
		if err != nil {
			log.Warnf("rate limit check, letting request through: %v", err)
			metrics.RateLimitAllowed.WithLabelValues("redis_unavailable").Inc()
			c.Next()
			return
		}

		count := incr.Val()
		if count > allowed {
			c.Header("Retry-After", strconv.FormatInt(windowSeconds, 10))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(allowed-count, 10))
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
