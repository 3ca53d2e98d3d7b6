package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"questboard/internal/metrics"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
	Burst         int
}

func (c RateLimitConfig) window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// RateLimiter caps requests per caller. With Redis it uses a shared fixed window
// (INCR/EXPIRE); without Redis, or when Redis errors, it falls back to an in-process
// token bucket per caller.
type RateLimiter struct {
	cfg      RateLimitConfig
	redis    *redis.Client
	limiters *xsync.MapOf[string, *rate.Limiter]
}

func NewRateLimiter(cfg RateLimitConfig, client *redis.Client) *RateLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Requests
	}
	return &RateLimiter{
		cfg:      cfg,
		redis:    client,
		limiters: xsync.NewMapOf[string, *rate.Limiter](),
	}
}

// NewRedisClient connects to Redis, returning nil when addr is empty or unreachable so the
// limiter stays available.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger().Warn("redis unavailable, using in-process rate limiting", zap.Error(err))
		client.Close()
		return nil
	}
	return client
}

func callerKey(c *gin.Context) string {
	if user, ok := auth.CurrentUser(c); ok {
		return "u:" + strconv.FormatInt(user.ID, 10)
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) allowLocal(key string) bool {
	limiter, _ := rl.limiters.LoadOrCompute(key, func() *rate.Limiter {
		every := rl.cfg.window() / time.Duration(rl.cfg.Requests)
		return rate.NewLimiter(rate.Every(every), rl.cfg.Burst)
	})
	return limiter.Allow()
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	window := rl.cfg.window()
	redisKey := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + key

	val, err := rl.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if val == 1 {
		rl.redis.Expire(ctx, redisKey, window)
	}
	return val <= int64(rl.cfg.Requests), nil
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := callerKey(c)

		var allowed bool
		if rl.redis != nil {
			ok, err := rl.allowRedis(c.Request.Context(), key)
			if err == nil {
				allowed = ok
			} else {
				c.Header("X-RateLimit-Error", "redis-error")
				allowed = rl.allowLocal(key)
			}
		} else {
			allowed = rl.allowLocal(key)
		}

		if !allowed {
			metrics.RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		metrics.RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
