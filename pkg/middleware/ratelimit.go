package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/i18n"
	"smallbiznis-license/pkg/rediskey"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request from client on route fits the budget.
type Limiter interface {
	Allow(ctx context.Context, route, client string) (bool, error)
}

// Counter is the subset of redis commands a fixed window needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter is a fixed-window counter shared by every instance.
type RedisLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRedisLimiter(counter Counter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{counter: counter, limit: limit, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, route, client string) (bool, error) {
	seconds := int64(l.window.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	bucket := l.now().Unix() / seconds
	redisKey := rediskey.BuildRateLimitKey(route, client, bucket)

	count, err := l.counter.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		l.counter.Expire(ctx, redisKey, l.window+time.Second)
	}

	return count <= int64(l.limit), nil
}

// LocalLimiter keeps one token bucket per key in process memory. It is the
// fallback for single-instance deployments running without redis.
type LocalLimiter struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const localSweepThreshold = 10000

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &LocalLimiter{
		buckets: make(map[string]*localBucket),
		limit:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		ttl:     window,
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, route, client string) (bool, error) {
	key := route + ":" + client

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) >= localSweepThreshold {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.ttl {
				delete(l.buckets, k)
			}
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1), nil
}

// RateLimit keys requests by route and client IP. Limiter errors let the request through.
func RateLimit(l Limiter, p *i18n.Printer) gin.HandlerFunc {
	return func(c *gin.Context) {
		route, client := c.FullPath(), c.ClientIP()

		ok, err := l.Allow(c.Request.Context(), route, client)
		if err != nil {
			zap.L().Warn("rate limiter unavailable, allowing request", zap.String("route", route), zap.String("client_ip", client), zap.Error(err))
			c.Next()
			return
		}

		if !ok {
			body := errutil.BaseError{Code: errutil.StatusTooManyRequests, Message: p.Sprintf(i18n.TooManyCalls)}.Body()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, body)
			return
		}

		c.Next()
	}
}
