// Package ratelimit limits how many requests a key may make per window.
//
// Both limiters are configured the way rate-limiter-flexible is: a fixed number of
// points that may be consumed per duration.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Result describes the outcome of consuming one point
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter consumes points for a key
type Limiter interface {
	Consume(ctx context.Context, key string) (Result, error)
}

// RedisLimiter is a fixed-window counter shared by every API instance
type RedisLimiter struct {
	rdb      *redis.Client
	prefix   string
	points   int
	duration time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string, points int, duration time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, points: points, duration: duration}
}

func (l *RedisLimiter) Consume(ctx context.Context, key string) (Result, error) {
	redisKey := "ratelimit:" + l.prefix + ":" + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true}, err
	}

	count := int(incr.Val())
	window := ttl.Val()
	// First hit in the window (or a key left without expiry) starts the window
	if count == 1 || window < 0 {
		if err := l.rdb.PExpire(ctx, redisKey, l.duration).Err(); err != nil {
			return Result{Allowed: true}, err
		}
		window = l.duration
	}

	if count > l.points {
		return Result{Allowed: false, RetryAfter: window}, nil
	}
	return Result{Allowed: true, Remaining: l.points - count}, nil
}

// MemoryLimiter keeps a token bucket per key in process memory
type MemoryLimiter struct {
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewMemoryLimiter(points int, duration time.Duration) *MemoryLimiter {
	if points < 1 {
		points = 1
	}
	return &MemoryLimiter{
		limit:    rate.Every(duration / time.Duration(points)),
		burst:    points,
		idleTTL:  duration * 2,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Consume(_ context.Context, key string) (Result, error) {
	now := l.now()
	lim := l.get(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Result{Allowed: false, RetryAfter: time.Duration(float64(time.Second) / float64(l.limit))}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: delay}, nil
	}
	return Result{Allowed: true, Remaining: int(lim.TokensAt(now))}, nil
}

func (l *MemoryLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.lastSeen[key] = now
	return lim
}

// Cleanup drops limiters for keys idle longer than twice the window
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, seen := range l.lastSeen {
		if now.Sub(seen) > l.idleTTL {
			delete(l.limiters, key)
			delete(l.lastSeen, key)
		}
	}
}

// Size returns the number of tracked keys
func (l *MemoryLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RunCleanup calls Cleanup every interval until ctx is done
func (l *MemoryLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
