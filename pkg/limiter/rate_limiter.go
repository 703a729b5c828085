package limiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter rate limiter interface
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

if redis.call('ZCARD', key) < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, ttl_ms)
	return 1
end
return 0
`

// SlidingWindowLimiter sliding window rate limiter using Redis
type SlidingWindowLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	script *redis.Script
	seq    atomic.Uint64
	now    func() time.Time
}

// NewSlidingWindowLimiter creates a limiter allowing limit hits per window for each key
func NewSlidingWindowLimiter(client *redis.Client, prefix string, limit int64, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowScript),
		now:    time.Now,
	}
}

// Allow checks if the request is allowed
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now().UnixMilli()
	windowStart := now - l.window.Milliseconds()
	member := fmt.Sprintf("%d-%d", now, l.seq.Add(1))

	result, err := l.script.Run(ctx, l.client,
		[]string{fmt.Sprintf("rate_limit:%s:%s", l.prefix, key)},
		now, windowStart, l.limit, l.window.Milliseconds(), member).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// KeyedLimiter in-process token bucket per key using golang.org/x/time/rate
type KeyedLimiter struct {
	rate  rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedEntry
	now      func() time.Time
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter creates a limiter; buckets idle for longer than ttl are evicted
func NewKeyedLimiter(rps float64, burst int, ttl time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		rate:     rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		limiters: make(map[string]*keyedEntry),
		now:      time.Now,
	}
}

// Allow checks if the request is allowed
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &keyedEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	l.evict(now)

	return entry.limiter.AllowN(now, 1), nil
}

func (l *KeyedLimiter) evict(now time.Time) {
	if l.ttl <= 0 {
		return
	}
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.ttl {
			delete(l.limiters, key)
		}
	}
}

// Len returns the number of tracked keys
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
