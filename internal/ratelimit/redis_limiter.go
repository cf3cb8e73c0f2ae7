package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a sliding window limiter shared across server
// instances via Redis sorted sets.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	script *redis.Script
}

// slidingWindowScript trims expired entries, counts the window, and
// records the request only when it is allowed.
const slidingWindowScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local current = redis.call('ZCARD', key)
local allowed = current < limit

if allowed then
    redis.call('ZADD', key, now, now .. ':' .. math.random())
    current = current + 1
    redis.call('PEXPIRE', key, window)
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local resetTime = now + window
if oldest[2] then
    resetTime = tonumber(oldest[2]) + window
end

return {allowed and 1 or 0, current, math.max(0, limit - current), resetTime}
`

// NewRedisLimiter connects to Redis and verifies the connection.
func NewRedisLimiter(addr, password string, db, limit int, window time.Duration) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowScript),
	}, nil
}

// Allow checks and records the request atomically in Redis.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	now := time.Now().UnixMilli()
	result, err := l.script.Run(ctx, l.client, []string{"ratelimit:" + key},
		l.limit, l.window.Milliseconds(), now).Result()
	if err != nil {
		return nil, fmt.Errorf("sliding window script failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 4 {
		return nil, fmt.Errorf("invalid script result format")
	}

	allowed := toInt64(values[0]) == 1
	remaining := int(toInt64(values[2]))
	retryAfter := time.Duration(0)
	if !allowed {
		retryAfter = time.Duration(toInt64(values[3])-now) * time.Millisecond
		if retryAfter < 0 {
			retryAfter = 0
		}
	}

	return &Decision{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}, nil
}

// Ping reports whether the Redis connection is healthy.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
