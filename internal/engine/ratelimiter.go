package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a per-subscriber sliding window limiter. Each admitted
// request is a member of a sorted set scored by its arrival time in ms.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	window      time.Duration
}

// Trims the window, then admits and records the request if the window has
// room. Returns 1 when admitted and 0 otherwise.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

if redis.call('ZCARD', key) >= limit then
    return 0
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window + 1000)
return 1
`)

func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		window:      time.Second,
	}
}

func rlKey(subscriberURL string) string {
	return fmt.Sprintf("rl:%s", subscriberURL)
}

// Allow reports whether another delivery to subscriberURL fits within
// limit per window. A limit <= 0 disables limiting. Redis failures fail
// open.
func (rl *RateLimiter) Allow(ctx context.Context, subscriberURL string, limit int) bool {
	if limit <= 0 {
		return true
	}

	result, err := slidingWindowScript.Run(ctx, rl.redisClient, []string{rlKey(subscriberURL)},
		time.Now().UnixMilli(), rl.window.Milliseconds(), limit, uuid.NewString(),
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "subscriber_url", subscriberURL)
		return true
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "subscriber_url", subscriberURL, "limit", limit)
		return false
	}
	return true
}
