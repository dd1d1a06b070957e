// internal/ratelimit/redis.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"hris-cloud/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// slidingWindow prunes, counts and records in one server-side step so every
// API instance sees the same quota.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Redis is a limiter shared by every instance pointing at the same server.
type Redis struct {
	client redis.Scripter
	logger logger.Logger
	now    func() time.Time
}

func NewRedis(client redis.Scripter, log logger.Logger) *Redis {
	return &Redis{
		client: client,
		logger: logger.Component(log, "ratelimit"),
		now:    time.Now,
	}
}

func (r *Redis) Check(ctx context.Context, key string, limit int, window time.Duration) error {
	allowed, err := slidingWindow.Run(ctx, r.client,
		[]string{keyPrefix + key},
		r.now().UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Int()
	if err != nil {
		return fmt.Errorf("rate limit script: %w", err)
	}
	if allowed == 0 {
		r.logger.Debug("rate limit exceeded", map[string]interface{}{"key": key, "limit": limit})
		return &ExceededError{Key: key, Limit: limit, RetryAfter: window}
	}
	return nil
}
