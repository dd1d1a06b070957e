// Package ratelimit enforces sliding-window submission quotas per client IP
// and per project.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hris-cloud/internal/common/config"
	"hris-cloud/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

var ErrRateLimitExceeded = errors.New("RATE_LIMIT_EXCEEDED")

// Limiter admits at most limit events per key inside any window-long span.
// Pruning, counting and recording happen as one atomic step per key.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) error
}

// ExceededError is returned by Check when the key is over its quota.
type ExceededError struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: %d requests per %s for %s", ErrRateLimitExceeded, e.Limit, e.RetryAfter, e.Key)
}

func (e *ExceededError) Unwrap() error {
	return ErrRateLimitExceeded
}

func IPKey(ip string) string {
	return "ip:" + ip
}

func ProjectKey(projectID string) string {
	return "project:" + projectID
}

// Policy holds the submission quotas.
type Policy struct {
	PerIP      int
	PerProject int
	Window     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{PerIP: 10, PerProject: 100, Window: time.Hour}
}

// PolicyFrom maps the loaded ratelimit section, keeping defaults for unset fields.
func PolicyFrom(c config.RateLimitConfig) Policy {
	p := DefaultPolicy()
	if c.PerIP > 0 {
		p.PerIP = c.PerIP
	}
	if c.PerProject > 0 {
		p.PerProject = c.PerProject
	}
	if c.WindowSeconds > 0 {
		p.Window = c.Window()
	}
	return p
}

// New builds the limiter selected by cfg.Backend. The redis backend needs a
// client; the memory backend is returned for anything else.
func New(cfg config.RateLimitConfig, client *redis.Client, log logger.Logger) (Limiter, error) {
	switch cfg.Backend {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis rate limiter requires a redis client")
		}
		return NewRedis(client, log), nil
	case "", "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}
