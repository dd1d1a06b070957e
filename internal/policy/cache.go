// internal/policy/cache.go
package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"hris-cloud/internal/models"

	"github.com/redis/go-redis/v9"
)

const contextKeyPrefix = "policy:context:"

// fingerprint identifies a set of policy files by name, size and mtime, so
// any upload, replacement or deletion yields a new cache key.
func fingerprint(files []models.PolicyFile) string {
	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s:%d:%d\n", f.Name, f.Size, f.ModTime.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// contextCache stores extracted policy text in redis. A nil client disables it.
type contextCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func (c *contextCache) get(ctx context.Context, key string) (string, bool, error) {
	if c.client == nil {
		return "", false, nil
	}
	val, err := c.client.Get(ctx, contextKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *contextCache) set(ctx context.Context, key, text string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, contextKeyPrefix+key, text, c.ttl).Err()
}
