package cache

import (
	"context"
	"time"
)

// backend is the primitive key/value contract shared by the redis and
// in-memory implementations. Values are serialized text; Keys enumerates
// keys matching a redis-style glob pattern.
type backend interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Name() string
}
