package output

import (
	"context"
	"time"
)

// Cache is a key/value store with per-key expiry. An expired entry reads as
// a miss, never as an error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
