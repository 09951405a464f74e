package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the key does not exist or has
// expired. Callers must treat it as a valid outcome, not a failure.
var ErrNotFound = errors.New("kv: key not found")

// KV is the durable key/value store supplied by the deployment
// environment. Single-key atomic operations only; no range or pattern
// queries exist, which is why shop-scoped session lookup needs its own
// index. Implementations must bound every call with a timeout.
type KV interface {
	// Set writes value under key with the given TTL. A zero TTL means
	// no expiry. Every write resets the TTL clock.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX writes only if the key does not already exist and reports
	// whether this call was the first writer.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Del removes the given keys. Deleting absent keys is not an error.
	Del(ctx context.Context, keys ...string) error
}
