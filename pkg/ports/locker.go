package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a previously acquired lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes turns for one exam across server replicas.
// Keys are session IDs; whoever holds the key owns the session's read,
// mutate and write cycle until unlock or TTL expiry.
type DistributedLocker interface {
	// Lock acquires the key or blocks until it can. The TTL bounds how long
	// a crashed holder can wedge the session. The returned UnlockFunc must
	// be called to release; letting the TTL lapse is the failure path, not
	// the normal one.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
