package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/kharven/refract/pkg/ports"
)

// retryInterval is how long a blocked Lock waits between acquisition attempts.
const retryInterval = 100 * time.Millisecond

// releaseScript deletes the lock key only while it still carries this
// holder's token, so a slow unlock cannot release a lock that expired and
// was re-acquired by another replica.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// ErrLockAcquire wraps Redis failures during acquisition. Context expiry
// while waiting is returned as the plain context error instead.
var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// Locker implements ports.DistributedLocker on a single Redis instance
// using SET NX with a per-acquisition token.
type Locker struct {
	client *backend.Client
	prefix string
}

// NewLocker creates a locker whose keys live under the given prefix.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

// Lock acquires the key, retrying every retryInterval until the context
// ends. The first attempt happens immediately so the uncontended path pays
// no retry delay.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLockAcquire, err)
		}
		if acquired {
			return l.unlockFunc(lockKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlockFunc(lockKey, token string) ports.UnlockFunc {
	return func(ctx context.Context) error {
		return l.client.Eval(ctx, releaseScript, []string{lockKey}, token).Err()
	}
}
