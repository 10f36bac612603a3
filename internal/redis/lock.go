package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds the caller's token,
// so an expired lock re-taken by someone else is never released early.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client redis.Cmdable
}

// NewLockStore creates a new LockStore.
func NewLockStore(client redis.Cmdable) *LockStore {
	return &LockStore{client: client}
}

func pickupLockKey(pickupID string) string {
	return fmt.Sprintf("lock:pickup:%s", pickupID)
}

// AcquirePickupLock attempts to take the accept lock for a pickup.
// Returns an empty token if the lock is already held.
func (s *LockStore) AcquirePickupLock(ctx context.Context, pickupID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, pickupLockKey(pickupID), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleasePickupLock releases the accept lock if token still owns it.
func (s *LockStore) ReleasePickupLock(ctx context.Context, pickupID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{pickupLockKey(pickupID)}, token).Err()
}
