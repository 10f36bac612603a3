package redis

import (
	"context"
	"time"

	"scrap/internal/repository"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	// AcquirePickupLock returns a release token when the lock was taken and ""
	// when another holder has it.
	AcquirePickupLock(ctx context.Context, pickupID string, ttl time.Duration) (string, error)
	ReleasePickupLock(ctx context.Context, pickupID, token string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface        = (*LockStore)(nil)
	_ repository.PricingCatalog = (*PricingCache)(nil)
)
