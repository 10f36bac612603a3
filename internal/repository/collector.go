package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"scrap/internal/domain"
)

// CollectorRepository defines the persistence operations for collector profiles.
// Profiles are created and approved elsewhere; this service only reads them and
// maintains the settlement counters.
type CollectorRepository interface {
	// GetByID retrieves a profile by its ID.
	GetByID(ctx context.Context, id string) (*domain.CollectorProfile, error)

	// GetByUserID retrieves the profile owned by userID.
	GetByUserID(ctx context.Context, userID string) (*domain.CollectorProfile, error)

	// IncrementStats adds one completed pickup and earnings to the profile.
	IncrementStats(ctx context.Context, id string, earnings decimal.Decimal) error
}
