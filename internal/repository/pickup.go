package repository

import (
	"context"

	"scrap/internal/domain"
)

// PickupFilter narrows a pickup listing. Zero values match everything.
type PickupFilter struct {
	CustomerID  string
	CollectorID string
	Status      domain.PickupStatus
	Offset      int
	Limit       int
}

// PickupRepository defines the persistence operations for pickup requests.
type PickupRepository interface {
	// Create persists a new pickup at version 1.
	Create(ctx context.Context, pickup *domain.PickupRequest) error

	// GetByID retrieves a pickup by ID.
	GetByID(ctx context.Context, id string) (*domain.PickupRequest, error)

	// UpdateIf writes every mutable field of pickup only when the stored row is
	// still at expectedStatus and expectedVersion. On success pickup.Version is
	// advanced. Returns ErrConflict when the row moved on.
	UpdateIf(ctx context.Context, pickup *domain.PickupRequest, expectedStatus domain.PickupStatus, expectedVersion int) error

	// List returns one page of pickups matching filter, newest first, and the
	// total number of matches.
	List(ctx context.Context, filter PickupFilter) ([]*domain.PickupRequest, int, error)

	// ListAvailable returns REQUESTED pickups in any of postalCodes, soonest
	// scheduled date first, and the total number of matches.
	ListAvailable(ctx context.Context, postalCodes []string, offset, limit int) ([]*domain.PickupRequest, int, error)
}
