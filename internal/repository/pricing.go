package repository

import (
	"context"

	"scrap/internal/domain"
)

// PricingCatalog is the read-only view of the category price list.
type PricingCatalog interface {
	// Lookup returns the current snapshot for category, or ErrNotFound.
	Lookup(ctx context.Context, category domain.WasteCategory) (*domain.PricingSnapshot, error)

	// List returns every category in the catalog, active or not.
	List(ctx context.Context) ([]*domain.PricingSnapshot, error)
}
