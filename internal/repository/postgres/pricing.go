package postgres

import (
	"context"
	"database/sql"
	"errors"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

// PricingCatalog reads the waste_prices table. Catalog edits are owned by the
// admin collaborator.
type PricingCatalog struct {
	q Querier
}

// NewPricingCatalog creates a new PostgreSQL pricing catalog.
func NewPricingCatalog(db *sql.DB) *PricingCatalog {
	return &PricingCatalog{q: db}
}

var _ repository.PricingCatalog = (*PricingCatalog)(nil)

// Lookup returns the current snapshot for category.
func (c *PricingCatalog) Lookup(ctx context.Context, category domain.WasteCategory) (*domain.PricingSnapshot, error) {
	query := `SELECT category, price_per_unit, min_quantity, active, updated_at FROM waste_prices WHERE category = $1`

	var s domain.PricingSnapshot
	err := c.q.QueryRowContext(ctx, query, category).Scan(&s.Category, &s.PricePerUnit, &s.MinQuantity, &s.Active, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns every category in the catalog.
func (c *PricingCatalog) List(ctx context.Context) ([]*domain.PricingSnapshot, error) {
	query := `SELECT category, price_per_unit, min_quantity, active, updated_at FROM waste_prices ORDER BY category`

	rows, err := c.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.PricingSnapshot
	for rows.Next() {
		var s domain.PricingSnapshot
		if err := rows.Scan(&s.Category, &s.PricePerUnit, &s.MinQuantity, &s.Active, &s.UpdatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}
