package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingSnapshot is the catalog price of a category at lookup time.
// Its values are copied into pickup items so catalog edits never reach open pickups.
type PricingSnapshot struct {
	Category     WasteCategory   `json:"category"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	MinQuantity  decimal.Decimal `json:"min_quantity"`
	Active       bool            `json:"active"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
