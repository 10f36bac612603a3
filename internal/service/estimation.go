package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

// DefaultPriceLockWindow is how long the estimated prices are advertised as held.
const DefaultPriceLockWindow = 24 * time.Hour

// HighWeightThreshold is the per-item weight above which a soft warning is raised.
var HighWeightThreshold = decimal.NewFromInt(50)

// ItemEstimate is one requested material line. A nil weight means the customer
// does not know it.
type ItemEstimate struct {
	Category        domain.WasteCategory
	EstimatedWeight *decimal.Decimal
}

// Estimate is the priced result of an estimation.
type Estimate struct {
	Items              []domain.PickupItem
	TotalWeight        *decimal.Decimal // nil when any weight is unknown
	TotalAmount        *decimal.Decimal // nil when any weight is unknown
	PriceLockExpiresAt time.Time
	HighWeightWarning  bool
}

// EstimationService prices requested items against the catalog.
type EstimationService struct {
	catalog    repository.PricingCatalog
	lockWindow time.Duration
}

// NewEstimationService creates a new EstimationService.
func NewEstimationService(catalog repository.PricingCatalog, lockWindow time.Duration) *EstimationService {
	if lockWindow <= 0 {
		lockWindow = DefaultPriceLockWindow
	}
	return &EstimationService{catalog: catalog, lockWindow: lockWindow}
}

// Estimate snapshots the current catalog price into every item. Every invalid
// item is reported in a single *domain.ValidationError.
func (s *EstimationService) Estimate(ctx context.Context, items []ItemEstimate, now time.Time) (*Estimate, error) {
	v := &domain.ValidationError{}
	if len(items) == 0 {
		v.Add("items", "at least one item is required")
		return nil, v
	}

	est := &Estimate{
		Items:              make([]domain.PickupItem, 0, len(items)),
		PriceLockExpiresAt: now.Add(s.lockWindow),
	}

	seen := make(map[domain.WasteCategory]bool, len(items))
	unknown := false
	totalWeight := decimal.Zero
	totalAmount := decimal.Zero

	for i, in := range items {
		field := fmt.Sprintf("items[%d]", i)

		if seen[in.Category] {
			v.Addf(field+".category", "duplicate category %s", in.Category)
			continue
		}
		seen[in.Category] = true

		if in.EstimatedWeight != nil && !in.EstimatedWeight.IsPositive() {
			v.Add(field+".estimated_weight", "must be positive")
		}

		snapshot, err := s.catalog.Lookup(ctx, in.Category)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				v.Addf(field+".category", "pricing not found for waste type: %s", in.Category)
				continue
			}
			return nil, err
		}
		if !snapshot.Active {
			v.Addf(field+".category", "waste type %s is not currently accepted", in.Category)
			continue
		}

		item := domain.PickupItem{
			SchemaVersion: domain.ItemSchemaVersion,
			Category:      in.Category,
			UnitPrice:     snapshot.PricePerUnit,
			MinQuantity:   snapshot.MinQuantity,
		}

		if in.EstimatedWeight == nil {
			unknown = true
		} else {
			w := *in.EstimatedWeight
			amount := w.Mul(snapshot.PricePerUnit).Round(2)
			item.EstimatedWeight = &w
			item.EstimatedAmount = &amount
			totalWeight = totalWeight.Add(w)
			totalAmount = totalAmount.Add(amount)
			if w.GreaterThan(HighWeightThreshold) {
				est.HighWeightWarning = true
			}
		}

		est.Items = append(est.Items, item)
	}

	if err := v.Err(); err != nil {
		return nil, err
	}

	if !unknown {
		est.TotalWeight = &totalWeight
		est.TotalAmount = &totalAmount
	}

	return est, nil
}
