package service

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"scrap/internal/domain"
)

// WeightEntry is one measured material line submitted at the doorstep.
type WeightEntry struct {
	Category     domain.WasteCategory
	ActualWeight decimal.Decimal
	UnitPrice    decimal.Decimal
}

// Reconciliation is the outcome of matching measured weights to requested items.
type Reconciliation struct {
	Items       []domain.PickupItem
	TotalWeight decimal.Decimal
	TotalAmount decimal.Decimal

	// Ignored lists submitted categories that match no requested item.
	Ignored []domain.WasteCategory
}

// Reconcile applies entries to items by category. Requested items without an
// entry keep no actual values; entries without a requested item are ignored.
// Totals sum every item, counting missing actuals as zero.
func Reconcile(items []domain.PickupItem, entries []WeightEntry) (*Reconciliation, error) {
	v := &domain.ValidationError{}
	if len(entries) == 0 {
		v.Add("items", "at least one weighed item is required")
	}
	for i, e := range entries {
		if !e.ActualWeight.IsPositive() {
			v.Addf(fmt.Sprintf("items[%d].actual_weight", i), "must be positive")
		}
		if !e.UnitPrice.IsPositive() {
			v.Addf(fmt.Sprintf("items[%d].unit_price", i), "must be positive")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	r := &Reconciliation{
		Items:       make([]domain.PickupItem, len(items)),
		TotalWeight: decimal.Zero,
		TotalAmount: decimal.Zero,
	}
	copy(r.Items, items)

	index := make(map[domain.WasteCategory]int, len(items))
	for i := range r.Items {
		index[r.Items[i].Category] = i
	}

	for _, e := range entries {
		i, ok := index[e.Category]
		if !ok {
			r.Ignored = append(r.Ignored, e.Category)
			continue
		}
		weight, price := e.ActualWeight, e.UnitPrice
		amount := weight.Mul(price).Round(2)
		r.Items[i].ActualWeight = &weight
		r.Items[i].ActualUnitPrice = &price
		r.Items[i].ActualAmount = &amount
	}

	for _, item := range r.Items {
		if item.ActualWeight != nil {
			r.TotalWeight = r.TotalWeight.Add(*item.ActualWeight)
		}
		if item.ActualAmount != nil {
			r.TotalAmount = r.TotalAmount.Add(*item.ActualAmount)
		}
	}

	return r, nil
}

// SubmitWeightsResponse contains the weighed pickup and any ignored entries.
type SubmitWeightsResponse struct {
	Pickup  *domain.PickupRequest
	Ignored []domain.WasteCategory
}

// SubmitWeights records the doorstep weigh-in and moves the pickup to WEIGHING.
func (s *PickupService) SubmitWeights(ctx context.Context, actor domain.Actor, id string, entries []WeightEntry) (*SubmitWeightsResponse, error) {
	actor, err := s.collectorActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	var ignored []domain.WasteCategory
	pickup, err := s.advance(ctx, actor, id, domain.PickupStatusWeighing, func(p *domain.PickupRequest) error {
		r, err := Reconcile(p.Items, entries)
		if err != nil {
			return err
		}
		p.Items = r.Items
		p.TotalActualWeight = &r.TotalWeight
		p.TotalActualAmount = &r.TotalAmount
		ignored = r.Ignored
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(ignored) > 0 {
		log.Printf("[WEIGHING] pickup %s: ignored categories not in request: %v", id, ignored)
	}

	return &SubmitWeightsResponse{Pickup: pickup, Ignored: ignored}, nil
}
