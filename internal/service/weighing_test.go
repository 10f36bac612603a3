package service

import (
	"context"
	"errors"
	"testing"

	"scrap/internal/domain"
)

func TestReconcile_MatchesByCategory(t *testing.T) {
	t.Parallel()
	items := requestedPickup("p", "560001").Items

	r, err := Reconcile(items, []WeightEntry{
		{Category: domain.CategoryPaper, ActualWeight: dec("12"), UnitPrice: dec("14")},
		{Category: domain.CategoryMetal, ActualWeight: dec("3"), UnitPrice: dec("35")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !r.TotalWeight.Equal(dec("15")) {
		t.Errorf("expected total weight 15, got %s", r.TotalWeight)
	}
	if !r.TotalAmount.Equal(dec("273")) {
		t.Errorf("expected total amount 273, got %s", r.TotalAmount)
	}
	if !r.Items[0].ActualAmount.Equal(dec("168")) {
		t.Errorf("expected paper actual 168, got %s", r.Items[0].ActualAmount)
	}
	if items[0].ActualWeight != nil {
		t.Error("input items must not be modified")
	}
}

func TestReconcile_UnmatchedEntriesIgnored(t *testing.T) {
	t.Parallel()
	items := requestedPickup("p", "560001").Items

	r, err := Reconcile(items, []WeightEntry{
		{Category: domain.CategoryPaper, ActualWeight: dec("2"), UnitPrice: dec("14")},
		{Category: domain.CategoryGlass, ActualWeight: dec("5"), UnitPrice: dec("5")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(r.Ignored) != 1 || r.Ignored[0] != domain.CategoryGlass {
		t.Errorf("expected GLASS ignored, got %v", r.Ignored)
	}
	if r.Items[1].ActualWeight != nil {
		t.Error("unweighed metal item must keep no actuals")
	}
	if !r.TotalWeight.Equal(dec("2")) || !r.TotalAmount.Equal(dec("28")) {
		t.Errorf("expected totals 2/28, got %s/%s", r.TotalWeight, r.TotalAmount)
	}
	if len(r.Items) != 2 {
		t.Errorf("ignored entries must not add items, got %d", len(r.Items))
	}
}

func TestReconcile_RejectsNonPositiveValues(t *testing.T) {
	t.Parallel()
	items := requestedPickup("p", "560001").Items

	_, err := Reconcile(items, []WeightEntry{
		{Category: domain.CategoryPaper, ActualWeight: dec("0"), UnitPrice: dec("14")},
		{Category: domain.CategoryMetal, ActualWeight: dec("3"), UnitPrice: dec("-1")},
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %v", verr)
	}
}

func TestSubmitWeights_WeighingExample(t *testing.T) {
	t.Parallel()
	f := newFixture(PickupConfig{})
	f.store.AddCollector(approvedCollector("col-1", "user-col-1", "560001"))
	f.store.AddPickup(pickupAt("pickup-1", domain.PickupStatusOnTheWay, "col-1"))

	resp, err := f.pickups.SubmitWeights(context.Background(), collectorUser("user-col-1"), "pickup-1", []WeightEntry{
		{Category: domain.CategoryPaper, ActualWeight: dec("12"), UnitPrice: dec("14")},
		{Category: domain.CategoryMetal, ActualWeight: dec("3"), UnitPrice: dec("35")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.store.GetPickup("pickup-1")
	if stored.Status != domain.PickupStatusWeighing {
		t.Errorf("expected WEIGHING, got %s", stored.Status)
	}
	if !stored.TotalActualWeight.Equal(dec("15")) || !stored.TotalActualAmount.Equal(dec("273")) {
		t.Errorf("expected 15/273, got %s/%s", stored.TotalActualWeight, stored.TotalActualAmount)
	}
	if len(resp.Ignored) != 0 {
		t.Errorf("expected nothing ignored, got %v", resp.Ignored)
	}
}

func TestSubmitWeights_Preconditions(t *testing.T) {
	t.Parallel()

	entries := []WeightEntry{{Category: domain.CategoryPaper, ActualWeight: dec("1"), UnitPrice: dec("14")}}

	tests := []struct {
		name    string
		status  domain.PickupStatus
		userID  string
		entries []WeightEntry
		wantErr error
	}{
		{"not on the way", domain.PickupStatusAssigned, "user-col-1", entries, domain.ErrInvalidTransition},
		{"other collector", domain.PickupStatusOnTheWay, "user-col-2", entries, domain.ErrForbidden},
		{"invalid entries", domain.PickupStatusOnTheWay, "user-col-1", []WeightEntry{{Category: domain.CategoryPaper}}, domain.ErrValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(PickupConfig{})
			f.store.AddCollector(approvedCollector("col-1", "user-col-1", "560001"))
			f.store.AddCollector(approvedCollector("col-2", "user-col-2", "560001"))
			f.store.AddPickup(pickupAt("pickup-1", tt.status, "col-1"))

			_, err := f.pickups.SubmitWeights(context.Background(), collectorUser(tt.userID), "pickup-1", tt.entries)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if stored := f.store.GetPickup("pickup-1"); stored.TotalActualAmount != nil {
				t.Error("nothing must be written on failure")
			}
		})
	}
}
