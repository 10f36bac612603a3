package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"scrap/internal/domain"
)

func TestAvailablePickups_UnapprovedCollectorForbidden(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.ApprovalStatus{domain.ApprovalPending, domain.ApprovalSuspended} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()
			f := newFixture(PickupConfig{})
			c := approvedCollector("col-1", "user-col-1", "560001")
			c.ApprovalStatus = status
			f.store.AddCollector(c)
			f.store.AddPickup(requestedPickup("pickup-1", "560001"))

			page, _ := NewPage(1, 10)
			got, err := f.matching.AvailablePickups(context.Background(), "user-col-1", page)
			if !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected forbidden, got %v (%v)", err, got)
			}
		})
	}
}

func TestAvailablePickups_AreaAndOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(PickupConfig{})
	f.store.AddCollector(approvedCollector("col-1", "user-col-1", "560001", "560002"))

	tomorrow := time.Now().AddDate(0, 0, 1)

	later := requestedPickup("later", "560001")
	later.ScheduledDate = tomorrow.AddDate(0, 0, 3)
	sooner := requestedPickup("sooner", "560002")
	sooner.ScheduledDate = tomorrow
	elsewhere := requestedPickup("elsewhere", "110001")
	taken := pickupAt("taken", domain.PickupStatusAssigned, "col-9")

	for _, p := range []*domain.PickupRequest{later, sooner, elsewhere, taken} {
		f.store.AddPickup(p)
	}

	page, _ := NewPage(1, 10)
	got, err := f.matching.AvailablePickups(context.Background(), "user-col-1", page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Pickups) != 2 {
		t.Fatalf("expected 2 pickups in area, got %d", len(got.Pickups))
	}
	if got.Pickups[0].ID != "sooner" || got.Pickups[1].ID != "later" {
		t.Errorf("expected soonest first, got %s, %s", got.Pickups[0].ID, got.Pickups[1].ID)
	}
	if got.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", got.Pagination.Total)
	}
}

func TestCheckEligibility(t *testing.T) {
	t.Parallel()
	svc := NewMatchingService(nil, nil)
	pickup := requestedPickup("p", "560001")

	if err := svc.CheckEligibility(approvedCollector("c", "u", "560001"), pickup); err != nil {
		t.Errorf("expected eligible, got %v", err)
	}
	if err := svc.CheckEligibility(approvedCollector("c", "u", "560002"), pickup); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected forbidden for other area, got %v", err)
	}
}

func TestCollectorEarnings_LedgerAndCounters(t *testing.T) {
	t.Parallel()
	f := newFixture(PickupConfig{})
	pickedPickup(f, "1000")

	if _, err := f.settle.Settle(context.Background(), "pickup-1"); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	e, err := f.collector.Earnings(context.Background(), "user-col-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.TotalPickups != 1 || !e.TotalEarnings.Equal(dec("150")) {
		t.Errorf("expected counters 1/150, got %d/%s", e.TotalPickups, e.TotalEarnings)
	}
	if !e.LedgerEarnings.Equal(e.TotalEarnings) {
		t.Errorf("ledger earnings %s disagree with counter %s", e.LedgerEarnings, e.TotalEarnings)
	}
	if !e.Balance.Available.Equal(dec("150")) {
		t.Errorf("expected balance 150, got %s", e.Balance.Available)
	}
}

func TestCollectorEarnings_IgnoresCustomerPayments(t *testing.T) {
	t.Parallel()
	f := newFixture(PickupConfig{})
	pickedPickup(f, "1000")

	if _, err := f.settle.Settle(context.Background(), "pickup-1"); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	// The collector also sold their own scrap.
	now := time.Now()
	f.store.AddEntry(&domain.LedgerEntry{
		ID:          "own-sale",
		UserID:      "user-col-1",
		PickupID:    "pickup-own",
		Type:        domain.EntryTypeCredit,
		Amount:      dec("400"),
		Description: domain.PaymentDescription("ck-own"),
		Status:      domain.EntryStatusCompleted,
		CreatedAt:   now,
		ResolvedAt:  now,
	})

	e, err := f.collector.Earnings(context.Background(), "user-col-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.LedgerEarnings.Equal(dec("150")) {
		t.Errorf("expected ledger earnings 150, got %s", e.LedgerEarnings)
	}
	if !e.Balance.Available.Equal(dec("550")) {
		t.Errorf("expected balance 550, got %s", e.Balance.Available)
	}
}

func TestLedgerEntry_IsCommission(t *testing.T) {
	t.Parallel()

	commission := &domain.LedgerEntry{
		PickupID:    "p",
		Type:        domain.EntryTypeCredit,
		Description: domain.CommissionDescription("abc123"),
		Status:      domain.EntryStatusCompleted,
	}
	if !commission.IsCommission() {
		t.Error("expected commission credit to count")
	}

	payment := *commission
	payment.Description = domain.PaymentDescription("abc123")
	if payment.IsCommission() {
		t.Error("expected customer payment not to count")
	}

	pending := *commission
	pending.Status = domain.EntryStatusPending
	if pending.IsCommission() {
		t.Error("expected pending entry not to count")
	}
}

func TestNewPage(t *testing.T) {
	t.Parallel()

	p, err := NewPage(0, 0)
	if err != nil || p.Number != 1 || p.Limit != DefaultPageLimit {
		t.Errorf("expected defaults, got %+v %v", p, err)
	}
	if p, _ := NewPage(3, 20); p.Offset() != 40 {
		t.Errorf("expected offset 40, got %d", p.Offset())
	}
	for _, tc := range [][2]int{{-1, 10}, {1, 101}, {1, -5}} {
		if _, err := NewPage(tc[0], tc[1]); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("NewPage(%d, %d): expected validation error, got %v", tc[0], tc[1], err)
		}
	}
}
