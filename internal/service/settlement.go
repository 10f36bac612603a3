package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

// SettlementResult contains the paid pickup and the ledger entries written.
type SettlementResult struct {
	Pickup          *domain.PickupRequest
	CustomerCredit  *domain.LedgerEntry
	CollectorCredit *domain.LedgerEntry // nil when no commission was earned
	Commission      decimal.Decimal
}

// SettlementService turns a PICKED pickup into ledger credits.
type SettlementService struct {
	tx     repository.Transactor
	events notifier
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(tx repository.Transactor, publisher EventPublisher) *SettlementService {
	return &SettlementService{tx: tx, events: notifier{publisher: publisher}}
}

// Settle marks the pickup PAID, credits the customer with the weighed amount
// and the collector with their commission, and bumps the collector counters.
// All of it commits together or not at all. Settling twice fails with an
// invalid transition and writes nothing.
func (s *SettlementService) Settle(ctx context.Context, pickupID string) (*SettlementResult, error) {
	var result *SettlementResult

	err := s.tx.RunInTx(ctx, func(st repository.Store) error {
		current, err := st.Pickups().GetByID(ctx, pickupID)
		if err != nil {
			return translate(err, domain.ErrPickupNotFound)
		}

		system := domain.SystemActor()
		if err := domain.Authorize(current, system, domain.PickupStatusPaid); err != nil {
			return err
		}
		if current.TotalActualAmount == nil || !current.TotalActualAmount.IsPositive() {
			return ErrAmountNotCalculated
		}

		now := time.Now()
		amount := *current.TotalActualAmount

		next := current.Clone()
		if err := domain.Transition(next, system, domain.PickupStatusPaid, now); err != nil {
			return err
		}
		if err := st.Pickups().UpdateIf(ctx, next, current.Status, current.Version); err != nil {
			return translate(err, domain.ErrPickupNotFound)
		}

		r := &SettlementResult{Pickup: next, Commission: decimal.Zero}

		r.CustomerCredit = credit(next.CustomerID, next.ID, amount, domain.PaymentDescription(shortID(next.ID)), now)
		if err := st.Ledger().Append(ctx, r.CustomerCredit); err != nil {
			return err
		}

		if next.CollectorID != "" {
			profile, err := st.Collectors().GetByID(ctx, next.CollectorID)
			if err != nil {
				return translate(err, domain.ErrCollectorNotFound)
			}

			r.Commission = profile.Commission(amount)
			if r.Commission.IsPositive() {
				r.CollectorCredit = credit(profile.UserID, next.ID, r.Commission, domain.CommissionDescription(shortID(next.ID)), now)
				if err := st.Ledger().Append(ctx, r.CollectorCredit); err != nil {
					return err
				}
			}

			if err := st.Collectors().IncrementStats(ctx, profile.ID, r.Commission); err != nil {
				return translate(err, domain.ErrCollectorNotFound)
			}
		}

		result = r
		return nil
	})
	if err != nil {
		return nil, translate(err, domain.ErrPickupNotFound)
	}

	log.Printf("[SETTLEMENT] pickup %s paid: amount=%s commission=%s",
		result.Pickup.ID, result.CustomerCredit.Amount, result.Commission)

	s.events.pickupChanged(ctx, result.Pickup)
	return result, nil
}

func credit(userID, pickupID string, amount decimal.Decimal, description string, now time.Time) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:          uuid.New().String(),
		UserID:      userID,
		PickupID:    pickupID,
		Type:        domain.EntryTypeCredit,
		Amount:      amount,
		Description: description,
		Status:      domain.EntryStatusCompleted,
		CreatedAt:   now,
		ResolvedAt:  now,
	}
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}
