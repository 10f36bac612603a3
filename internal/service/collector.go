package service

import (
	"context"

	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

// Earnings summarises a collector's income. TotalPickups and TotalEarnings are
// the cached profile counters; LedgerEarnings is recomputed from the commission
// credits in the ledger. Payments the collector received as a customer are not
// earnings.
type Earnings struct {
	TotalPickups   int             `json:"total_pickups"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	LedgerEarnings decimal.Decimal `json:"ledger_earnings"`
	Balance        Balance         `json:"balance"`
}

// CollectorService serves the collector's own view of their profile.
type CollectorService struct {
	matching *MatchingService
	ledger   repository.LedgerRepository
}

// NewCollectorService creates a new CollectorService.
func NewCollectorService(matching *MatchingService, ledger repository.LedgerRepository) *CollectorService {
	return &CollectorService{matching: matching, ledger: ledger}
}

// Profile returns the caller's collector profile.
func (s *CollectorService) Profile(ctx context.Context, userID string) (*domain.CollectorProfile, error) {
	return s.matching.ResolveCollector(ctx, userID)
}

// Earnings returns the cached counters alongside ledger-derived totals.
func (s *CollectorService) Earnings(ctx context.Context, userID string) (*Earnings, error) {
	profile, err := s.matching.ResolveCollector(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.AllByUser(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}

	earned := decimal.Zero
	for _, e := range entries {
		if e.IsCommission() {
			earned = earned.Add(e.Amount)
		}
	}

	return &Earnings{
		TotalPickups:   profile.TotalPickups,
		TotalEarnings:  profile.TotalEarnings,
		LedgerEarnings: earned,
		Balance:        Project(entries),
	}, nil
}
