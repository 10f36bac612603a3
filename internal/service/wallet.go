package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

var payoutHandlePattern = regexp.MustCompile(`^[\w.-]+@[\w]+$`)

// Balance is a wallet projection over a user's ledger.
type Balance struct {
	Available decimal.Decimal `json:"available"`

	// PendingPayouts is informational. Pending payouts do not reduce Available.
	PendingPayouts decimal.Decimal `json:"pending_payouts"`
}

// Project folds entries into a balance: completed credits add, completed
// debits and payouts subtract, anything pending or failed is skipped.
func Project(entries []*domain.LedgerEntry) Balance {
	b := Balance{Available: decimal.Zero, PendingPayouts: decimal.Zero}
	for _, e := range entries {
		switch e.Status {
		case domain.EntryStatusCompleted:
			if e.Type == domain.EntryTypeCredit {
				b.Available = b.Available.Add(e.Amount)
			} else {
				b.Available = b.Available.Sub(e.Amount)
			}
		case domain.EntryStatusPending:
			if e.Type == domain.EntryTypePayout {
				b.PendingPayouts = b.PendingPayouts.Add(e.Amount)
			}
		}
	}
	return b
}

// LedgerPage is one page of ledger entries.
type LedgerPage struct {
	Entries    []*domain.LedgerEntry
	Pagination PageInfo
}

// WalletService projects balances and records payout requests.
type WalletService struct {
	ledger repository.LedgerRepository
	tx     repository.Transactor
	events notifier
}

// NewWalletService creates a new WalletService.
func NewWalletService(ledger repository.LedgerRepository, tx repository.Transactor, publisher EventPublisher) *WalletService {
	return &WalletService{ledger: ledger, tx: tx, events: notifier{publisher: publisher}}
}

// Balance recomputes the user's balance from their full ledger history.
func (s *WalletService) Balance(ctx context.Context, userID string) (Balance, error) {
	entries, err := s.ledger.AllByUser(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Project(entries), nil
}

// Transactions lists the user's ledger, newest first.
func (s *WalletService) Transactions(ctx context.Context, userID string, entryType domain.EntryType, page Page) (*LedgerPage, error) {
	if entryType != "" && !entryType.Valid() {
		return nil, domain.Invalid("type", fmt.Sprintf("unknown entry type %q", entryType))
	}

	entries, total, err := s.ledger.ListByUser(ctx, repository.LedgerFilter{
		UserID: userID,
		Type:   entryType,
		Offset: page.Offset(),
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &LedgerPage{Entries: entries, Pagination: page.info(total)}, nil
}

// RequestPayout records a PENDING payout for the payment gateway. The balance
// check and the insert run in one serializable transaction.
func (s *WalletService) RequestPayout(ctx context.Context, userID string, amount decimal.Decimal, handle string) (*domain.LedgerEntry, error) {
	handle = strings.TrimSpace(handle)
	amount = amount.Round(2)

	v := &domain.ValidationError{}
	if !amount.IsPositive() {
		v.Add("amount", "must be positive")
	}
	if !strings.Contains(handle, "@") || !payoutHandlePattern.MatchString(handle) {
		v.Add("upi_id", "invalid UPI ID")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	err := s.tx.RunInTx(ctx, func(st repository.Store) error {
		history, err := st.Ledger().AllByUser(ctx, userID)
		if err != nil {
			return err
		}
		if Project(history).Available.LessThan(amount) {
			return ErrInsufficientBalance
		}

		entry = &domain.LedgerEntry{
			ID:           uuid.New().String(),
			UserID:       userID,
			Type:         domain.EntryTypePayout,
			Amount:       amount,
			Description:  fmt.Sprintf("Payout to %s", handle),
			Status:       domain.EntryStatusPending,
			PayoutHandle: handle,
			CreatedAt:    time.Now(),
		}
		return st.Ledger().Append(ctx, entry)
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrWalletBusy
	}
	if err != nil {
		return nil, err
	}

	s.events.emit(ctx, Event{Type: EventPayoutRequested, UserID: userID, EntryID: entry.ID, Amount: &entry.Amount})
	return entry, nil
}

// ResolvePayout applies the payment gateway's verdict to a pending payout.
// Resolved entries are never touched again.
func (s *WalletService) ResolvePayout(ctx context.Context, entryID string, status domain.EntryStatus) error {
	if !status.Terminal() {
		return domain.Invalid("status", fmt.Sprintf("payout can only resolve to %s or %s", domain.EntryStatusCompleted, domain.EntryStatusFailed))
	}

	if err := s.ledger.ResolvePayout(ctx, entryID, status, time.Now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrPayoutNotFound
		case errors.Is(err, repository.ErrConflict):
			return ErrPayoutResolved
		}
		return err
	}

	entry, err := s.ledger.GetByID(ctx, entryID)
	if err != nil {
		return translate(err, ErrPayoutNotFound)
	}

	eventType := EventPayoutCompleted
	if status == domain.EntryStatusFailed {
		eventType = EventPayoutFailed
	}
	s.events.emit(ctx, Event{Type: eventType, UserID: entry.UserID, EntryID: entry.ID, Amount: &entry.Amount})
	return nil
}
