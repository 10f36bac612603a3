package repository

import (
	"context"
	"time"

	"scrap/internal/domain"
)

// LedgerFilter narrows a ledger listing for one user.
type LedgerFilter struct {
	UserID string
	Type   domain.EntryType // empty matches all types
	Offset int
	Limit  int
}

// LedgerRepository defines the persistence operations for ledger entries.
// Entries are append-only; the only permitted mutation is resolving a
// PENDING payout.
type LedgerRepository interface {
	// Append persists a new entry.
	Append(ctx context.Context, entry *domain.LedgerEntry) error

	// GetByID retrieves an entry by ID.
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)

	// ListByUser returns one page of a user's entries, newest first, and the
	// total number of matches.
	ListByUser(ctx context.Context, filter LedgerFilter) ([]*domain.LedgerEntry, int, error)

	// AllByUser returns the user's full history in creation order.
	AllByUser(ctx context.Context, userID string) ([]*domain.LedgerEntry, error)

	// ResolvePayout moves a PENDING payout to status. Returns ErrNotFound for an
	// unknown id and ErrConflict when the entry is not a pending payout.
	ResolvePayout(ctx context.Context, id string, status domain.EntryStatus, at time.Time) error
}
