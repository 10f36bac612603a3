package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

const ledgerColumns = `id, user_id, pickup_id, type, amount, description, status, payout_handle, created_at, resolved_at`

// LedgerRepository is a PostgreSQL implementation of repository.LedgerRepository.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{q: db}
}

// NewLedgerRepositoryWithTx creates a ledger repository using a transaction.
func NewLedgerRepositoryWithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Append persists a new entry.
func (r *LedgerRepository) Append(ctx context.Context, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.q.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		nullString(e.PickupID),
		e.Type,
		e.Amount,
		e.Description,
		e.Status,
		nullString(e.PayoutHandle),
		e.CreatedAt,
		nullTime(e.ResolvedAt),
	)
	return err
}

// GetByID retrieves an entry by ID.
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`

	e, err := scanEntry(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListByUser returns one page of a user's entries.
func (r *LedgerRepository) ListByUser(ctx context.Context, f repository.LedgerFilter) ([]*domain.LedgerEntry, int, error) {
	where := `WHERE user_id = $1 AND ($2 = '' OR type = $2)`

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries `+where, f.UserID, string(f.Type)).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries ` + where + ` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	entries, err := r.query(ctx, query, f.UserID, string(f.Type), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// AllByUser returns the user's full history.
func (r *LedgerRepository) AllByUser(ctx context.Context, userID string) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE user_id = $1 ORDER BY created_at ASC`
	return r.query(ctx, query, userID)
}

// ResolvePayout moves a pending payout to a terminal status.
func (r *LedgerRepository) ResolvePayout(ctx context.Context, id string, status domain.EntryStatus, at time.Time) error {
	query := `
		UPDATE ledger_entries SET status = $1, resolved_at = $2
		WHERE id = $3 AND type = 'PAYOUT' AND status = 'PENDING'
	`

	result, err := r.q.ExecContext(ctx, query, status, at, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrConflict
	}

	return nil
}

func (r *LedgerRepository) query(ctx context.Context, query string, args ...any) ([]*domain.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var pickupID, handle sql.NullString
	var resolvedAt sql.NullTime

	if err := row.Scan(
		&e.ID,
		&e.UserID,
		&pickupID,
		&e.Type,
		&e.Amount,
		&e.Description,
		&e.Status,
		&handle,
		&e.CreatedAt,
		&resolvedAt,
	); err != nil {
		return nil, err
	}

	e.PickupID = pickupID.String
	e.PayoutHandle = handle.String
	if resolvedAt.Valid {
		e.ResolvedAt = resolvedAt.Time
	}
	return &e, nil
}
