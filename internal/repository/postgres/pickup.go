package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

const pickupColumns = `id, customer_id, collector_id, address, items, scheduled_date, scheduled_slot, status,
	total_estimated_weight, total_estimated_amount, total_actual_weight, total_actual_amount,
	convenience_fee, price_lock_expires_at, assisted_mode, notes, photo_url, cancel_reason, version,
	created_at, updated_at, completed_at, paid_at, cancelled_at`

// PickupRepository is a PostgreSQL implementation of repository.PickupRepository.
type PickupRepository struct {
	q Querier
}

// NewPickupRepository creates a new PostgreSQL pickup repository.
func NewPickupRepository(db *sql.DB) *PickupRepository {
	return &PickupRepository{q: db}
}

// NewPickupRepositoryWithTx creates a pickup repository using a transaction.
func NewPickupRepositoryWithTx(tx *sql.Tx) *PickupRepository {
	return &PickupRepository{q: tx}
}

// Create persists a new pickup.
func (r *PickupRepository) Create(ctx context.Context, p *domain.PickupRequest) error {
	address, items, err := encodeSnapshots(p)
	if err != nil {
		return err
	}

	if p.Version == 0 {
		p.Version = 1
	}

	query := `
		INSERT INTO pickup_requests (` + pickupColumns + `, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err = r.q.ExecContext(ctx, query,
		p.ID,
		p.CustomerID,
		nullString(p.CollectorID),
		address,
		items,
		p.ScheduledDate,
		p.ScheduledSlot,
		p.Status,
		nullDecimal(p.TotalEstimatedWeight),
		nullDecimal(p.TotalEstimatedAmount),
		nullDecimal(p.TotalActualWeight),
		nullDecimal(p.TotalActualAmount),
		p.ConvenienceFee,
		p.PriceLockExpiresAt,
		p.AssistedMode,
		nullString(p.Notes),
		nullString(p.PhotoURL),
		nullString(p.CancelReason),
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
		nullTime(p.CompletedAt),
		nullTime(p.PaidAt),
		nullTime(p.CancelledAt),
		p.Address.PostalCode,
	)

	return err
}

// GetByID retrieves a pickup by ID.
func (r *PickupRepository) GetByID(ctx context.Context, id string) (*domain.PickupRequest, error) {
	query := `SELECT ` + pickupColumns + ` FROM pickup_requests WHERE id = $1`

	p, err := scanPickup(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// UpdateIf writes the pickup when the stored status and version still match.
func (r *PickupRepository) UpdateIf(ctx context.Context, p *domain.PickupRequest, expectedStatus domain.PickupStatus, expectedVersion int) error {
	_, items, err := encodeSnapshots(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE pickup_requests
		SET collector_id = $1, items = $2, status = $3,
			total_actual_weight = $4, total_actual_amount = $5,
			cancel_reason = $6, updated_at = $7, completed_at = $8, paid_at = $9, cancelled_at = $10,
			version = version + 1
		WHERE id = $11 AND status = $12 AND version = $13
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(p.CollectorID),
		items,
		p.Status,
		nullDecimal(p.TotalActualWeight),
		nullDecimal(p.TotalActualAmount),
		nullString(p.CancelReason),
		p.UpdatedAt,
		nullTime(p.CompletedAt),
		nullTime(p.PaidAt),
		nullTime(p.CancelledAt),
		p.ID,
		expectedStatus,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrConflict
	}

	p.Version = expectedVersion + 1
	return nil
}

// List returns one page of pickups matching filter.
func (r *PickupRepository) List(ctx context.Context, f repository.PickupFilter) ([]*domain.PickupRequest, int, error) {
	where := `WHERE ($1 = '' OR customer_id = $1) AND ($2 = '' OR collector_id = $2) AND ($3 = '' OR status = $3)`
	args := []any{f.CustomerID, f.CollectorID, string(f.Status)}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM pickup_requests `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + pickupColumns + ` FROM pickup_requests ` + where + ` ORDER BY created_at DESC LIMIT $4 OFFSET $5`
	pickups, err := r.query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return pickups, total, nil
}

// ListAvailable returns REQUESTED pickups within postalCodes.
func (r *PickupRepository) ListAvailable(ctx context.Context, postalCodes []string, offset, limit int) ([]*domain.PickupRequest, int, error) {
	if len(postalCodes) == 0 {
		return nil, 0, nil
	}

	where := `WHERE status = 'REQUESTED' AND postal_code = ANY($1)`
	codes := pq.Array(postalCodes)

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM pickup_requests `+where, codes).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + pickupColumns + ` FROM pickup_requests ` + where + ` ORDER BY scheduled_date ASC, created_at ASC LIMIT $2 OFFSET $3`
	pickups, err := r.query(ctx, query, codes, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return pickups, total, nil
}

func (r *PickupRepository) query(ctx context.Context, query string, args ...any) ([]*domain.PickupRequest, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pickups []*domain.PickupRequest
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, err
		}
		pickups = append(pickups, p)
	}
	return pickups, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPickup(row rowScanner) (*domain.PickupRequest, error) {
	var p domain.PickupRequest
	var collectorID, notes, photoURL, cancelReason sql.NullString
	var address, items []byte
	var estWeight, estAmount, actWeight, actAmount decimal.NullDecimal
	var completedAt, paidAt, cancelledAt sql.NullTime

	if err := row.Scan(
		&p.ID,
		&p.CustomerID,
		&collectorID,
		&address,
		&items,
		&p.ScheduledDate,
		&p.ScheduledSlot,
		&p.Status,
		&estWeight,
		&estAmount,
		&actWeight,
		&actAmount,
		&p.ConvenienceFee,
		&p.PriceLockExpiresAt,
		&p.AssistedMode,
		&notes,
		&photoURL,
		&cancelReason,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
		&completedAt,
		&paidAt,
		&cancelledAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(address, &p.Address); err != nil {
		return nil, fmt.Errorf("decode address of pickup %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(items, &p.Items); err != nil {
		return nil, fmt.Errorf("decode items of pickup %s: %w", p.ID, err)
	}

	p.CollectorID = collectorID.String
	p.Notes = notes.String
	p.PhotoURL = photoURL.String
	p.CancelReason = cancelReason.String
	p.TotalEstimatedWeight = decimalPtr(estWeight)
	p.TotalEstimatedAmount = decimalPtr(estAmount)
	p.TotalActualWeight = decimalPtr(actWeight)
	p.TotalActualAmount = decimalPtr(actAmount)
	if completedAt.Valid {
		p.CompletedAt = completedAt.Time
	}
	if paidAt.Valid {
		p.PaidAt = paidAt.Time
	}
	if cancelledAt.Valid {
		p.CancelledAt = cancelledAt.Time
	}

	return &p, nil
}

func encodeSnapshots(p *domain.PickupRequest) (address, items []byte, err error) {
	if address, err = json.Marshal(p.Address); err != nil {
		return nil, nil, fmt.Errorf("encode address: %w", err)
	}
	if items, err = json.Marshal(p.Items); err != nil {
		return nil, nil, fmt.Errorf("encode items: %w", err)
	}
	return address, items, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
