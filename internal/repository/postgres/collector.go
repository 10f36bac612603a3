package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

const collectorColumns = `id, user_id, approval_status, serviced_postal_codes, commission_rate, rating, total_pickups, total_earnings, created_at`

// CollectorRepository is a PostgreSQL implementation of repository.CollectorRepository.
type CollectorRepository struct {
	q Querier
}

// NewCollectorRepository creates a new PostgreSQL collector repository.
func NewCollectorRepository(db *sql.DB) *CollectorRepository {
	return &CollectorRepository{q: db}
}

// NewCollectorRepositoryWithTx creates a collector repository using a transaction.
func NewCollectorRepositoryWithTx(tx *sql.Tx) *CollectorRepository {
	return &CollectorRepository{q: tx}
}

// GetByID retrieves a profile by ID.
func (r *CollectorRepository) GetByID(ctx context.Context, id string) (*domain.CollectorProfile, error) {
	return r.get(ctx, `SELECT `+collectorColumns+` FROM collector_profiles WHERE id = $1`, id)
}

// GetByUserID retrieves the profile owned by userID.
func (r *CollectorRepository) GetByUserID(ctx context.Context, userID string) (*domain.CollectorProfile, error) {
	return r.get(ctx, `SELECT `+collectorColumns+` FROM collector_profiles WHERE user_id = $1`, userID)
}

func (r *CollectorRepository) get(ctx context.Context, query, arg string) (*domain.CollectorProfile, error) {
	var c domain.CollectorProfile
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&c.ID,
		&c.UserID,
		&c.ApprovalStatus,
		pq.Array(&c.ServicedPostalCodes),
		&c.CommissionRate,
		&c.Rating,
		&c.TotalPickups,
		&c.TotalEarnings,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// IncrementStats adds one pickup and earnings to the profile counters.
func (r *CollectorRepository) IncrementStats(ctx context.Context, id string, earnings decimal.Decimal) error {
	query := `
		UPDATE collector_profiles
		SET total_pickups = total_pickups + 1, total_earnings = total_earnings + $1
		WHERE id = $2
	`

	result, err := r.q.ExecContext(ctx, query, earnings, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
