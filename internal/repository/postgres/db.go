package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"scrap/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier               = (*sql.DB)(nil)
	_ Querier               = (*sql.Tx)(nil)
	_ repository.Store      = (*Store)(nil)
	_ repository.Transactor = (*Transactor)(nil)
)

//go:embed schema.sql
var schema string

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Store bundles the repositories over one Querier.
type Store struct {
	pickups    *PickupRepository
	ledger     *LedgerRepository
	collectors *CollectorRepository
}

// NewStore creates a store backed directly by db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		pickups:    NewPickupRepository(db),
		ledger:     NewLedgerRepository(db),
		collectors: NewCollectorRepository(db),
	}
}

func newTxStore(tx *sql.Tx) *Store {
	return &Store{
		pickups:    NewPickupRepositoryWithTx(tx),
		ledger:     NewLedgerRepositoryWithTx(tx),
		collectors: NewCollectorRepositoryWithTx(tx),
	}
}

func (s *Store) Pickups() repository.PickupRepository       { return s.pickups }
func (s *Store) Ledger() repository.LedgerRepository        { return s.ledger }
func (s *Store) Collectors() repository.CollectorRepository { return s.collectors }

// Transactor runs units of work in serializable transactions.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a transactor over db.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// RunInTx implements repository.Transactor.
func (t *Transactor) RunInTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("[POSTGRES] rollback failed: %v", rbErr)
			}
		}
	}()

	if err = fn(newTxStore(tx)); err != nil {
		return serializationConflict(err)
	}

	if err = tx.Commit(); err != nil {
		return serializationConflict(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// serializationFailure is the SQLSTATE of a serializable transaction that
// lost against a concurrent one.
const serializationFailure = "40001"

func serializationConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == serializationFailure {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}
