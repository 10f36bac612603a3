package repository

import "context"

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Pickups() PickupRepository
	Ledger() LedgerRepository
	Collectors() CollectorRepository
}

// Transactor runs fn against a Store bound to a single serializable
// transaction. The transaction commits when fn returns nil and rolls back
// otherwise.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(Store) error) error
}
