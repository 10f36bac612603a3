package service

import (
	"errors"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

var (
	// ErrWeightNotSubmitted is returned when completing a pickup with no positive weighed amount.
	ErrWeightNotSubmitted = domain.NewError(domain.ErrValidation, "weight must be submitted before completing")

	// ErrAmountNotCalculated is returned when settling a pickup with no positive weighed amount.
	ErrAmountNotCalculated = domain.NewError(domain.ErrValidation, "amount not calculated")

	// ErrPickupLocked is returned when another collector is accepting the same pickup.
	ErrPickupLocked = domain.NewError(domain.ErrConflict, "pickup is being accepted by another collector")

	// ErrInsufficientBalance is returned when a payout exceeds the wallet balance.
	ErrInsufficientBalance = domain.NewError(domain.ErrValidation, "insufficient balance")

	// ErrWalletBusy is returned when a concurrent ledger write invalidated a payout's balance check.
	ErrWalletBusy = domain.NewError(domain.ErrConflict, "wallet was modified concurrently, please retry")

	// ErrPayoutNotFound is returned when a payout result references an unknown entry.
	ErrPayoutNotFound = domain.NewError(domain.ErrNotFound, "payout not found")

	// ErrPayoutResolved is returned when a payout result arrives for an entry that is not pending.
	ErrPayoutResolved = domain.NewError(domain.ErrConflict, "payout already resolved")

	// ErrCustomerOnly is returned when a non-customer requests a pickup.
	ErrCustomerOnly = domain.NewError(domain.ErrForbidden, "only customers can request pickups")

	// ErrCollectorOnly is returned when a non-collector uses a collector operation.
	ErrCollectorOnly = domain.NewError(domain.ErrForbidden, "only collectors can perform this action")

	// ErrPickupAccessDenied is returned when the caller may not view a pickup.
	ErrPickupAccessDenied = domain.NewError(domain.ErrForbidden, "you do not have access to this pickup")
)

// translate maps repository errors onto domain errors. notFound replaces
// repository.ErrNotFound; other errors pass through unchanged.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrConflict):
		return domain.ErrPickupModified
	}
	return err
}
