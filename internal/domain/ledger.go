package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypePayout EntryType = "PAYOUT"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeCredit, EntryTypeDebit, EntryTypePayout:
		return true
	}
	return false
}

// EntryStatus is the settlement state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusFailed    EntryStatus = "FAILED"
)

// Terminal reports whether an entry in status s may never change again.
func (s EntryStatus) Terminal() bool {
	return s == EntryStatusCompleted || s == EntryStatusFailed
}

// LedgerEntry is an append-only financial fact owned by one user.
type LedgerEntry struct {
	ID           string
	UserID       string
	PickupID     string // empty for payouts
	Type         EntryType
	Amount       decimal.Decimal // always positive
	Description  string
	Status       EntryStatus
	PayoutHandle string // payout destination, e.g. a UPI id
	CreatedAt    time.Time
	ResolvedAt   time.Time
}

const (
	paymentPrefix    = "Payment for pickup #"
	commissionPrefix = "Commission for pickup #"
)

// PaymentDescription describes the customer credit for a settled pickup.
func PaymentDescription(pickupRef string) string {
	return paymentPrefix + pickupRef
}

// CommissionDescription describes the collector credit for a settled pickup.
func CommissionDescription(pickupRef string) string {
	return commissionPrefix + pickupRef
}

// IsCommission reports whether e is a completed commission credit written at
// settlement.
func (e *LedgerEntry) IsCommission() bool {
	return e.Type == EntryTypeCredit &&
		e.Status == EntryStatusCompleted &&
		e.PickupID != "" &&
		strings.HasPrefix(e.Description, commissionPrefix)
}
