package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalStatus is set by the administrative collaborator. The core only reads it.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "PENDING"
	ApprovalApproved  ApprovalStatus = "APPROVED"
	ApprovalSuspended ApprovalStatus = "SUSPENDED"
)

// DefaultCommissionRate is the percentage applied when a profile has none.
var DefaultCommissionRate = decimal.NewFromInt(15)

var hundred = decimal.NewFromInt(100)

// CollectorProfile is the collector-side view of a user.
type CollectorProfile struct {
	ID                  string
	UserID              string
	ApprovalStatus      ApprovalStatus
	ServicedPostalCodes []string
	CommissionRate      decimal.Decimal // percent, 0-100
	Rating              decimal.Decimal

	// TotalPickups and TotalEarnings are caches maintained by settlement.
	// The ledger remains authoritative.
	TotalPickups  int
	TotalEarnings decimal.Decimal

	CreatedAt time.Time
}

// Approved reports whether the collector may browse and accept pickups.
func (c *CollectorProfile) Approved() bool {
	return c.ApprovalStatus == ApprovalApproved
}

// Serves reports whether postalCode is in the collector's coverage.
func (c *CollectorProfile) Serves(postalCode string) bool {
	for _, pc := range c.ServicedPostalCodes {
		if pc == postalCode {
			return true
		}
	}
	return false
}

// Commission returns the collector's cut of amount, rounded to 2 places.
func (c *CollectorProfile) Commission(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.CommissionRate).Div(hundred).Round(2)
}
