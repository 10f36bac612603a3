package domain

import (
	"fmt"
	"time"
)

// transitions is the pickup lifecycle. Anything absent is illegal.
var transitions = map[PickupStatus][]PickupStatus{
	PickupStatusRequested: {PickupStatusAssigned, PickupStatusCancelled},
	PickupStatusAssigned:  {PickupStatusOnTheWay, PickupStatusCancelled},
	PickupStatusOnTheWay:  {PickupStatusWeighing, PickupStatusCancelled},
	PickupStatusWeighing:  {PickupStatusPicked, PickupStatusCancelled},
	PickupStatusPicked:    {PickupStatusPaid},
	PickupStatusPaid:      {},
	PickupStatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to PickupStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s PickupStatus) []PickupStatus {
	next := make([]PickupStatus, len(transitions[s]))
	copy(next, transitions[s])
	return next
}

// Role is the verified role of a caller.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleCollector Role = "COLLECTOR"
	RoleAdmin     Role = "ADMIN"

	// RoleSystem is used by settlement. Identity tokens never carry it.
	RoleSystem Role = "SYSTEM"
)

// ParseRole converts an identity claim into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCustomer, RoleCollector, RoleAdmin:
		return r, nil
	}
	return "", Invalid("role", fmt.Sprintf("unknown role %q", s))
}

// Actor is the verified caller of a pickup operation.
type Actor struct {
	UserID string
	Role   Role

	// CollectorID is the collector profile id of a RoleCollector actor.
	CollectorID string
}

// SystemActor is the actor settlement runs as.
func SystemActor() Actor {
	return Actor{UserID: "system", Role: RoleSystem}
}

// grant names a class of actor allowed to drive a pickup into a status.
type grant int

const (
	grantOwner grant = iota
	grantAssignedCollector
	grantEligibleCollector // area and approval are checked by matching
	grantAdmin
	grantSystem
)

// permissions maps a target status to the grants that may request it.
var permissions = map[PickupStatus][]grant{
	PickupStatusAssigned:  {grantEligibleCollector},
	PickupStatusOnTheWay:  {grantAssignedCollector},
	PickupStatusWeighing:  {grantAssignedCollector},
	PickupStatusPicked:    {grantAssignedCollector},
	PickupStatusPaid:      {grantSystem},
	PickupStatusCancelled: {grantOwner, grantAssignedCollector, grantAdmin},
}

func (g grant) allows(p *PickupRequest, a Actor) bool {
	switch g {
	case grantOwner:
		return a.Role == RoleCustomer && a.UserID != "" && a.UserID == p.CustomerID
	case grantAssignedCollector:
		return a.Role == RoleCollector && p.CollectorID != "" && a.CollectorID == p.CollectorID
	case grantEligibleCollector:
		return a.Role == RoleCollector && a.CollectorID != ""
	case grantAdmin:
		return a.Role == RoleAdmin
	case grantSystem:
		return a.Role == RoleSystem
	}
	return false
}

// Authorize checks that a may move p into status to.
// Legality is checked first, so an illegal pair is always ErrInvalidTransition.
func Authorize(p *PickupRequest, a Actor, to PickupStatus) error {
	if !CanTransition(p.Status, to) {
		return InvalidTransition(p.Status, to)
	}
	for _, g := range permissions[to] {
		if g.allows(p, a) {
			return nil
		}
	}
	return denial(p, a, to)
}

func denial(p *PickupRequest, a Actor, to PickupStatus) error {
	switch a.Role {
	case RoleCustomer:
		if to != PickupStatusCancelled {
			return ErrCustomerCanOnlyCancel
		}
		return ErrNotPickupOwner
	case RoleCollector:
		return ErrNotAssignedCollector
	}
	return ErrActorNotPermitted
}

// InvalidTransition returns the error for an illegal from -> to step.
func InvalidTransition(from, to PickupStatus) error {
	return NewError(ErrInvalidTransition, fmt.Sprintf("cannot transition from %s to %s", from, to))
}

// Transition authorizes and applies a status change to p, including its side
// effects. p is left untouched on error.
func Transition(p *PickupRequest, a Actor, to PickupStatus, now time.Time) error {
	if err := Authorize(p, a, to); err != nil {
		return err
	}

	p.Status = to
	p.UpdatedAt = now

	switch to {
	case PickupStatusAssigned:
		p.CollectorID = a.CollectorID
	case PickupStatusPicked:
		p.CompletedAt = now
	case PickupStatusPaid:
		p.PaidAt = now
	case PickupStatusCancelled:
		p.CancelledAt = now
	}

	return nil
}
