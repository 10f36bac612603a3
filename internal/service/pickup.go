package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"scrap/internal/domain"
	"scrap/internal/redis"
	"scrap/internal/repository"
)

// DefaultAcceptLockTTL bounds how long one accept attempt holds a pickup.
const DefaultAcceptLockTTL = 10 * time.Second

var postalCodePattern = regexp.MustCompile(`^\d{6}$`)

// Settler settles picked pickups.
type Settler interface {
	Settle(ctx context.Context, pickupID string) (*SettlementResult, error)
}

// Ensure SettlementService implements Settler.
var _ Settler = (*SettlementService)(nil)

// PickupConfig tunes the pickup service.
type PickupConfig struct {
	AcceptLockTTL time.Duration
	AutoSettle    bool // settle as soon as a pickup is completed
}

// PickupService drives pickups through their lifecycle.
type PickupService struct {
	pickups    repository.PickupRepository
	estimation *EstimationService
	matching   *MatchingService
	locks      redis.LockStoreInterface
	settler    Settler
	events     notifier
	cfg        PickupConfig
}

// NewPickupService creates a new PickupService. locks and settler may be nil.
func NewPickupService(
	pickups repository.PickupRepository,
	estimation *EstimationService,
	matching *MatchingService,
	locks redis.LockStoreInterface,
	settler Settler,
	publisher EventPublisher,
	cfg PickupConfig,
) *PickupService {
	if cfg.AcceptLockTTL <= 0 {
		cfg.AcceptLockTTL = DefaultAcceptLockTTL
	}
	return &PickupService{
		pickups:    pickups,
		estimation: estimation,
		matching:   matching,
		locks:      locks,
		settler:    settler,
		events:     notifier{publisher: publisher},
		cfg:        cfg,
	}
}

// CreatePickupRequest contains the parameters for requesting a pickup.
type CreatePickupRequest struct {
	Address       domain.Address
	Items         []ItemEstimate
	ScheduledDate time.Time
	ScheduledSlot domain.TimeSlot
	AssistedMode  bool
	Notes         string
	PhotoURL      string
}

// CreatePickupResponse contains the created pickup and soft warnings.
type CreatePickupResponse struct {
	Pickup            *domain.PickupRequest
	HighWeightWarning bool
}

// CreatePickup validates, prices and persists a new REQUESTED pickup.
func (s *PickupService) CreatePickup(ctx context.Context, actor domain.Actor, req CreatePickupRequest) (*CreatePickupResponse, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, ErrCustomerOnly
	}

	now := time.Now()

	v := &domain.ValidationError{}
	validateAddress(v, req.Address)
	validateSchedule(v, req.ScheduledDate, req.ScheduledSlot, now)

	est, err := s.estimation.Estimate(ctx, req.Items, now)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		v.Fields = append(v.Fields, verr.Fields...)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	address := req.Address
	address.SchemaVersion = domain.AddressSchemaVersion

	pickup := &domain.PickupRequest{
		ID:                   uuid.New().String(),
		CustomerID:           actor.UserID,
		Address:              address,
		Items:                est.Items,
		ScheduledDate:        req.ScheduledDate,
		ScheduledSlot:        req.ScheduledSlot,
		Status:               domain.PickupStatusRequested,
		TotalEstimatedWeight: est.TotalWeight,
		TotalEstimatedAmount: est.TotalAmount,
		PriceLockExpiresAt:   est.PriceLockExpiresAt,
		AssistedMode:         req.AssistedMode,
		Notes:                strings.TrimSpace(req.Notes),
		PhotoURL:             req.PhotoURL,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.pickups.Create(ctx, pickup); err != nil {
		return nil, err
	}

	s.events.pickupChanged(ctx, pickup)

	return &CreatePickupResponse{Pickup: pickup, HighWeightWarning: est.HighWeightWarning}, nil
}

func validateAddress(v *domain.ValidationError, a domain.Address) {
	if len(strings.TrimSpace(a.Line1)) < 5 {
		v.Add("address.line1", "address must be at least 5 characters")
	}
	if len(strings.TrimSpace(a.City)) < 2 {
		v.Add("address.city", "city is required")
	}
	if len(strings.TrimSpace(a.State)) < 2 {
		v.Add("address.state", "state is required")
	}
	if !postalCodePattern.MatchString(a.PostalCode) {
		v.Add("address.postal_code", "postal code must be 6 digits")
	}
}

func validateSchedule(v *domain.ValidationError, date time.Time, slot domain.TimeSlot, now time.Time) {
	if date.IsZero() {
		v.Add("scheduled_date", "is required")
	} else {
		y, m, d := now.Date()
		if date.Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location())) {
			v.Add("scheduled_date", "must not be in the past")
		}
	}
	if !slot.Valid() {
		v.Addf("scheduled_slot", "unknown slot %q", slot)
	}
}

// GetPickup returns a pickup visible to actor: its customer, its assigned
// collector or an admin.
func (s *PickupService) GetPickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error) {
	pickup, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	actor, err = s.matching.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role == domain.RoleAdmin:
	case actor.Role == domain.RoleCustomer && actor.UserID == pickup.CustomerID:
	case actor.Role == domain.RoleCollector && pickup.CollectorID != "" && actor.CollectorID == pickup.CollectorID:
	case actor.Role == domain.RoleCollector && pickup.Status == domain.PickupStatusRequested:
		// Browsing collectors may open available pickups.
	default:
		return nil, ErrPickupAccessDenied
	}

	return pickup, nil
}

// ListPickups lists pickups owned by a customer, assigned to a collector, or
// all pickups for an admin.
func (s *PickupService) ListPickups(ctx context.Context, actor domain.Actor, status domain.PickupStatus, page Page) (*PickupPage, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}

	filter := repository.PickupFilter{Status: status, Offset: page.Offset(), Limit: page.Limit}

	switch actor.Role {
	case domain.RoleCustomer:
		filter.CustomerID = actor.UserID
	case domain.RoleCollector:
		resolved, err := s.matching.ResolveActor(ctx, actor)
		if err != nil {
			return nil, err
		}
		filter.CollectorID = resolved.CollectorID
	case domain.RoleAdmin:
	default:
		return nil, domain.ErrActorNotPermitted
	}

	pickups, total, err := s.pickups.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &PickupPage{Pickups: pickups, Pagination: page.info(total)}, nil
}

// AcceptPickup assigns a REQUESTED pickup to the calling collector. Exactly
// one of several racing collectors wins; the rest get a conflict.
func (s *PickupService) AcceptPickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error) {
	if actor.Role != domain.RoleCollector {
		return nil, ErrCollectorOnly
	}

	profile, err := s.matching.ResolveCollector(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !profile.Approved() {
		return nil, domain.ErrCollectorNotApproved
	}
	actor.CollectorID = profile.ID

	if s.locks != nil {
		token, err := s.locks.AcquirePickupLock(ctx, id, s.cfg.AcceptLockTTL)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, ErrPickupLocked
		}
		defer func() {
			if err := s.locks.ReleasePickupLock(context.WithoutCancel(ctx), id, token); err != nil {
				log.Printf("[PICKUP] release accept lock %s: %v", id, err)
			}
		}()
	}

	return s.advance(ctx, actor, id, domain.PickupStatusAssigned, func(p *domain.PickupRequest) error {
		return s.matching.CheckEligibility(profile, p)
	})
}

// StartPickup marks the assigned collector as on the way.
func (s *PickupService) StartPickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error) {
	actor, err := s.collectorActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, actor, id, domain.PickupStatusOnTheWay, nil)
}

// CompletePickup closes the weigh-in. The pickup must carry a positive
// weighed amount. With auto-settle enabled the pickup is settled right away;
// a settlement failure is logged and leaves the pickup PICKED.
func (s *PickupService) CompletePickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error) {
	actor, err := s.collectorActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	pickup, err := s.advance(ctx, actor, id, domain.PickupStatusPicked, func(p *domain.PickupRequest) error {
		if p.TotalActualAmount == nil || !p.TotalActualAmount.IsPositive() {
			return ErrWeightNotSubmitted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cfg.AutoSettle && s.settler != nil {
		result, err := s.settler.Settle(ctx, id)
		if err != nil {
			log.Printf("[PICKUP] auto-settle %s failed: %v", id, err)
			return pickup, nil
		}
		return result.Pickup, nil
	}

	return pickup, nil
}

// CancelPickup cancels a pickup on behalf of its customer, its assigned
// collector or an admin.
func (s *PickupService) CancelPickup(ctx context.Context, actor domain.Actor, id, reason string) (*domain.PickupRequest, error) {
	actor, err := s.matching.ResolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	return s.advance(ctx, actor, id, domain.PickupStatusCancelled, func(p *domain.PickupRequest) error {
		p.CancelReason = strings.TrimSpace(reason)
		return nil
	})
}

func (s *PickupService) collectorActor(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	if actor.Role != domain.RoleCollector {
		return actor, ErrCollectorOnly
	}
	return s.matching.ResolveActor(ctx, actor)
}

func (s *PickupService) load(ctx context.Context, id string) (*domain.PickupRequest, error) {
	pickup, err := s.pickups.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, domain.ErrPickupNotFound)
	}
	return pickup, nil
}

// advance moves pickup id into status to. Legality and permission are checked
// first, then check runs against a copy of the pickup, then the copy is
// written conditionally on the status and version that were read.
func (s *PickupService) advance(
	ctx context.Context,
	actor domain.Actor,
	id string,
	to domain.PickupStatus,
	check func(p *domain.PickupRequest) error,
) (*domain.PickupRequest, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(current, actor, to); err != nil {
		return nil, err
	}

	next := current.Clone()
	if check != nil {
		if err := check(next); err != nil {
			return nil, err
		}
	}

	if err := domain.Transition(next, actor, to, time.Now()); err != nil {
		return nil, err
	}

	if err := s.pickups.UpdateIf(ctx, next, current.Status, current.Version); err != nil {
		return nil, translate(err, domain.ErrPickupNotFound)
	}

	s.events.pickupChanged(ctx, next)
	return next, nil
}
