package service

import (
	"context"

	"scrap/internal/domain"
	"scrap/internal/repository"
)

// PickupPage is one page of pickups.
type PickupPage struct {
	Pickups    []*domain.PickupRequest
	Pagination PageInfo
}

// MatchingService decides which collectors may see and accept which pickups.
type MatchingService struct {
	collectors repository.CollectorRepository
	pickups    repository.PickupRepository
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(collectors repository.CollectorRepository, pickups repository.PickupRepository) *MatchingService {
	return &MatchingService{
		collectors: collectors,
		pickups:    pickups,
	}
}

// ResolveCollector returns the collector profile of userID.
func (s *MatchingService) ResolveCollector(ctx context.Context, userID string) (*domain.CollectorProfile, error) {
	profile, err := s.collectors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, translate(err, domain.ErrCollectorNotFound)
	}
	return profile, nil
}

// ResolveActor fills in the collector profile id of a collector actor. Other
// actors are returned unchanged.
func (s *MatchingService) ResolveActor(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	if actor.Role != domain.RoleCollector || actor.CollectorID != "" {
		return actor, nil
	}
	profile, err := s.ResolveCollector(ctx, actor.UserID)
	if err != nil {
		return actor, err
	}
	actor.CollectorID = profile.ID
	return actor, nil
}

// CheckEligibility reports whether profile may accept pickup.
func (s *MatchingService) CheckEligibility(profile *domain.CollectorProfile, pickup *domain.PickupRequest) error {
	if !profile.Approved() {
		return domain.ErrCollectorNotApproved
	}
	if !profile.Serves(pickup.Address.PostalCode) {
		return domain.ErrPostalCodeNotServed
	}
	return nil
}

// AvailablePickups lists REQUESTED pickups in the collector's area, soonest
// first. An unapproved collector is refused rather than shown an empty list.
func (s *MatchingService) AvailablePickups(ctx context.Context, userID string, page Page) (*PickupPage, error) {
	profile, err := s.ResolveCollector(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.Approved() {
		return nil, domain.ErrCollectorNotApproved
	}

	pickups, total, err := s.pickups.ListAvailable(ctx, profile.ServicedPostalCodes, page.Offset(), page.Limit)
	if err != nil {
		return nil, err
	}

	return &PickupPage{Pickups: pickups, Pagination: page.info(total)}, nil
}
