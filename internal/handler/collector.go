package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/service"
)

// CollectorService exposes collector browsing and earnings.
type CollectorService interface {
	AvailablePickups(ctx context.Context, userID string, page service.Page) (*service.PickupPage, error)
	Profile(ctx context.Context, userID string) (*domain.CollectorProfile, error)
	Earnings(ctx context.Context, userID string) (*service.Earnings, error)
}

// collectorFacade joins matching and earnings behind CollectorService.
type collectorFacade struct {
	*service.MatchingService
	*service.CollectorService
}

// NewCollectorFacade combines the matching and collector services.
func NewCollectorFacade(matching *service.MatchingService, collectors *service.CollectorService) CollectorService {
	return collectorFacade{MatchingService: matching, CollectorService: collectors}
}

// CollectorHandler handles HTTP requests made by collectors.
type CollectorHandler struct {
	pickups    PickupService
	collectors CollectorService
}

// NewCollectorHandler creates a new CollectorHandler.
func NewCollectorHandler(pickups PickupService, collectors CollectorService) *CollectorHandler {
	return &CollectorHandler{pickups: pickups, collectors: collectors}
}

// WeightEntryRequest is one weighed line.
type WeightEntryRequest struct {
	Category     string          `json:"category"`
	ActualWeight decimal.Decimal `json:"actual_weight"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// SubmitWeightsRequest is the HTTP request body for a weigh-in.
type SubmitWeightsRequest struct {
	Items []WeightEntryRequest `json:"items"`
}

// SubmitWeightsResponse is the HTTP response for a weigh-in.
type SubmitWeightsResponse struct {
	PickupResponse
	IgnoredCategories []domain.WasteCategory `json:"ignored_categories,omitempty"`
}

// CollectorProfileResponse is the HTTP representation of a collector profile.
type CollectorProfileResponse struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	ApprovalStatus      string          `json:"approval_status"`
	ServicedPostalCodes []string        `json:"serviced_postal_codes"`
	CommissionRate      decimal.Decimal `json:"commission_rate"`
	Rating              decimal.Decimal `json:"rating"`
	TotalPickups        int             `json:"total_pickups"`
	TotalEarnings       decimal.Decimal `json:"total_earnings"`
}

// AvailablePickups handles GET /v1/collector/pickups/available
func (h *CollectorHandler) AvailablePickups(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p, ok := page(c)
	if !ok {
		return
	}

	result, err := h.collectors.AvailablePickups(c.Request.Context(), a.UserID, p)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPickupList(result))
}

// AcceptPickup handles POST /v1/collector/pickups/:id/accept
func (h *CollectorHandler) AcceptPickup(c *gin.Context) {
	h.step(c, h.pickups.AcceptPickup)
}

// StartPickup handles POST /v1/collector/pickups/:id/start
func (h *CollectorHandler) StartPickup(c *gin.Context) {
	h.step(c, h.pickups.StartPickup)
}

// CompletePickup handles POST /v1/collector/pickups/:id/complete
func (h *CollectorHandler) CompletePickup(c *gin.Context) {
	h.step(c, h.pickups.CompletePickup)
}

func (h *CollectorHandler) step(c *gin.Context, fn func(context.Context, domain.Actor, string) (*domain.PickupRequest, error)) {
	a, ok := actor(c)
	if !ok {
		return
	}

	pickup, err := fn(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPickupResponse(pickup))
}

// SubmitWeights handles POST /v1/collector/pickups/:id/weigh
func (h *CollectorHandler) SubmitWeights(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req SubmitWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	entries := make([]service.WeightEntry, 0, len(req.Items))
	for _, it := range req.Items {
		entries = append(entries, service.WeightEntry{
			Category:     domain.WasteCategory(it.Category),
			ActualWeight: it.ActualWeight,
			UnitPrice:    it.UnitPrice,
		})
	}

	result, err := h.pickups.SubmitWeights(c.Request.Context(), a, c.Param("id"), entries)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SubmitWeightsResponse{
		PickupResponse:    toPickupResponse(result.Pickup),
		IgnoredCategories: result.Ignored,
	})
}

// Profile handles GET /v1/collector/me
func (h *CollectorHandler) Profile(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	profile, err := h.collectors.Profile(c.Request.Context(), a.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CollectorProfileResponse{
		ID:                  profile.ID,
		UserID:              profile.UserID,
		ApprovalStatus:      string(profile.ApprovalStatus),
		ServicedPostalCodes: profile.ServicedPostalCodes,
		CommissionRate:      profile.CommissionRate,
		Rating:              profile.Rating,
		TotalPickups:        profile.TotalPickups,
		TotalEarnings:       profile.TotalEarnings,
	})
}

// Earnings handles GET /v1/collector/me/earnings
func (h *CollectorHandler) Earnings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	earnings, err := h.collectors.Earnings(c.Request.Context(), a.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, earnings)
}
