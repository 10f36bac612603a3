package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/service"
)

const dateLayout = "2006-01-02"

// PickupService is the pickup lifecycle used by the HTTP layer.
type PickupService interface {
	CreatePickup(ctx context.Context, actor domain.Actor, req service.CreatePickupRequest) (*service.CreatePickupResponse, error)
	GetPickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error)
	ListPickups(ctx context.Context, actor domain.Actor, status domain.PickupStatus, page service.Page) (*service.PickupPage, error)
	CancelPickup(ctx context.Context, actor domain.Actor, id, reason string) (*domain.PickupRequest, error)
	AcceptPickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error)
	StartPickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error)
	SubmitWeights(ctx context.Context, actor domain.Actor, id string, entries []service.WeightEntry) (*service.SubmitWeightsResponse, error)
	CompletePickup(ctx context.Context, actor domain.Actor, id string) (*domain.PickupRequest, error)
}

// Ensure the service satisfies the handler contract.
var _ PickupService = (*service.PickupService)(nil)

// PickupHandler handles HTTP requests for customer pickups.
type PickupHandler struct {
	pickups PickupService
}

// NewPickupHandler creates a new PickupHandler.
func NewPickupHandler(pickups PickupService) *PickupHandler {
	return &PickupHandler{pickups: pickups}
}

// ItemRequest is one material line of a new pickup.
type ItemRequest struct {
	Category        string           `json:"category"`
	EstimatedWeight *decimal.Decimal `json:"estimated_weight"`
}

// CreatePickupRequest is the HTTP request body for requesting a pickup.
type CreatePickupRequest struct {
	Address       domain.Address `json:"address"`
	Items         []ItemRequest  `json:"items"`
	ScheduledDate string         `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledSlot string         `json:"scheduled_slot"`
	AssistedMode  bool           `json:"assisted_mode"`
	Notes         string         `json:"notes,omitempty"`
	PhotoURL      string         `json:"photo_url,omitempty"`
}

// CancelPickupRequest is the HTTP request body for cancelling a pickup.
type CancelPickupRequest struct {
	Reason string `json:"reason,omitempty"`
}

// PickupResponse is the HTTP representation of a pickup.
type PickupResponse struct {
	ID                   string                `json:"id"`
	CustomerID           string                `json:"customer_id"`
	CollectorID          string                `json:"collector_id,omitempty"`
	Status               string                `json:"status"`
	Address              domain.Address        `json:"address"`
	Items                []domain.PickupItem   `json:"items"`
	ScheduledDate        string                `json:"scheduled_date"`
	ScheduledSlot        string                `json:"scheduled_slot"`
	TotalEstimatedWeight *decimal.Decimal      `json:"total_estimated_weight"`
	TotalEstimatedAmount *decimal.Decimal      `json:"total_estimated_amount"`
	TotalActualWeight    *decimal.Decimal      `json:"total_actual_weight,omitempty"`
	TotalActualAmount    *decimal.Decimal      `json:"total_actual_amount,omitempty"`
	ConvenienceFee       decimal.Decimal       `json:"convenience_fee"`
	PriceLockExpiresAt   string                `json:"price_lock_expires_at,omitempty"`
	AssistedMode         bool                  `json:"assisted_mode"`
	Notes                string                `json:"notes,omitempty"`
	PhotoURL             string                `json:"photo_url,omitempty"`
	CancelReason         string                `json:"cancel_reason,omitempty"`
	NextStatuses         []domain.PickupStatus `json:"next_statuses"`
	CreatedAt            string                `json:"created_at"`
	UpdatedAt            string                `json:"updated_at"`
	CompletedAt          string                `json:"completed_at,omitempty"`
	PaidAt               string                `json:"paid_at,omitempty"`
	CancelledAt          string                `json:"cancelled_at,omitempty"`
}

// CreatePickupResponse is the HTTP response for a new pickup.
type CreatePickupResponse struct {
	PickupResponse
	HighWeightWarning bool `json:"high_weight_warning"`
}

// PickupListResponse is a page of pickups.
type PickupListResponse struct {
	Pickups    []PickupResponse `json:"pickups"`
	Pagination service.PageInfo `json:"pagination"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toPickupResponse(p *domain.PickupRequest) PickupResponse {
	return PickupResponse{
		ID:                   p.ID,
		CustomerID:           p.CustomerID,
		CollectorID:          p.CollectorID,
		Status:               string(p.Status),
		Address:              p.Address,
		Items:                p.Items,
		ScheduledDate:        p.ScheduledDate.Format(dateLayout),
		ScheduledSlot:        string(p.ScheduledSlot),
		TotalEstimatedWeight: p.TotalEstimatedWeight,
		TotalEstimatedAmount: p.TotalEstimatedAmount,
		TotalActualWeight:    p.TotalActualWeight,
		TotalActualAmount:    p.TotalActualAmount,
		ConvenienceFee:       p.ConvenienceFee,
		PriceLockExpiresAt:   formatTime(p.PriceLockExpiresAt),
		AssistedMode:         p.AssistedMode,
		Notes:                p.Notes,
		PhotoURL:             p.PhotoURL,
		CancelReason:         p.CancelReason,
		NextStatuses:         domain.NextStatuses(p.Status),
		CreatedAt:            formatTime(p.CreatedAt),
		UpdatedAt:            formatTime(p.UpdatedAt),
		CompletedAt:          formatTime(p.CompletedAt),
		PaidAt:               formatTime(p.PaidAt),
		CancelledAt:          formatTime(p.CancelledAt),
	}
}

func toPickupList(page *service.PickupPage) PickupListResponse {
	resp := PickupListResponse{
		Pickups:    make([]PickupResponse, 0, len(page.Pickups)),
		Pagination: page.Pagination,
	}
	for _, p := range page.Pickups {
		resp.Pickups = append(resp.Pickups, toPickupResponse(p))
	}
	return resp
}

// CreatePickup handles POST /v1/pickups
func (h *PickupHandler) CreatePickup(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req CreatePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	var date time.Time
	if req.ScheduledDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.ScheduledDate, time.Local)
		if err != nil {
			respondError(c, domain.Invalid("scheduled_date", "must be a date in YYYY-MM-DD format"))
			return
		}
		date = parsed
	}

	items := make([]service.ItemEstimate, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.ItemEstimate{
			Category:        domain.WasteCategory(it.Category),
			EstimatedWeight: it.EstimatedWeight,
		})
	}

	result, err := h.pickups.CreatePickup(c.Request.Context(), a, service.CreatePickupRequest{
		Address:       req.Address,
		Items:         items,
		ScheduledDate: date,
		ScheduledSlot: domain.TimeSlot(req.ScheduledSlot),
		AssistedMode:  req.AssistedMode,
		Notes:         req.Notes,
		PhotoURL:      req.PhotoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreatePickupResponse{
		PickupResponse:    toPickupResponse(result.Pickup),
		HighWeightWarning: result.HighWeightWarning,
	})
}

// ListPickups handles GET /v1/pickups
func (h *PickupHandler) ListPickups(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p, ok := page(c)
	if !ok {
		return
	}

	result, err := h.pickups.ListPickups(c.Request.Context(), a, domain.PickupStatus(c.Query("status")), p)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPickupList(result))
}

// GetPickup handles GET /v1/pickups/:id
func (h *PickupHandler) GetPickup(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	pickup, err := h.pickups.GetPickup(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPickupResponse(pickup))
}

// CancelPickup handles POST /v1/pickups/:id/cancel
func (h *PickupHandler) CancelPickup(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	// The body is optional.
	var req CancelPickupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	pickup, err := h.pickups.CancelPickup(c.Request.Context(), a, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPickupResponse(pickup))
}
