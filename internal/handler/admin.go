package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"scrap/internal/service"
)

// Settler settles picked pickups.
type Settler interface {
	Settle(ctx context.Context, pickupID string) (*service.SettlementResult, error)
}

// CacheInvalidator drops cached catalog prices.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// AdminHandler handles administrative HTTP requests.
type AdminHandler struct {
	settler Settler
	cache   CacheInvalidator
}

// NewAdminHandler creates a new AdminHandler. cache may be nil.
func NewAdminHandler(settler Settler, cache CacheInvalidator) *AdminHandler {
	return &AdminHandler{settler: settler, cache: cache}
}

// SettlementResponse is the HTTP response for a settlement.
type SettlementResponse struct {
	Pickup          PickupResponse       `json:"pickup"`
	CustomerCredit  LedgerEntryResponse  `json:"customer_credit"`
	CollectorCredit *LedgerEntryResponse `json:"collector_credit,omitempty"`
	Commission      decimal.Decimal      `json:"commission"`
}

// Settle handles POST /v1/admin/pickups/:id/settle
func (h *AdminHandler) Settle(c *gin.Context) {
	result, err := h.settler.Settle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := SettlementResponse{
		Pickup:         toPickupResponse(result.Pickup),
		CustomerCredit: toLedgerEntryResponse(result.CustomerCredit),
		Commission:     result.Commission,
	}
	if result.CollectorCredit != nil {
		credit := toLedgerEntryResponse(result.CollectorCredit)
		resp.CollectorCredit = &credit
	}

	respondJSON(c, http.StatusOK, resp)
}

// InvalidatePricing handles POST /v1/admin/pricing/invalidate
func (h *AdminHandler) InvalidatePricing(c *gin.Context) {
	if h.cache != nil {
		if err := h.cache.Invalidate(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
