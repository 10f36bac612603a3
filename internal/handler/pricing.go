package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"scrap/internal/repository"
)

// PricingHandler serves the waste price catalog.
type PricingHandler struct {
	catalog repository.PricingCatalog
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(catalog repository.PricingCatalog) *PricingHandler {
	return &PricingHandler{catalog: catalog}
}

// PriceResponse is one catalog entry.
type PriceResponse struct {
	Category     string          `json:"category"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	MinQuantity  decimal.Decimal `json:"min_quantity"`
	Active       bool            `json:"active"`
	UpdatedAt    string          `json:"updated_at"`
}

// List handles GET /v1/pricing
func (h *PricingHandler) List(c *gin.Context) {
	snapshots, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	prices := make([]PriceResponse, 0, len(snapshots))
	for _, s := range snapshots {
		prices = append(prices, PriceResponse{
			Category:     string(s.Category),
			PricePerUnit: s.PricePerUnit,
			MinQuantity:  s.MinQuantity,
			Active:       s.Active,
			UpdatedAt:    formatTime(s.UpdatedAt),
		})
	}

	respondJSON(c, http.StatusOK, gin.H{"prices": prices})
}
