package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"scrap/internal/domain"
	"scrap/internal/service"
)

// WalletService exposes balances, history and payouts.
type WalletService interface {
	Balance(ctx context.Context, userID string) (service.Balance, error)
	Transactions(ctx context.Context, userID string, entryType domain.EntryType, page service.Page) (*service.LedgerPage, error)
	RequestPayout(ctx context.Context, userID string, amount decimal.Decimal, handle string) (*domain.LedgerEntry, error)
}

// Ensure the service satisfies the handler contract.
var _ WalletService = (*service.WalletService)(nil)

// WalletHandler handles HTTP requests for wallets.
type WalletHandler struct {
	wallet WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallet WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// PayoutRequest is the HTTP request body for a payout.
type PayoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
	UPIID  string          `json:"upi_id"`
}

// LedgerEntryResponse is the HTTP representation of a ledger entry.
type LedgerEntryResponse struct {
	ID          string          `json:"id"`
	PickupID    string          `json:"pickup_id,omitempty"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	UPIID       string          `json:"upi_id,omitempty"`
	CreatedAt   string          `json:"created_at"`
	ResolvedAt  string          `json:"resolved_at,omitempty"`
}

// TransactionsResponse is a page of ledger entries.
type TransactionsResponse struct {
	Transactions []LedgerEntryResponse `json:"transactions"`
	Pagination   service.PageInfo      `json:"pagination"`
}

func toLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:          e.ID,
		PickupID:    e.PickupID,
		Type:        string(e.Type),
		Amount:      e.Amount,
		Description: e.Description,
		Status:      string(e.Status),
		UPIID:       e.PayoutHandle,
		CreatedAt:   formatTime(e.CreatedAt),
		ResolvedAt:  formatTime(e.ResolvedAt),
	}
}

// Balance handles GET /v1/wallet/balance
func (h *WalletHandler) Balance(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	balance, err := h.wallet.Balance(c.Request.Context(), a.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, balance)
}

// Transactions handles GET /v1/wallet/transactions
func (h *WalletHandler) Transactions(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p, ok := page(c)
	if !ok {
		return
	}

	result, err := h.wallet.Transactions(c.Request.Context(), a.UserID, domain.EntryType(c.Query("type")), p)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := TransactionsResponse{
		Transactions: make([]LedgerEntryResponse, 0, len(result.Entries)),
		Pagination:   result.Pagination,
	}
	for _, e := range result.Entries {
		resp.Transactions = append(resp.Transactions, toLedgerEntryResponse(e))
	}

	respondJSON(c, http.StatusOK, resp)
}

// RequestPayout handles POST /v1/wallet/payouts
func (h *WalletHandler) RequestPayout(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	entry, err := h.wallet.RequestPayout(c.Request.Context(), a.UserID, req.Amount, req.UPIID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toLedgerEntryResponse(entry))
}
